// Package api exposes the tracker, analyses and reports as a JSON API.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sensetrack/app"
	"sensetrack/internal/logger"
	"sensetrack/internal/usage"
)

// Services are the application services behind the API
type Services struct {
	Tracker  *app.Tracker
	Insights *app.InsightsService
	Narrator *app.Narrator
	Reports  *app.ReportService
	// Usage is optional; without it /api/usage is not served
	Usage    *usage.Service
}

// Server holds the gin router and handlers
type Server struct {
	router   *gin.Engine
	records  *RecordsHandler
	insights *InsightsHandler
	usage    *usage.Service
	log      *logger.Logger
}

// NewServer builds the router with all routes registered
func NewServer(svc Services, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("component", "api")

	router := gin.New()
	router.Use(requestLogger(log), gin.Recovery())

	s := &Server{
		router:   router,
		records:  NewRecordsHandler(svc.Tracker, svc.Narrator),
		insights: NewInsightsHandler(svc.Insights, svc.Narrator, svc.Reports, svc.Tracker),
		usage:    svc.Usage,
		log:      log,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api")
	{
		api.GET("/logs", s.records.ListLogs)
		api.POST("/logs", s.records.AddLog)
		api.DELETE("/logs/:id", s.records.DeleteLog)

		api.GET("/crises", s.records.ListCrises)
		api.POST("/crises", s.records.AddCrisis)
		api.DELETE("/crises/:id", s.records.DeleteCrisis)

		api.GET("/schedule", s.records.ListSchedule)
		api.POST("/schedule", s.records.AddScheduleEntry)
		api.PUT("/schedule/:id", s.records.UpdateScheduleEntry)

		api.GET("/goals", s.records.ListGoals)
		api.POST("/goals", s.records.AddGoal)
		api.GET("/goals/:id", s.records.GetGoal)
		api.POST("/goals/:id/progress", s.records.RecordProgress)
		api.POST("/goals/:id/discontinue", s.records.DiscontinueGoal)

		api.GET("/profile", s.records.GetProfile)
		api.PUT("/profile", s.records.PutProfile)

		api.GET("/report", s.insights.Report)
		api.GET("/report.html", s.insights.ReportHTML)

		if s.usage != nil {
			api.GET("/usage", func(c *gin.Context) {
				c.JSON(http.StatusOK, s.usage.Summary())
			})
		}
	}

	insights := api.Group("/insights")
	{
		insights.GET("/transitions", s.insights.Transitions)
		insights.GET("/contexts", s.insights.Contexts)
		insights.GET("/risk", s.insights.Risk)
		insights.GET("/goals", s.insights.Goals)
		insights.GET("/snapshot", s.insights.Snapshot)
		insights.GET("/narrative", s.insights.Narrative)
	}
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer wraps the router in an http.Server listening on addr
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// requestLogger logs one line per request through the application logger
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"elapsed_ms", time.Since(start).Milliseconds(),
		}
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request", append(fields, "error", c.Errors.String())...)
		case status >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Debug("request", fields...)
		}
	}
}
