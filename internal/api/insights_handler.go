package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sensetrack/app"
	"sensetrack/domain/tracking"
	"sensetrack/internal/errors"
)

// InsightsHandler serves analyses, narratives and reports
type InsightsHandler struct {
	insights *app.InsightsService
	narrator *app.Narrator
	reports  *app.ReportService
	tracker  *app.Tracker
}

// NewInsightsHandler creates an insights handler
func NewInsightsHandler(insights *app.InsightsService, narrator *app.Narrator, reports *app.ReportService, tracker *app.Tracker) *InsightsHandler {
	return &InsightsHandler{insights: insights, narrator: narrator, reports: reports, tracker: tracker}
}

func (h *InsightsHandler) Transitions(c *gin.Context) {
	c.JSON(http.StatusOK, h.insights.Transitions())
}

// Contexts responds with the comparison, or a null comparison and a reason when data is short
func (h *InsightsHandler) Contexts(c *gin.Context) {
	comparison := h.insights.Contexts()
	if comparison == nil {
		c.JSON(http.StatusOK, gin.H{"comparison": nil, "reason": "not enough logs in both contexts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comparison": comparison})
}

func (h *InsightsHandler) Risk(c *gin.Context) {
	now, ok := referenceTime(c, h.insights.Now)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.insights.Risk(now))
}

func (h *InsightsHandler) Goals(c *gin.Context) {
	now, ok := referenceTime(c, h.insights.Now)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.insights.Goals(now))
}

func (h *InsightsHandler) Snapshot(c *gin.Context) {
	now, ok := referenceTime(c, h.insights.Now)
	if !ok {
		return
	}
	snap, err := h.insights.Snapshot(c.Request.Context(), now)
	if err != nil {
		respondError(c, errors.Wrap(err, "failed to compute snapshot"))
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *InsightsHandler) Narrative(c *gin.Context) {
	if h.narrator == nil {
		respondError(c, errors.New(errors.CodeNotFound, "narration is not configured"))
		return
	}
	now, ok := referenceTime(c, h.insights.Now)
	if !ok {
		return
	}
	snap, err := h.insights.Snapshot(c.Request.Context(), now)
	if err != nil {
		respondError(c, errors.Wrap(err, "failed to compute snapshot"))
		return
	}

	var profile *tracking.ChildProfile
	if p, err := h.tracker.Profile(); err == nil {
		profile = &p
	}
	narrative, err := h.narrator.Narrate(c.Request.Context(), snap, profile)
	if err != nil {
		respondError(c, errors.Wrap(err, "failed to narrate"))
		return
	}
	c.JSON(http.StatusOK, narrative)
}

func (h *InsightsHandler) Report(c *gin.Context) {
	now, ok := referenceTime(c, h.insights.Now)
	if !ok {
		return
	}
	md, err := h.reports.Markdown(c.Request.Context(), now)
	if err != nil {
		respondError(c, errors.Wrap(err, "failed to render report"))
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
}

func (h *InsightsHandler) ReportHTML(c *gin.Context) {
	now, ok := referenceTime(c, h.insights.Now)
	if !ok {
		return
	}
	page, err := h.reports.HTML(c.Request.Context(), now)
	if err != nil {
		respondError(c, errors.Wrap(err, "failed to render report"))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}
