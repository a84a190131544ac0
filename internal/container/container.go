package container

import (
	"context"
	"fmt"

	"sensetrack/adapters/excel"
	"sensetrack/adapters/llm"
	"sensetrack/adapters/memory"
	"sensetrack/adapters/sqlstore"
	"sensetrack/app"
	"sensetrack/domain/core"
	"sensetrack/internal/analysis/contexts"
	"sensetrack/internal/analysis/risk"
	"sensetrack/internal/analysis/transitions"
	"sensetrack/internal/api"
	"sensetrack/internal/config"
	"sensetrack/internal/errors"
	"sensetrack/internal/logger"
	"sensetrack/internal/usage"
	"sensetrack/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Log    *logger.Logger
	Clock  core.Clock

	// Infrastructure
	Store ports.KeyValueStore
	SQL   *sqlstore.Store // nil for the memory driver
	LLM   ports.LLMClient // nil when no API key is configured

	// Application services
	Tracker  *app.Tracker
	Insights *app.InsightsService
	Narrator *app.Narrator
	Reports  *app.ReportService
	Workbook *excel.Workbook
	Usage    *usage.Service
}

// New wires every component from cfg and loads persisted records into the tracker
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if log == nil {
		log = logger.NewNop()
	}

	c := &Container{
		Config: cfg,
		Log:    log,
		Clock:  core.SystemClock,
	}

	if err := c.initStore(ctx); err != nil {
		return nil, err
	}
	if err := c.initServices(ctx); err != nil {
		_ = c.Shutdown(ctx)
		return nil, err
	}

	log.Info("container initialized",
		"storage", cfg.Storage.Driver,
		"llm", c.LLM != nil,
		"timezone", cfg.Location.String(),
	)
	return c, nil
}

// initStore opens the configured persistence adapter
func (c *Container) initStore(ctx context.Context) error {
	switch c.Config.Storage.Driver {
	case "memory":
		c.Store = memory.NewStore()
	case sqlstore.DriverSQLite, sqlstore.DriverPostgres:
		store, err := sqlstore.OpenAndMigrate(ctx, c.Config.Storage.Driver, c.Config.Storage.DSN)
		if err != nil {
			return errors.DatabaseError("failed to open storage", err)
		}
		c.SQL = store
		c.Store = store
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown storage driver %q", c.Config.Storage.Driver))
	}
	return nil
}

// initServices builds the analyzers and application services
func (c *Container) initServices(ctx context.Context) error {
	ta, err := transitions.NewAnalyzer(c.Config.Analysis.Transitions)
	if err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	cc, err := contexts.NewComparator(c.Config.Analysis.Contexts)
	if err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	rf, err := risk.NewForecaster(c.Config.Analysis.Risk)
	if err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}

	c.Tracker = app.NewTracker(c.Store, c.Config.Location, c.Clock, c.Log)
	if err := c.Tracker.Load(ctx); err != nil {
		return errors.Wrap(err, "failed to load records")
	}

	if c.Config.AI.Enabled() {
		client, err := llm.NewOpenAIClient(llm.Config{
			Model:       c.Config.AI.OpenAIModel,
			APIKey:      c.Config.AI.OpenAIKey,
			BaseURL:     c.Config.AI.BaseURL,
			Temperature: c.Config.AI.Temperature,
			MaxTokens:   c.Config.AI.MaxTokens,
			Timeout:     c.Config.AI.Timeout,
		})
		if err != nil {
			// narratives still work from rules
			c.Log.Warn("LLM disabled", "error", err)
		} else {
			c.LLM = client
		}
	}

	c.Usage = usage.NewService(c.Clock, c.Log)
	c.Insights = app.NewInsightsService(c.Tracker, ta, cc, rf, c.Clock, c.Log)
	c.Narrator = app.NewNarrator(c.LLM, app.NarratorConfig{
		Model:     c.Config.AI.OpenAIModel,
		MaxTokens: c.Config.AI.MaxTokens,
		CacheTTL:  c.Config.AI.CacheTTL,
	}, c.Clock, c.Log)
	c.Narrator.SetUsageRecorder(c.Usage)
	c.Reports = app.NewReportService(c.Tracker, c.Insights, c.Narrator, c.Log)
	c.Workbook = excel.NewWorkbook(c.Config.Location, c.Log)
	return nil
}

// APIServer builds the HTTP API over the container's services
func (c *Container) APIServer() *api.Server {
	return api.NewServer(api.Services{
		Tracker:  c.Tracker,
		Insights: c.Insights,
		Narrator: c.Narrator,
		Reports:  c.Reports,
		Usage:    c.Usage,
	}, c.Log)
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.SQL != nil {
		if err := c.SQL.Close(); err != nil {
			return errors.DatabaseError("failed to close storage", err)
		}
		c.SQL = nil
	}
	return nil
}
