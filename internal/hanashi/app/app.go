// Package app wires the Hanashi components together and runs them.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bdobrica/hanashi/internal/hanashi/commands"
	"github.com/bdobrica/hanashi/internal/hanashi/completion"
	"github.com/bdobrica/hanashi/internal/hanashi/config"
	"github.com/bdobrica/hanashi/internal/hanashi/engine"
	"github.com/bdobrica/hanashi/internal/hanashi/impression"
	"github.com/bdobrica/hanashi/internal/hanashi/matrix"
	"github.com/bdobrica/hanashi/internal/hanashi/metrics"
	"github.com/bdobrica/hanashi/internal/hanashi/prompt"
	"github.com/bdobrica/hanashi/internal/hanashi/store"
	"github.com/bdobrica/hanashi/internal/hanashi/trigger"
)

// App represents the Hanashi application
type App struct {
	config       *config.Config
	store        *store.Store
	matrix       *matrix.Client
	worker       *impression.Worker
	dispatcher   *dispatcher
	healthServer *HealthServer
}

// New builds every component from cfg. Nothing is started until Run.
func New(cfg *config.Config) (*App, error) {
	if err := cfg.ValidateMatrix(); err != nil {
		return nil, err
	}

	slog.Info("opening database", "path", cfg.DatabasePath)
	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	slog.Info("connecting to Matrix", "homeserver", cfg.Matrix.Homeserver)
	matrixClient, err := matrix.New(&matrix.Config{
		Homeserver:  cfg.Matrix.Homeserver,
		UserID:      cfg.Matrix.UserID,
		AccessToken: cfg.Matrix.AccessToken,
		Rooms:       cfg.Matrix.Rooms,
		DB:          st.DB(),
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize Matrix client: %w", err)
	}

	m := metrics.New()
	completer := completion.New(completion.Config{Endpoint: cfg.APIURL, APIKey: cfg.APIKey})
	builder := prompt.NewBuilder(cfg, st)

	worker := impression.NewWorker(&impression.Updater{
		Prompts:     builder,
		Completer:   completer,
		Store:       st,
		Model:       cfg.ImpressionModel,
		MaxTokens:   cfg.Impression.MaxTokens,
		Temperature: cfg.Impression.Temperature,
		Timeout:     cfg.Impression.Timeout,
		Metrics:     m,
	}, impression.WorkerOptions{
		QueueSize:     cfg.Impression.QueueSize,
		RatePerMinute: cfg.Impression.RatePerMinute,
		Metrics:       m,
	})

	eng := engine.New(engine.Deps{
		Transport:   matrixClient,
		State:       st,
		Prompts:     builder,
		Completer:   completer,
		Policy:      trigger.NewPolicy(cfg.BaseReplyProbability, cfg.MinInterval()),
		Impressions: worker,
		Metrics:     m,
	}, engine.Options{
		BotID:                 cfg.Matrix.UserID,
		ChatModel:             cfg.ChatModel,
		MaxTokens:             cfg.MaxTokens,
		ContextLength:         cfg.ContextLength,
		ReplyTimeout:          cfg.ReplyTimeout,
		ImpressionMinMessages: cfg.ImpressionMinMessages,
	})

	router := commands.NewRouter("/hanashi", "/ai_chat", "/aichat")
	commands.NewHandlers(st).Register(router)

	a := &App{
		config:     cfg,
		store:      st,
		matrix:     matrixClient,
		worker:     worker,
		dispatcher: newDispatcher(router, eng, matrixClient, cfg.IsAdmin),
	}
	if cfg.HTTPAddr != "" {
		a.healthServer = NewHealthServer(cfg.HTTPAddr, st)
		a.healthServer.Handle("/metrics", m.Handler())
	}
	return a, nil
}

// Run starts all components and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.healthServer != nil {
		if err := a.healthServer.Start(ctx); err != nil {
			slog.Warn("health server failed to start; continuing without it", "err", err)
		}
	}

	a.worker.Start()

	slog.Info("starting Matrix sync")
	if err := a.matrix.Start(ctx, a.dispatcher.dispatch); err != nil {
		return fmt.Errorf("failed to start Matrix client: %w", err)
	}

	slog.Info("Hanashi is running", "user_id", a.matrix.UserID())
	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}

// Stop shuts everything down in dependency order: no new events, in-flight
// events finish, queued impression jobs drain, then the database closes.
func (a *App) Stop() {
	slog.Info("stopping Matrix client")
	a.matrix.Stop()

	start := time.Now()
	a.dispatcher.wait()
	slog.Info("in-flight events finished", "elapsed", time.Since(start).String())

	slog.Info("draining impression worker")
	a.worker.Stop()

	if a.healthServer != nil {
		slog.Info("stopping health server")
		a.healthServer.Stop()
	}

	slog.Info("closing database")
	a.store.Close()
}
