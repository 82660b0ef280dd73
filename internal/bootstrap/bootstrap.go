// Package bootstrap assembles a running session from configuration. Both
// the server and the check tool start from here.
package bootstrap

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/okian/fakemeh/internal/adapters/backend"
	"github.com/okian/fakemeh/internal/adapters/repository"
	service "github.com/okian/fakemeh/internal/app"
	"github.com/okian/fakemeh/internal/config"
	"github.com/okian/fakemeh/internal/domain/dedupe"
	"github.com/okian/fakemeh/internal/domain/heatmap"
	"github.com/okian/fakemeh/internal/domain/progression"
	"github.com/okian/fakemeh/pkg/logger"
)

// App holds the wired components.
type App struct {
	Config  *config.Config
	Store   *repository.ProgressStore
	Backend *backend.Client
	Session *service.Session
}

// New opens the progress store, loads progression and builds the session.
// The session is not started.
func New(ctx context.Context, cfg *config.Config, l logger.Logger) (*App, error) {
	store, err := repository.Open(ctx, cfg.StoreDriver,
		repository.WithSQLitePath(cfg.SQLitePath),
		repository.WithRedisURL(cfg.RedisURL),
		repository.WithKeyPrefix(cfg.KeyPrefix),
		repository.WithLogger(l.Named("store")),
	)
	if err != nil {
		return nil, eris.Wrap(err, "open progress store")
	}

	tracker, err := progression.Load(ctx, store,
		progression.WithLeaderboardSize(cfg.LeaderboardSize),
		progression.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))),
		progression.WithLogger(l.Named("progression")),
	)
	if err != nil {
		_ = store.Close()
		return nil, eris.Wrap(err, "load progression")
	}

	client := backend.NewClient(backendOptions(cfg, l)...)

	session := service.New(client, tracker,
		service.WithMailboxCapacity(cfg.MailboxCapacity),
		service.WithRevealDelay(cfg.RevealDelay()),
		service.WithRenderer(heatmap.NewRenderer(heatmap.WithRadius(cfg.HeatmapRadius))),
		service.WithOverlayOpacity(cfg.OverlayOpacity),
		service.WithDisplayWidth(cfg.DisplayWidth),
		service.WithMaxImagePixels(cfg.HeatmapMaxPixels),
		service.WithLogger(l.Named("session")),
	)

	return &App{Config: cfg, Store: store, Backend: client, Session: session}, nil
}

// backendOptions applies the base URL first so that explicit endpoint URLs
// override it.
func backendOptions(cfg *config.Config, l logger.Logger) []backend.Option {
	return []backend.Option{
		backend.WithBaseURL(cfg.BackendURL),
		backend.WithAnalysisURL(cfg.AnalysisURL),
		backend.WithFactCheckURL(cfg.FactCheckURL),
		backend.WithAuthURL(cfg.AuthURL),
		backend.WithTimeout(cfg.BackendTimeout()),
		backend.WithLogger(l.Named("backend")),
	}
}

// Close stops the session and releases the store.
func (a *App) Close(ctx context.Context) error {
	stopErr := a.Session.Stop(ctx)
	closeErr := a.Store.Close()
	if stopErr != nil {
		return eris.Wrap(stopErr, "stop session")
	}
	if closeErr != nil {
		return eris.Wrap(closeErr, "close store")
	}
	return nil
}
