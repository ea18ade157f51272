// Package app assembles the creation flow from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"cartoonify/internal/adapter/repo"
	"cartoonify/internal/catalog"
	"cartoonify/internal/domain"
	"cartoonify/internal/entitlement"
	"cartoonify/internal/flow"
	"cartoonify/internal/history"
	"cartoonify/internal/infra"
	"cartoonify/internal/processing"
	"cartoonify/internal/providers/image"
	"cartoonify/internal/storage"
)

// App is the wired object graph shared by the API server and the CLI.
type App struct {
	Config     *infra.Config
	Logger     zerolog.Logger
	Catalog    *catalog.Catalog
	Ledger     *entitlement.Ledger
	History    *history.Store
	Gallery    *storage.Gallery
	Controller *flow.Controller

	pool *pgxpool.Pool
}

// Option customises New.
type Option func(*options)

type options struct {
	processor image.Processor
	sink      flow.Sink
}

// WithProcessor replaces the configured processing backend.
func WithProcessor(p image.Processor) Option {
	return func(o *options) { o.processor = p }
}

// WithSink publishes controller events to s in addition to the log.
func WithSink(s flow.Sink) Option {
	return func(o *options) { o.sink = s }
}

// New wires every component. When cfg has a DATABASE_URL, history and
// entitlements are loaded from and written to PostgreSQL.
func New(ctx context.Context, cfg *infra.Config, logger zerolog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cat := catalog.Default()
	if cfg.StyleCatalogPath != "" {
		var err error
		cat, err = catalog.Load(cfg.StyleCatalogPath)
		if err != nil {
			return nil, err
		}
	}

	a := &App{Config: cfg, Logger: logger, Catalog: cat}

	var (
		historyRepo     domain.HistoryRepository
		entitlementRepo domain.EntitlementRepository
	)
	if cfg.PersistenceEnabled() {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		runner := infra.NewSQLRunner(pool, logger)
		if err := repo.EnsureSchema(ctx, runner); err != nil {
			a.Close()
			return nil, err
		}
		historyRepo = repo.NewHistoryRepository(runner)
		entitlementRepo = repo.NewEntitlementRepository(runner, repo.DefaultOwner)
	}

	a.Ledger = entitlement.NewLedger(entitlement.LedgerOptions{Repository: entitlementRepo, Logger: &logger})
	if err := a.Ledger.Load(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.History = history.NewStore(history.Options{Repository: historyRepo, Logger: &logger})
	if err := a.History.Load(ctx, cfg.HistoryLoadLimit); err != nil {
		a.Close()
		return nil, err
	}

	fs, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.Gallery = storage.NewGallery(fs)

	proc := o.processor
	if proc == nil {
		proc, err = newProcessor(cfg, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	var sink flow.Sink = flow.LogSink{Logger: logger}
	if o.sink != nil {
		sink = flow.Fanout{sink, o.sink}
	}

	a.Controller, err = flow.NewController(flow.Options{
		Catalog:     cat,
		Ledger:      a.Ledger,
		Submitter:   processing.NewSubmitter(proc, processing.Options{Timeout: cfg.ProcessingTimeout, Logger: &logger}),
		History:     a.History,
		Gallery:     a.Gallery,
		SavePolicy:  flow.Capped(flow.NewProbability(cfg.AdSaveProbability, nil), cfg.AdMinGap),
		SharePolicy: flow.Capped(flow.NewProbability(cfg.AdShareProbability, nil), cfg.AdMinGap),
		IdleTTL:     cfg.SessionIdleTTL,
		Sink:        sink,
		Logger:      &logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	logger.Info().
		Int("styles", len(cat.All())).
		Str("processor", cfg.Processor).
		Bool("persistence", cfg.PersistenceEnabled()).
		Int("history", a.History.Len()).
		Msg("app: ready")
	return a, nil
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}

func newProcessor(cfg *infra.Config, logger zerolog.Logger) (image.Processor, error) {
	synthetic := image.NewSynthetic(image.WithDelay(cfg.ProcessingDelay))
	if cfg.Processor != infra.ProcessorRemote {
		return synthetic, nil
	}
	remote, err := image.NewRemote(image.RemoteOptions{
		APIKey:         cfg.ProcessorAPIKey,
		BaseURL:        cfg.ProcessorBaseURL,
		Logger:         &logger,
		RequestTimeout: cfg.ProcessingTimeout,
		Fallback:       synthetic,
	})
	if err != nil {
		return nil, err
	}
	if !remote.HasCredentials() {
		logger.Warn().Msg("app: PROCESSOR_API_KEY missing, remote processor falls back to synthetic")
	}
	return remote, nil
}
