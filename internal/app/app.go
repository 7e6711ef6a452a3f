package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/varoOP/cardvault/internal/catalog"
	"github.com/varoOP/cardvault/internal/collection"
	"github.com/varoOP/cardvault/internal/config"
	"github.com/varoOP/cardvault/internal/database"
	"github.com/varoOP/cardvault/internal/domain"
	"github.com/varoOP/cardvault/internal/importer"
	"github.com/varoOP/cardvault/internal/logger"
	"github.com/varoOP/cardvault/internal/notification"
	"github.com/varoOP/cardvault/internal/progress"
	"github.com/varoOP/cardvault/internal/refresh"
	"github.com/varoOP/cardvault/internal/repository"
	"github.com/varoOP/cardvault/internal/resolver"
	"github.com/varoOP/cardvault/internal/scryfall"
	"github.com/varoOP/cardvault/internal/server"
	"github.com/varoOP/cardvault/internal/setcode"
)

// App represents the main application with all dependencies initialized
type App struct {
	log    zerolog.Logger
	config *domain.Config
	db     *database.DB

	cards      *database.CardRepo
	remote     *scryfall.Client
	resolver   resolver.Service
	refresher  refresh.Service
	catalog    catalog.Service
	collection *collection.Manager
	jobs       *progress.Broker
	pipeline   *importer.Pipeline
	runner     *importer.Runner
}

// NewApp creates a new application instance from the loaded configuration
func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return New(logger.NewLoggerWithLevel(logger.ParseLevel(cfg.LogLevel)), cfg)
}

// New wires every service on top of cfg
func New(log zerolog.Logger, cfg *domain.Config) (*App, error) {
	ctx := context.Background()

	db, err := database.NewDB(cfg.DBPath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	normalizer, err := loadNormalizer(ctx, log, cfg.SetAliasesPath)
	if err != nil {
		db.Close()
		return nil, err
	}

	cards := database.NewCardRepo(log, db)
	remote := scryfall.NewClient(log, cfg.APIBaseURL, cfg.RequestDelay)
	notifier := notification.NewService(log, cfg.DiscordWebhookURL)

	res := resolver.NewService(log, cards, remote, normalizer)
	refresher := refresh.NewService(log, cfg, cards, remote, notifier)
	coll := collection.NewManager(log, cfg.DuplicatePolicy)
	jobs := progress.NewBroker(log)
	pipeline := importer.NewPipeline(log, res, coll, refresher, cfg.RefreshPolicy)

	return &App{
		log:        log,
		config:     cfg,
		db:         db,
		cards:      cards,
		remote:     remote,
		resolver:   res,
		refresher:  refresher,
		catalog:    catalog.NewService(log, cards, remote),
		collection: coll,
		jobs:       jobs,
		pipeline:   pipeline,
		runner:     importer.NewRunner(log, pipeline, jobs),
	}, nil
}

func loadNormalizer(ctx context.Context, log zerolog.Logger, path string) (*setcode.Normalizer, error) {
	if path == "" {
		return setcode.New(nil), nil
	}

	aliases, err := repository.NewFileRepository(log).GetSetAliases(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load set aliases: %w", err)
	}

	n := setcode.New(aliases.Map())
	log.Info().Str("path", path).Int("aliases", n.Len()).Msg("Loaded set aliases")
	return n, nil
}

func (a *App) Close() error {
	return a.db.Close()
}

func (a *App) Log() zerolog.Logger {
	return a.log
}

func (a *App) Config() *domain.Config {
	return a.config
}

// Serve runs the HTTP API and the idle job reaper until ctx is done
func (a *App) Serve(ctx context.Context) error {
	srv := server.NewServer(a.log, a.config, server.Deps{
		Catalog:    a.catalog,
		Resolver:   a.resolver,
		Importer:   a.runner,
		Jobs:       a.jobs,
		Collection: a.collection,
		Cache:      a.cards,
		Refresher:  a.refresher,
		DB:         a.db,
	})

	idle := a.config.JobIdleTTL
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	go a.jobs.RunReaper(ctx, idle/2, idle)

	if a.config.RefreshPolicy != domain.RefreshPolicyNever {
		a.refresher.RefreshInBackground(false)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.log.Info().Msg("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	}
}

// Import runs a CSV file through the pipeline on the calling goroutine
func (a *App) Import(ctx context.Context, path string, emit importer.EmitFunc) (domain.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.ImportResult{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return a.pipeline.RunCSV(ctx, f, emit), nil
}

// ExportCollection writes the collection built by previous imports
func (a *App) ExportCollection(w io.Writer, format collection.Format) error {
	return a.collection.Export(w, format)
}

func (a *App) CollectionSummary() domain.CollectionSummary {
	return a.collection.Summary()
}

// Refresh reloads the bulk catalog in the foreground
func (a *App) Refresh(ctx context.Context, force bool) (*domain.RefreshStats, error) {
	return a.refresher.Refresh(ctx, force)
}

func (a *App) Stats(ctx context.Context) (*domain.CacheStats, error) {
	return a.cards.Stats(ctx, a.config.BulkDataType, a.config.CacheTTL)
}

func (a *App) Resolve(ctx context.Context, name, set, number string) (*domain.CardRecord, domain.Provenance, error) {
	return a.resolver.Resolve(ctx, name, set, number)
}
