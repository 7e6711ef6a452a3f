package server

import (
	"context"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/varoOP/cardvault/internal/catalog"
	"github.com/varoOP/cardvault/internal/collection"
	"github.com/varoOP/cardvault/internal/domain"
	"github.com/varoOP/cardvault/internal/resolver"
)

const maxUploadSize = 32 << 20

// Importer starts asynchronous CSV imports
type Importer interface {
	Start(ctx context.Context, content []byte) string
}

// Jobs exposes import progress snapshots
type Jobs interface {
	Get(jobID string) (domain.ImportJob, uint64, bool)
	Wait(ctx context.Context, jobID string, afterVersion uint64) (domain.ImportJob, uint64, error)
	Retire(jobID string, grace time.Duration)
}

// Collection is the inventory the API reads, edits and exports
type Collection interface {
	Set(entry domain.CollectionEntry)
	Entries() []domain.CollectionEntry
	Summary() domain.CollectionSummary
	Clear()
	Export(w io.Writer, format collection.Format) error
}

// CacheStats reports on the local catalog
type CacheStats interface {
	Stats(ctx context.Context, dataType string, ttl time.Duration) (*domain.CacheStats, error)
	GetByID(ctx context.Context, id string) (*domain.CardRecord, error)
}

// Pinger reports whether the card database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Refresher starts bulk refreshes
type Refresher interface {
	RefreshInBackground(force bool)
	Running() bool
}

// Deps are the services behind the API
type Deps struct {
	Catalog    catalog.Service
	Resolver   resolver.Service
	Importer   Importer
	Jobs       Jobs
	Collection Collection
	Cache      CacheStats
	Refresher  Refresher
	DB         Pinger
}

type Server struct {
	log    zerolog.Logger
	config *domain.Config
	deps   Deps
	app    *fiber.App

	// longest time a progress request may wait for a newer snapshot
	maxWait time.Duration
	// how long a finished job stays readable after it was first served
	retireAfter time.Duration
}

func NewServer(log zerolog.Logger, config *domain.Config, deps Deps) *Server {
	s := &Server{
		log:         log.With().Str("module", "server").Logger(),
		config:      config,
		deps:        deps,
		maxWait:     30 * time.Second,
		retireAfter: time.Minute,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "CardVault",
		BodyLimit:             maxUploadSize,
		ReadTimeout:           30 * time.Second,
		IdleTimeout:           60 * time.Second,
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})

	s.app.Use(recover.New())
	s.routes()

	return s
}

func (s *Server) routes() {
	api := s.app.Group("/api")

	api.Get("/health", s.health)

	api.Get("/sets", s.listSets)
	api.Get("/sets/:code/cards", s.setCards)
	api.Get("/sets/:code/completion", s.setCompletion)

	api.Get("/cards/resolve", s.resolveCard)

	api.Post("/import", s.startImport)
	api.Get("/import/:id/progress", s.importProgress)

	api.Get("/collection", s.getCollection)
	api.Get("/collection/export", s.exportCollection)
	api.Post("/collection/cards", s.addCard)
	api.Post("/collection/clear", s.clearCollection)

	api.Get("/cache/stats", s.cacheStats)
	api.Post("/cache/refresh", s.refreshCache)
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves the API on the configured address until Shutdown
func (s *Server) Listen() error {
	s.log.Info().Str("addr", s.config.ListenAddr).Msg("Starting HTTP server")
	return s.app.Listen(s.config.ListenAddr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	if code >= fiber.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
