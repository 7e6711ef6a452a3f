package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/varoOP/cardvault/internal/collection"
	"github.com/varoOP/cardvault/internal/domain"
)

type resolveResponse struct {
	Card       *domain.CardRecord `json:"card"`
	Provenance domain.Provenance  `json:"provenance"`
}

type progressResponse struct {
	domain.ImportJob
	Version uint64 `json:"version"`
}

type cacheStatsResponse struct {
	*domain.CacheStats
	DataType       string `json:"data_type"`
	RefreshRunning bool   `json:"refresh_running"`
}

type addCardRequest struct {
	CardID    string             `json:"card_id"`
	Card      *domain.CardRecord `json:"card"`
	Quantity  int                `json:"quantity"`
	Foil      bool               `json:"foil"`
	Condition string             `json:"condition"`
	Language  string             `json:"language"`
}

type collectionResponse struct {
	Entries []domain.CollectionEntry `json:"entries"`
	Summary domain.CollectionSummary `json:"summary"`
}

func (s *Server) listSets(c *fiber.Ctx) error {
	return c.JSON(s.deps.Catalog.Sets(c.UserContext()))
}

func (s *Server) setCards(c *fiber.Ctx) error {
	code := strings.ToLower(c.Params("code"))

	cards, err := s.deps.Catalog.SetCards(c.UserContext(), code)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"set_code": code,
		"count":    len(cards),
		"cards":    cards,
	})
}

func (s *Server) setCompletion(c *fiber.Ctx) error {
	completion, err := s.deps.Catalog.SetCompletion(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(completion)
}

func (s *Server) resolveCard(c *fiber.Ctx) error {
	name := c.Query("name")
	if strings.TrimSpace(name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}

	card, provenance, err := s.deps.Resolver.Resolve(c.UserContext(), name, c.Query("set"), c.Query("number"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("Could not find card '%s' in set '%s'", name, c.Query("set")))
		}
		return err
	}

	return c.JSON(resolveResponse{Card: card, Provenance: provenance})
}

func (s *Server) startImport(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No file provided")
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".csv") {
		return fiber.NewError(fiber.StatusBadRequest, "File must be a CSV")
	}

	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "failed to open upload")
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return errors.Wrap(err, "failed to read upload")
	}

	jobID := s.deps.Importer.Start(c.UserContext(), content)
	s.log.Info().Str("job_id", jobID).Str("file", fh.Filename).Int("bytes", len(content)).Msg("import started")

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": jobID})
}

// importProgress returns the latest snapshot of a job. With ?after=<version>
// it waits, up to ?wait or the server maximum, for a newer one. A terminal
// snapshot stays readable for retireAfter once it has been served.
func (s *Server) importProgress(c *fiber.Ctx) error {
	jobID := c.Params("id")

	job, version, err := s.progress(c, jobID)
	if err != nil {
		return err
	}

	if job.Status.Terminal() {
		s.deps.Jobs.Retire(jobID, s.retireAfter)
	}

	return c.JSON(progressResponse{ImportJob: job, Version: version})
}

func (s *Server) progress(c *fiber.Ctx, jobID string) (domain.ImportJob, uint64, error) {
	notFound := fiber.NewError(fiber.StatusNotFound, "Job not found")

	after := c.Query("after")
	if after == "" {
		job, version, ok := s.deps.Jobs.Get(jobID)
		if !ok {
			return job, 0, notFound
		}
		return job, version, nil
	}

	afterVersion, err := strconv.ParseUint(after, 10, 64)
	if err != nil {
		return domain.ImportJob{}, 0, fiber.NewError(fiber.StatusBadRequest, "after must be a version number")
	}

	wait := s.maxWait
	if w := c.Query("wait"); w != "" {
		d, err := time.ParseDuration(w)
		if err != nil || d <= 0 {
			return domain.ImportJob{}, 0, fiber.NewError(fiber.StatusBadRequest, "wait must be a positive duration")
		}
		wait = min(d, s.maxWait)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), wait)
	defer cancel()

	job, version, err := s.deps.Jobs.Wait(ctx, jobID, afterVersion)
	switch {
	case err == nil:
		return job, version, nil
	case errors.Is(err, domain.ErrJobNotFound):
		return job, 0, notFound
	case errors.Is(err, context.DeadlineExceeded):
		job, version, ok := s.deps.Jobs.Get(jobID)
		if !ok {
			return job, 0, notFound
		}
		return job, version, nil
	default:
		return job, 0, err
	}
}

func (s *Server) getCollection(c *fiber.Ctx) error {
	return c.JSON(collectionResponse{
		Entries: s.deps.Collection.Entries(),
		Summary: s.deps.Collection.Summary(),
	})
}

func (s *Server) exportCollection(c *fiber.Ctx) error {
	format, err := collection.ParseFormat(c.Query("format"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var buf bytes.Buffer
	if err := s.deps.Collection.Export(&buf, format); err != nil {
		return err
	}

	c.Attachment(fmt.Sprintf("collection_%s.csv", format))
	c.Set(fiber.HeaderContentType, "text/csv")
	return c.Send(buf.Bytes())
}

// addCard sets the quantity of one print in the collection. The print is
// taken from the cache by id, or resolved from the name and set of the card
// payload.
func (s *Server) addCard(c *fiber.Ctx) error {
	var req addCardRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid card payload")
	}
	if req.Quantity <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "quantity must be positive")
	}

	card, err := s.lookupCard(c.UserContext(), req)
	if err != nil {
		return err
	}

	entry := domain.NewCollectionEntry(*card, req.Quantity, req.Foil, req.Condition, req.Language)
	s.deps.Collection.Set(entry)
	s.log.Debug().Str("card_id", entry.CardID).Int("quantity", entry.Quantity).Bool("foil", entry.Foil).Msg("card added")

	return c.JSON(fiber.Map{"status": "success", "entry": entry})
}

func (s *Server) lookupCard(ctx context.Context, req addCardRequest) (*domain.CardRecord, error) {
	id := req.CardID
	if id == "" && req.Card != nil {
		id = req.Card.ID
	}

	if id != "" {
		card, err := s.deps.Cache.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if card != nil {
			return card, nil
		}
	}

	if req.Card == nil || strings.TrimSpace(req.Card.Name) == "" {
		if id == "" {
			return nil, fiber.NewError(fiber.StatusBadRequest, "card_id or card is required")
		}
		return nil, fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("Could not find card '%s'", id))
	}

	card, _, err := s.deps.Resolver.Resolve(ctx, req.Card.Name, req.Card.SetCode, req.Card.CollectorNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("Could not find card '%s' in set '%s'", req.Card.Name, req.Card.SetCode))
		}
		return nil, err
	}

	return card, nil
}

func (s *Server) health(c *fiber.Ctx) error {
	if err := s.deps.DB.Ping(c.UserContext()); err != nil {
		s.log.Error().Err(err).Msg("database ping failed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) clearCollection(c *fiber.Ctx) error {
	s.deps.Collection.Clear()
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) cacheStats(c *fiber.Ctx) error {
	stats, err := s.deps.Cache.Stats(c.UserContext(), s.config.BulkDataType, s.config.CacheTTL)
	if err != nil {
		return err
	}

	return c.JSON(cacheStatsResponse{
		CacheStats:     stats,
		DataType:       s.config.BulkDataType,
		RefreshRunning: s.deps.Refresher.Running(),
	})
}

func (s *Server) refreshCache(c *fiber.Ctx) error {
	if s.deps.Refresher.Running() {
		return c.JSON(fiber.Map{"status": "running"})
	}

	force := c.QueryBool("force", true)
	s.deps.Refresher.RefreshInBackground(force)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "started"})
}
