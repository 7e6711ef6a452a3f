package resolver

import (
	"context"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/cardvault/internal/domain"
	"github.com/varoOP/cardvault/internal/setcode"
)

// Remote is the subset of the remote catalog used for resolution
type Remote interface {
	GetByCollectorNumber(ctx context.Context, setCode, number string) (*domain.CardRecord, error)
	GetByExactName(ctx context.Context, name, setCode string) (*domain.CardRecord, error)
	GetByFuzzyName(ctx context.Context, name, setCode string) (*domain.CardRecord, error)
	FreeTextSearch(ctx context.Context, query string) ([]domain.CardRecord, error)
}

type Service interface {
	// Resolve finds the card described by a free-form name, set reference and
	// optional collector number. Returns domain.ErrNotFound when every tier misses.
	Resolve(ctx context.Context, rawName, rawSet, collectorNumber string) (*domain.CardRecord, domain.Provenance, error)
}

type service struct {
	log        zerolog.Logger
	cache      domain.CardCache
	remote     Remote
	normalizer *setcode.Normalizer
}

func NewService(log zerolog.Logger, cache domain.CardCache, remote Remote, normalizer *setcode.Normalizer) Service {
	if normalizer == nil {
		normalizer = setcode.New(nil)
	}

	return &service{
		log:        log.With().Str("module", "resolver").Logger(),
		cache:      cache,
		remote:     remote,
		normalizer: normalizer,
	}
}

var parenthetical = regexp.MustCompile(`\([^()]*\)`)

// SanitizeName strips parenthetical segments, nested ones included, and
// collapses whitespace: "Zendikar (FDN) (87)" becomes "Zendikar".
func SanitizeName(raw string) string {
	s := raw
	for {
		stripped := parenthetical.ReplaceAllString(s, " ")
		if stripped == s {
			break
		}
		s = stripped
	}

	return strings.Join(strings.Fields(s), " ")
}

func (s *service) Resolve(ctx context.Context, rawName, rawSet, collectorNumber string) (*domain.CardRecord, domain.Provenance, error) {
	name := SanitizeName(rawName)
	if name == "" {
		return nil, "", domain.ErrNotFound
	}

	setCode := s.normalizer.Normalize(rawSet)
	number := strings.TrimSpace(collectorNumber)

	log := s.log.With().Str("name", name).Str("set", setCode).Str("number", number).Logger()

	if card := s.fromCache(ctx, log, name, setCode, number); card != nil {
		log.Trace().Str("id", card.ID).Msg("resolved from cache")
		return card, domain.ProvenanceCache, nil
	}

	if card := s.fromRemote(ctx, log, name, setCode, number, strings.TrimSpace(rawSet)); card != nil {
		if _, err := s.cache.UpsertBatch(ctx, []domain.CardRecord{*card}); err != nil {
			log.Warn().Err(err).Str("id", card.ID).Msg("failed to cache remote card")
		}
		log.Debug().Str("id", card.ID).Msg("resolved from remote")
		return card, domain.ProvenanceRemote, nil
	}

	log.Debug().Msg("card not found")
	return nil, "", domain.ErrNotFound
}

func (s *service) fromCache(ctx context.Context, log zerolog.Logger, name, setCode, number string) *domain.CardRecord {
	if setCode != "" {
		if number != "" {
			card, err := s.cache.LookupExact(ctx, name, setCode, number)
			if err != nil {
				log.Warn().Err(err).Msg("cache exact lookup failed")
			} else if card != nil {
				return card
			}
		}

		card, err := s.cache.LookupExact(ctx, name, setCode, "")
		if err != nil {
			log.Warn().Err(err).Msg("cache exact lookup failed")
		} else if card != nil {
			return card
		}
	}

	cards, err := s.cache.LookupFuzzy(ctx, name, setCode)
	if err != nil {
		log.Warn().Err(err).Msg("cache fuzzy lookup failed")
		return nil
	}
	if len(cards) > 0 {
		return &cards[0]
	}

	return nil
}

func (s *service) fromRemote(ctx context.Context, log zerolog.Logger, name, setCode, number, rawSet string) *domain.CardRecord {
	if s.remote == nil {
		return nil
	}

	if number != "" && setCode != "" {
		card, err := s.remote.GetByCollectorNumber(ctx, setCode, number)
		if ok := s.check(log, "collector number", err); ok && card != nil && sameName(card.Name, name) {
			return card
		}
	}

	card, err := s.remote.GetByExactName(ctx, name, setCode)
	if s.check(log, "exact name", err) && card != nil {
		return card
	}

	card, err = s.remote.GetByFuzzyName(ctx, name, setCode)
	if s.check(log, "fuzzy name", err) && card != nil {
		return card
	}

	query := `"` + name + `"`
	if rawSet != "" {
		query += " " + rawSet
	}
	cards, err := s.remote.FreeTextSearch(ctx, query)
	if s.check(log, "free text", err) && len(cards) > 0 {
		return &cards[0]
	}

	return nil
}

// check logs a failed remote tier and reports whether the result is usable
func (s *service) check(log zerolog.Logger, tier string, err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, domain.ErrNotFound) {
		log.Trace().Str("tier", tier).Msg("remote miss")
	} else {
		log.Warn().Err(err).Str("tier", tier).Msg("remote lookup failed")
	}
	return false
}

// sameName compares case-insensitively, accepting either face of a double-faced card
func sameName(cardName, name string) bool {
	if strings.EqualFold(cardName, name) {
		return true
	}
	for _, face := range strings.Split(cardName, " // ") {
		if strings.EqualFold(face, name) {
			return true
		}
	}
	return false
}
