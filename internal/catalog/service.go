package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/cardvault/internal/domain"
)

// playableSetTypes are the set types shown in the set browser
var playableSetTypes = map[string]bool{
	"core":             true,
	"expansion":        true,
	"masters":          true,
	"commander":        true,
	"planechase":       true,
	"archenemy":        true,
	"from_the_vault":   true,
	"spellbook":        true,
	"premium_deck":     true,
	"duel_deck":        true,
	"draft_innovation": true,
	"treasure_chest":   true,
	"arsenal":          true,
	"box":              true,
	"funny":            true,
	"starter":          true,
	"supplemental":     true,
}

// Remote is the part of the card source the catalog reads
type Remote interface {
	ListSets(ctx context.Context) ([]domain.CardSet, error)
	FetchSetCards(ctx context.Context, setCode string) ([]domain.CardRecord, error)
}

type Service interface {
	Sets(ctx context.Context) []domain.CardSet
	SetCards(ctx context.Context, setCode string) ([]domain.CardRecord, error)
	SetCompletion(ctx context.Context, setCode string) (*domain.SetCompletion, error)
}

type service struct {
	log    zerolog.Logger
	cache  domain.CardCache
	remote Remote
	now    func() time.Time
}

func NewService(log zerolog.Logger, cache domain.CardCache, remote Remote) Service {
	return &service{
		log:    log.With().Str("module", "catalog").Logger(),
		cache:  cache,
		remote: remote,
		now:    time.Now,
	}
}

// Sets lists released playable sets, newest first. A remote failure yields
// an empty list.
func (s *service) Sets(ctx context.Context) []domain.CardSet {
	all, err := s.remote.ListSets(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to list sets")
		return []domain.CardSet{}
	}

	today := s.now().UTC().Format("2006-01-02")
	sets := make([]domain.CardSet, 0, len(all))
	for _, set := range all {
		if !playableSetTypes[set.SetType] || set.CardCount <= 0 {
			continue
		}
		// released_at is YYYY-MM-DD so string order is date order
		if set.ReleasedAt != "" && set.ReleasedAt > today {
			continue
		}
		sets = append(sets, set)
	}

	sort.SliceStable(sets, func(i, j int) bool {
		return sets[i].ReleasedAt > sets[j].ReleasedAt
	})

	s.log.Debug().Int("total", len(all)).Int("kept", len(sets)).Msg("listed sets")

	return sets
}

// SetCards returns the cached prints of setCode. When nothing is cached the
// set is crawled remotely and stored first.
func (s *service) SetCards(ctx context.Context, setCode string) ([]domain.CardRecord, error) {
	cards, err := s.cache.ListSetCards(ctx, setCode)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list cached set cards")
	}
	if len(cards) > 0 {
		return cards, nil
	}

	s.log.Info().Str("set", setCode).Msg("set not cached, fetching from remote")

	cards, err = s.remote.FetchSetCards(ctx, setCode)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch set %s", setCode)
	}

	if len(cards) > 0 {
		if _, err := s.cache.UpsertBatch(ctx, cards); err != nil {
			s.log.Warn().Err(err).Str("set", setCode).Msg("failed to cache set cards")
		}
	}

	sort.SliceStable(cards, func(i, j int) bool {
		return domain.CollectorLess(cards[i].CollectorNumber, cards[j].CollectorNumber)
	})

	return cards, nil
}

func (s *service) SetCompletion(ctx context.Context, setCode string) (*domain.SetCompletion, error) {
	c, err := s.cache.SetCompletion(ctx, setCode)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get set completion")
	}
	return c, nil
}
