package collection

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/varoOP/cardvault/internal/domain"
)

// Manager is the in-memory collection, keyed by (card id, foil)
type Manager struct {
	log    zerolog.Logger
	policy domain.DuplicatePolicy

	mu      sync.Mutex
	entries map[domain.CollectionKey]domain.CollectionEntry
}

var _ domain.CollectionStore = (*Manager)(nil)

func NewManager(log zerolog.Logger, policy domain.DuplicatePolicy) *Manager {
	if policy == "" {
		policy = domain.DuplicatePolicySum
	}

	return &Manager{
		log:     log.With().Str("module", "collection").Logger(),
		policy:  policy,
		entries: make(map[domain.CollectionKey]domain.CollectionEntry),
	}
}

// Set stores entry, replacing any entry with the same key
func (m *Manager) Set(entry domain.CollectionEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[entry.Key()] = entry
}

// NewBatch starts an import pass
func (m *Manager) NewBatch() domain.CollectionBatch {
	return &batch{m: m, seen: make(map[domain.CollectionKey]int)}
}

// batch tracks the quantities written by one import, guarded by m.mu
type batch struct {
	m    *Manager
	seen map[domain.CollectionKey]int
}

// Add stores entry. A key already added in this batch keeps its first entry
// with the quantities summed, or is replaced under the overwrite policy.
func (b *batch) Add(entry domain.CollectionEntry) {
	b.m.mu.Lock()
	defer b.m.mu.Unlock()

	key := entry.Key()
	if qty, ok := b.seen[key]; ok && b.m.policy == domain.DuplicatePolicySum {
		if existing, ok := b.m.entries[key]; ok {
			existing.Quantity = qty + entry.Quantity
			entry = existing
		} else {
			entry.Quantity += qty
		}
		b.m.log.Trace().Str("card_id", entry.CardID).Int("quantity", entry.Quantity).Msg("summed duplicate entry")
	}

	b.seen[key] = entry.Quantity
	b.m.entries[key] = entry
}

// Entries returns the collection ordered by set, collector number and foil
func (m *Manager) Entries() []domain.CollectionEntry {
	m.mu.Lock()
	out := make([]domain.CollectionEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SetCode != b.SetCode {
			return a.SetCode < b.SetCode
		}
		if a.CollectorNumber != b.CollectorNumber {
			return domain.CollectorLess(a.CollectorNumber, b.CollectorNumber)
		}
		if a.Foil != b.Foil {
			return !a.Foil
		}
		return a.CardID < b.CardID
	})

	return out
}

// Summary counts cards, distinct lines and sets, ignoring empty lines
func (m *Manager) Summary() domain.CollectionSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	var s domain.CollectionSummary
	sets := make(map[string]struct{})
	for _, e := range m.entries {
		if e.Quantity <= 0 {
			continue
		}
		s.TotalCards += e.Quantity
		s.UniqueCards++
		sets[e.SetCode] = struct{}{}
	}
	s.SetsRepresented = len(sets)

	return s
}

// Clear empties the collection
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[domain.CollectionKey]domain.CollectionEntry)
}
