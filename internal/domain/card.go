package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Provenance tells where a resolved card came from
type Provenance string

const (
	ProvenanceCache  Provenance = "cache"
	ProvenanceRemote Provenance = "remote"
)

// CardRecord is one denormalized print of a card.
// RawPayload holds the full upstream JSON so fields not modelled here are not lost.
type CardRecord struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	SetCode         string          `json:"set"`
	CollectorNumber string          `json:"collector_number"`
	SetName         string          `json:"set_name"`
	Rarity          string          `json:"rarity"`
	ImageURL        string          `json:"image_url,omitempty"`
	PriceUSD        string          `json:"price_usd,omitempty"`
	PriceUSDFoil    string          `json:"price_usd_foil,omitempty"`
	RawPayload      json.RawMessage `json:"-"`
}

// scryfallCard mirrors the subset of the upstream card object we read
type scryfallCard struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Set             string `json:"set"`
	CollectorNumber string `json:"collector_number"`
	SetName         string `json:"set_name"`
	Rarity          string `json:"rarity"`
	ImageURIs       struct {
		Small  string `json:"small"`
		Normal string `json:"normal"`
	} `json:"image_uris"`
	CardFaces []struct {
		ImageURIs struct {
			Small  string `json:"small"`
			Normal string `json:"normal"`
		} `json:"image_uris"`
	} `json:"card_faces"`
	Prices struct {
		USD     *string `json:"usd"`
		USDFoil *string `json:"usd_foil"`
	} `json:"prices"`
}

// ParseCardRecord decodes an upstream card object and keeps the raw payload
func ParseCardRecord(raw []byte) (CardRecord, error) {
	var c scryfallCard
	if err := json.Unmarshal(raw, &c); err != nil {
		return CardRecord{}, err
	}

	image := c.ImageURIs.Small
	if image == "" && len(c.CardFaces) > 0 {
		image = c.CardFaces[0].ImageURIs.Small
	}

	rec := CardRecord{
		ID:              c.ID,
		Name:            c.Name,
		SetCode:         strings.ToLower(c.Set),
		CollectorNumber: c.CollectorNumber,
		SetName:         c.SetName,
		Rarity:          c.Rarity,
		ImageURL:        image,
		RawPayload:      append(json.RawMessage(nil), raw...),
	}
	if c.Prices.USD != nil {
		rec.PriceUSD = *c.Prices.USD
	}
	if c.Prices.USDFoil != nil {
		rec.PriceUSDFoil = *c.Prices.USDFoil
	}

	return rec, nil
}

// CacheMetadata describes the last bulk snapshot loaded for a catalog type
type CacheMetadata struct {
	DataType     string
	DownloadURL  string
	UpdatedAt    time.Time
	SizeBytes    int64
	VersionToken string
}

// Fresh reports whether the snapshot is younger than ttl at now
func (m CacheMetadata) Fresh(now time.Time, ttl time.Duration) bool {
	return !m.UpdatedAt.IsZero() && now.Sub(m.UpdatedAt) < ttl
}

// CacheStats summarizes the local catalog
type CacheStats struct {
	TotalCards int        `json:"total_cards"`
	TotalSets  int        `json:"total_sets"`
	LastUpdate *time.Time `json:"last_update"`
	IsValid    bool       `json:"cache_valid"`
}

// SetCompletion reports how much of a set is available locally
type SetCompletion struct {
	SetCode        string `json:"set_code"`
	CachedCards    int    `json:"cached_cards"`
	CacheAvailable bool   `json:"cache_available"`
}

// CardSet is an entry of the remote set list
type CardSet struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	SetType    string `json:"set_type"`
	CardCount  int    `json:"card_count"`
	ReleasedAt string `json:"released_at"`
}

// CollectorLess orders collector numbers numerically first ("2" < "10" < "10a"),
// falling back to a lexicographic comparison. Numbers without a leading digit
// sort after all numeric ones.
func CollectorLess(a, b string) bool {
	na, sa, oka := splitCollector(a)
	nb, sb, okb := splitCollector(b)

	switch {
	case oka && !okb:
		return true
	case !oka && okb:
		return false
	case oka && okb:
		if na != nb {
			return na < nb
		}
		if sa != sb {
			return sa < sb
		}
		return a < b
	}

	return a < b
}

func splitCollector(s string) (int, string, bool) {
	i := 0
	for i < len(s) && unicode.IsDigit(rune(s[i])) {
		i++
	}
	if i == 0 {
		return 0, s, false
	}

	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, s, false
	}

	return n, s[i:], true
}
