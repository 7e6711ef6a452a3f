package domain

const (
	DefaultCondition = "Near Mint"
	DefaultLanguage  = "English"
)

// CollectionKey identifies one inventory line
type CollectionKey struct {
	CardID string
	Foil   bool
}

// CollectionEntry is one inventory line of the user's collection
type CollectionEntry struct {
	CardID          string `json:"card_id"`
	Name            string `json:"name"`
	SetCode         string `json:"set"`
	SetName         string `json:"set_name"`
	CollectorNumber string `json:"collector_number"`
	Rarity          string `json:"rarity"`
	ImageURL        string `json:"image_url,omitempty"`
	Quantity        int    `json:"quantity"`
	Foil            bool   `json:"foil"`
	Condition       string `json:"condition"`
	Language        string `json:"language"`
}

// Key returns the (card, foil) key of the entry
func (e CollectionEntry) Key() CollectionKey {
	return CollectionKey{CardID: e.CardID, Foil: e.Foil}
}

// NewCollectionEntry builds an inventory line from a resolved card
func NewCollectionEntry(card CardRecord, quantity int, foil bool, condition, language string) CollectionEntry {
	if condition == "" {
		condition = DefaultCondition
	}
	if language == "" {
		language = DefaultLanguage
	}

	return CollectionEntry{
		CardID:          card.ID,
		Name:            card.Name,
		SetCode:         card.SetCode,
		SetName:         card.SetName,
		CollectorNumber: card.CollectorNumber,
		Rarity:          card.Rarity,
		ImageURL:        card.ImageURL,
		Quantity:        quantity,
		Foil:            foil,
		Condition:       condition,
		Language:        language,
	}
}

// CollectionSummary holds collection totals
type CollectionSummary struct {
	TotalCards      int `json:"total_cards"`
	UniqueCards     int `json:"unique_cards"`
	SetsRepresented int `json:"sets_represented"`
}

// CollectionStore receives resolved import rows, one batch per import
type CollectionStore interface {
	NewBatch() CollectionBatch
}

// CollectionBatch combines the repeated entries of one import under the
// duplicate policy. An entry replaces whatever an earlier import stored for
// the same key.
type CollectionBatch interface {
	Add(entry CollectionEntry)
}
