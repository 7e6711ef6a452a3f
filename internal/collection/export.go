package collection

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/varoOP/cardvault/internal/domain"
)

// Format is a collection export layout
type Format string

const (
	FormatMTGGoldfish Format = "mtggoldfish"
	FormatDeckbox     Format = "deckbox"
)

// ParseFormat maps a format name to a Format, defaulting to mtggoldfish
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatMTGGoldfish, nil
	case FormatMTGGoldfish, FormatDeckbox:
		return f, nil
	default:
		return "", errors.Errorf("unknown export format: %s (must be 'mtggoldfish' or 'deckbox')", s)
	}
}

var (
	mtggoldfishHeader = []string{"Name", "Set", "Collector Number", "Quantity", "Foil", "Condition", "Language"}
	deckboxHeader     = []string{"Count", "Tradelist Count", "Name", "Edition", "Card Number", "Condition", "Foil",
		"Signed", "Artist Proof", "Altered Art", "Misprint", "Promo", "Textless", "My Price"}
)

// Export writes the collection as CSV in format. Lines with no copies are left out.
func (m *Manager) Export(w io.Writer, format Format) error {
	cw := csv.NewWriter(w)

	header, row := mtggoldfishHeader, mtggoldfishRow
	if format == FormatDeckbox {
		header, row = deckboxHeader, deckboxRow
	}

	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "failed to write header")
	}

	for _, e := range m.Entries() {
		if e.Quantity <= 0 {
			continue
		}
		if err := cw.Write(row(e)); err != nil {
			return errors.Wrap(err, "failed to write row")
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to flush export")
}

func mtggoldfishRow(e domain.CollectionEntry) []string {
	foil := "No"
	if e.Foil {
		foil = "Yes"
	}

	return []string{
		e.Name,
		strings.ToUpper(e.SetCode),
		e.CollectorNumber,
		strconv.Itoa(e.Quantity),
		foil,
		e.Condition,
		e.Language,
	}
}

func deckboxRow(e domain.CollectionEntry) []string {
	foil := ""
	if e.Foil {
		foil = "foil"
	}

	return []string{
		strconv.Itoa(e.Quantity),
		"0",
		e.Name,
		e.SetName,
		e.CollectorNumber,
		e.Condition,
		foil,
		"", "", "", "", "", "", "",
	}
}
