package scryfall

import (
	"context"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/varoOP/cardvault/internal/domain"
)

// GetByCollectorNumber fetches the print numbered number in setCode
func (c *Client) GetByCollectorNumber(ctx context.Context, setCode, number string) (*domain.CardRecord, error) {
	path := "/cards/" + url.PathEscape(strings.ToLower(setCode)) + "/" + url.PathEscape(number)
	return c.getCard(ctx, c.endpoint(path, nil))
}

// GetByExactName fetches a card by its exact name, optionally restricted to a set
func (c *Client) GetByExactName(ctx context.Context, name, setCode string) (*domain.CardRecord, error) {
	return c.getCard(ctx, c.endpoint("/cards/named", namedQuery("exact", name, setCode)))
}

// GetByFuzzyName fetches the card whose name best matches name
func (c *Client) GetByFuzzyName(ctx context.Context, name, setCode string) (*domain.CardRecord, error) {
	return c.getCard(ctx, c.endpoint("/cards/named", namedQuery("fuzzy", name, setCode)))
}

// FreeTextSearch runs a full text query and returns the first page of results.
// No match returns an empty slice.
func (c *Client) FreeTextSearch(ctx context.Context, query string) ([]domain.CardRecord, error) {
	var list listResponse
	err := c.getJSON(ctx, c.endpoint("/cards/search", url.Values{"q": {query}}), &list)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return parseCards(c.log, list.Data), nil
}

func namedQuery(mode, name, setCode string) url.Values {
	q := url.Values{mode: {name}}
	if setCode != "" {
		q.Set("set", strings.ToLower(setCode))
	}
	return q
}
