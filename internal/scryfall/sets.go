package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gocolly/colly"
	"github.com/pkg/errors"
	"github.com/varoOP/cardvault/internal/domain"
)

type setListResponse struct {
	Data []domain.CardSet `json:"data"`
}

// ListSets returns every set the API knows about
func (c *Client) ListSets(ctx context.Context) ([]domain.CardSet, error) {
	var list setListResponse
	if err := c.getJSON(ctx, c.endpoint("/sets", nil), &list); err != nil {
		return nil, errors.Wrap(err, "failed to list sets")
	}

	return list.Data, nil
}

func (c *Client) setSearchURL(setCode string, page int) string {
	q := url.Values{
		"q":      {"set:" + strings.ToLower(setCode)},
		"unique": {"prints"},
		"order":  {"set"},
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	return c.endpoint("/cards/search", q)
}

// SearchBySet fetches one page of a set's cards. A set with no cards returns
// an empty last page.
func (c *Client) SearchBySet(ctx context.Context, setCode string, page int) (*domain.SetPage, error) {
	var list listResponse
	err := c.getJSON(ctx, c.setSearchURL(setCode, page), &list)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.SetPage{}, nil
		}
		return nil, err
	}

	return &domain.SetPage{
		Cards:   parseCards(c.log, list.Data),
		HasMore: list.HasMore,
	}, nil
}

// FetchSetCards crawls every page of a set, following next_page links with
// the configured delay between pages. When the crawl fails it starts over
// with numbered SearchBySet pages.
func (c *Client) FetchSetCards(ctx context.Context, setCode string) ([]domain.CardRecord, error) {
	cards, err := c.crawlSet(ctx, setCode)
	if err == nil || ctx.Err() != nil {
		return cards, err
	}

	c.log.Warn().Err(err).Str("set", setCode).Msg("set crawl failed, paging set search")

	cards, pageErr := c.pageSet(ctx, setCode)
	if pageErr != nil {
		return nil, errors.Wrapf(pageErr, "set search failed after crawl error: %v", err)
	}
	return cards, nil
}

func (c *Client) pageSet(ctx context.Context, setCode string) ([]domain.CardRecord, error) {
	var cards []domain.CardRecord
	for page := 1; ; page++ {
		p, err := c.SearchBySet(ctx, setCode, page)
		if err != nil {
			return nil, err
		}
		cards = append(cards, p.Cards...)
		if !p.HasMore {
			return cards, nil
		}
	}
}

func (c *Client) crawlSet(ctx context.Context, setCode string) ([]domain.CardRecord, error) {
	cc := colly.NewCollector(
		colly.UserAgent(userAgent),
	)

	if err := cc.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Delay:       c.delay,
		Parallelism: 1,
	}); err != nil {
		return nil, errors.Wrap(err, "failed to set crawl limit")
	}

	var (
		cards    []domain.CardRecord
		crawlErr error
		notFound bool
	)

	cc.WithTransport(&contextTransport{ctx: ctx})

	cc.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "application/json")
		c.log.Debug().Str("url", r.URL.String()).Msg("visiting")
	})

	cc.OnResponse(func(r *colly.Response) {
		var list listResponse
		if err := json.Unmarshal(r.Body, &list); err != nil {
			crawlErr = errors.Wrap(err, "failed to unmarshal response")
			return
		}

		cards = append(cards, parseCards(c.log, list.Data)...)

		if list.HasMore && list.NextPage != "" && ctx.Err() == nil {
			if err := r.Request.Visit(list.NextPage); err != nil {
				crawlErr = errors.Wrap(err, "failed to follow next page")
			}
		}
	})

	cc.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode == http.StatusNotFound {
			notFound = true
			return
		}
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		crawlErr = fmt.Errorf("set crawl failed with status %d: %w", status, err)
	})

	if err := cc.Visit(c.setSearchURL(setCode, 1)); err != nil && crawlErr == nil && !notFound {
		crawlErr = errors.Wrap(err, "failed to visit set search")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if crawlErr != nil {
		return nil, crawlErr
	}

	c.log.Debug().Str("set", setCode).Int("cards", len(cards)).Msg("crawled set")
	return cards, nil
}

// contextTransport binds collector requests to ctx
type contextTransport struct {
	ctx       context.Context
	Transport http.RoundTripper
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.ctx.Err(); err != nil {
		return nil, err
	}
	if t.Transport == nil {
		t.Transport = http.DefaultTransport
	}
	return t.Transport.RoundTrip(req.WithContext(t.ctx))
}
