package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/varoOP/cardvault/internal/domain"
)

type bulkDataResponse struct {
	Data []struct {
		Type        string `json:"type"`
		DownloadURI string `json:"download_uri"`
		Size        int64  `json:"size"`
		UpdatedAt   string `json:"updated_at"`
	} `json:"data"`
}

// BulkManifest looks up the current snapshot of dataType
func (c *Client) BulkManifest(ctx context.Context, dataType string) (*domain.BulkManifest, error) {
	var resp bulkDataResponse
	if err := c.getJSON(ctx, c.endpoint("/bulk-data", nil), &resp); err != nil {
		return nil, errors.Wrap(err, "failed to fetch bulk data manifest")
	}

	for _, d := range resp.Data {
		if d.Type == dataType {
			return &domain.BulkManifest{
				DataType:     d.Type,
				DownloadURI:  d.DownloadURI,
				SizeBytes:    d.Size,
				VersionToken: d.UpdatedAt,
			}, nil
		}
	}

	return nil, errors.Errorf("bulk data type %q not offered", dataType)
}

// DownloadBulkDataset streams the JSON array at uri, handing fn batches of at
// most batchSize cards. Returns the number of cards decoded.
func (c *Client) DownloadBulkDataset(ctx context.Context, uri string, batchSize int, fn func([]domain.CardRecord) error) (int, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create request")
	}

	resp, err := c.bulkClient.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "failed to download bulk data")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, uri)
	}

	dec := json.NewDecoder(resp.Body)

	tok, err := dec.Token()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read bulk data")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return 0, errors.New("bulk data is not a JSON array")
	}

	total := 0
	batch := make([]domain.CardRecord, 0, batchSize)
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return total, errors.Wrap(err, "failed to decode bulk card")
		}

		card, err := domain.ParseCardRecord(raw)
		if err != nil {
			c.log.Warn().Err(err).Msg("skipping malformed bulk card")
			continue
		}

		batch = append(batch, card)
		total++

		if len(batch) >= batchSize {
			if err := fn(batch); err != nil {
				return total, err
			}
			batch = make([]domain.CardRecord, 0, batchSize)
		}
	}

	if len(batch) > 0 {
		if err := fn(batch); err != nil {
			return total, err
		}
	}

	if _, err := dec.Token(); err != nil {
		return total, errors.Wrap(err, "failed to read end of bulk data")
	}

	return total, nil
}
