package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varoOP/cardvault/internal/domain"
)

func webhookServer(t *testing.T, status int) (*httptest.Server, <-chan discordWebhook) {
	t.Helper()

	received := make(chan discordWebhook, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload discordWebhook
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		received <- payload
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	return srv, received
}

func TestDiscordService_SendSuccess(t *testing.T) {
	srv, received := webhookServer(t, http.StatusNoContent)
	s := NewDiscordService(zerolog.Nop(), srv.URL)

	err := s.SendSuccess(context.Background(), domain.RefreshStats{
		DataType:   "default_cards",
		TotalCards: 91234,
		TotalSets:  812,
		SizeBytes:  512_000_000,
		Duration:   95 * time.Second,
	})
	require.NoError(t, err)

	payload := <-received
	require.Len(t, payload.Embeds, 1)
	embed := payload.Embeds[0]
	assert.Equal(t, "CardVault Cache Refresh Completed", embed.Title)
	require.Len(t, embed.Fields, 4)
	assert.Equal(t, "91,234", embed.Fields[0].Value)
	assert.Equal(t, "812", embed.Fields[1].Value)
	assert.Equal(t, "512 MB", embed.Fields[2].Value)
	assert.Equal(t, "1m35s", embed.Fields[3].Value)
}

func TestDiscordService_SendError(t *testing.T) {
	srv, received := webhookServer(t, http.StatusOK)
	s := NewDiscordService(zerolog.Nop(), srv.URL)

	require.NoError(t, s.SendError(context.Background(), errors.New("manifest unavailable")))

	embed := (<-received).Embeds[0]
	assert.Equal(t, "CardVault Cache Refresh Failed", embed.Title)
	assert.Contains(t, embed.Description, "manifest unavailable")
	assert.Equal(t, 0xff0000, embed.Color)
}

func TestDiscordService_BadStatus(t *testing.T) {
	srv, _ := webhookServer(t, http.StatusBadRequest)
	s := NewDiscordService(zerolog.Nop(), srv.URL)

	assert.Error(t, s.SendError(context.Background(), errors.New("x")))
}

func TestService_NoWebhookIsNoop(t *testing.T) {
	s := NewService(zerolog.Nop(), "")

	assert.NoError(t, s.SendSuccess(context.Background(), domain.RefreshStats{}))
	assert.NoError(t, s.SendError(context.Background(), errors.New("x")))
}
