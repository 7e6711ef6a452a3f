package notification

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/varoOP/cardvault/internal/domain"
)

// Service fans notifications out to every configured channel
type Service struct {
	log     zerolog.Logger
	discord *DiscordService
}

// NewService creates a notification service. With no webhook URL every send is a no-op.
func NewService(log zerolog.Logger, webhookURL string) domain.NotificationService {
	var discord *DiscordService
	if webhookURL != "" {
		discord = NewDiscordService(log, webhookURL)
	}

	return &Service{
		log:     log.With().Str("module", "notification").Logger(),
		discord: discord,
	}
}

func (s *Service) SendSuccess(ctx context.Context, stats domain.RefreshStats) error {
	if s.discord != nil {
		if err := s.discord.SendSuccess(ctx, stats); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) SendError(ctx context.Context, err error) error {
	if s.discord != nil {
		if err := s.discord.SendError(ctx, err); err != nil {
			return err
		}
	}
	return nil
}
