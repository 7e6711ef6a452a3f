package domain

import (
	"context"
	"time"
)

// NotificationService defines the interface for notification services
type NotificationService interface {
	// SendSuccess sends a success notification with refresh statistics
	SendSuccess(ctx context.Context, stats RefreshStats) error

	// SendError sends an error notification with error details
	SendError(ctx context.Context, err error) error
}

// RefreshStats holds the result of a bulk refresh
type RefreshStats struct {
	DataType     string
	TotalCards   int
	TotalSets    int
	SizeBytes    int64
	VersionToken string
	Duration     time.Duration
}
