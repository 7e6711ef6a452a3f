package domain

import "github.com/pkg/errors"

var (
	// ErrNotFound is returned when a card cannot be located
	ErrNotFound = errors.New("card not found")

	// ErrRefreshInProgress is returned when another process holds the refresh lock
	ErrRefreshInProgress = errors.New("bulk refresh already in progress")

	// ErrJobNotFound is returned for an unknown import job id
	ErrJobNotFound = errors.New("import job not found")
)
