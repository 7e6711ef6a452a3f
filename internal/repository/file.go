package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/varoOP/cardvault/internal/domain"
	"gopkg.in/yaml.v3"
)

// FileRepository implements domain.AliasRepository using YAML files
type FileRepository struct {
	log zerolog.Logger
}

// NewFileRepository creates a new file-based repository
func NewFileRepository(log zerolog.Logger) *FileRepository {
	return &FileRepository{
		log: log.With().Str("module", "repository").Logger(),
	}
}

var _ domain.AliasRepository = (*FileRepository)(nil)

// GetSetAliases reads set alias overrides from path
func (r *FileRepository) GetSetAliases(ctx context.Context, path string) (*domain.SetAliases, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file does not exist: %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	aliases := &domain.SetAliases{}
	if err := yaml.Unmarshal(b, aliases); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml from %s: %w", path, err)
	}

	r.log.Debug().Str("path", path).Int("count", len(aliases.Aliases)).Msg("loaded set aliases")
	return aliases, nil
}

// StoreSetAliases writes set alias overrides to path
func (r *FileRepository) StoreSetAliases(ctx context.Context, path string, aliases *domain.SetAliases) error {
	b, err := yaml.Marshal(aliases)
	if err != nil {
		return fmt.Errorf("failed to marshal yaml: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	r.log.Debug().Str("path", path).Int("count", len(aliases.Aliases)).Msg("stored set aliases")
	return nil
}
