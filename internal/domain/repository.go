package domain

import (
	"context"
)

// AliasRepository defines the interface for user supplied set alias overrides
type AliasRepository interface {
	GetSetAliases(ctx context.Context, path string) (*SetAliases, error)
	StoreSetAliases(ctx context.Context, path string, aliases *SetAliases) error
}

// SetAliases maps full edition names, as export tools write them, to set codes
type SetAliases struct {
	Aliases []SetAlias `yaml:"setAliases"`
}

// SetAlias is a single alias entry
type SetAlias struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

// Map returns the aliases keyed by name
func (s *SetAliases) Map() map[string]string {
	m := make(map[string]string, len(s.Aliases))
	for _, a := range s.Aliases {
		m[a.Name] = a.Code
	}
	return m
}
