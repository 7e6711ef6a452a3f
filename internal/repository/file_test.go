package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varoOP/cardvault/internal/domain"
)

func TestFileRepository_SetAliases(t *testing.T) {
	r := NewFileRepository(zerolog.Nop())
	path := filepath.Join(t.TempDir(), "nested", "aliases.yaml")

	in := &domain.SetAliases{Aliases: []domain.SetAlias{
		{Name: "Store Championship Promos", Code: "pspl"},
		{Name: "Secret Lair", Code: "sld"},
	}}
	require.NoError(t, r.StoreSetAliases(context.Background(), path, in))

	out, err := r.GetSetAliases(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, "sld", out.Map()["Secret Lair"])
}

func TestFileRepository_ReadsHandWrittenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("setAliases:\n  - name: Mystery Booster\n    code: mb1\n"), 0644))

	out, err := NewFileRepository(zerolog.Nop()).GetSetAliases(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Mystery Booster": "mb1"}, out.Map())
}

func TestFileRepository_Errors(t *testing.T) {
	r := NewFileRepository(zerolog.Nop())
	dir := t.TempDir()

	_, err := r.GetSetAliases(context.Background(), filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = r.GetSetAliases(context.Background(), dir)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("setAliases: [unterminated"), 0644))
	_, err = r.GetSetAliases(context.Background(), bad)
	assert.Error(t, err)
}
