package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/and161185/rideshare/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PlainPersistsAcrossInstances(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "rideshare")

	s, err := New(dir, "")
	require.NoError(t, err)
	_, err = s.Get(ctx, storage.KeyToken)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set(ctx, storage.KeyToken, "tok"))
	require.NoError(t, s.Set(ctx, storage.KeyUser, `{"id":1}`))

	fi, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	s2, err := New(dir, "")
	require.NoError(t, err)
	v, err := s2.Get(ctx, storage.KeyUser)
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, v)

	require.NoError(t, s2.Delete(ctx, storage.SessionKeys...))
	_, err = s.Get(ctx, storage.KeyToken)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, s2.Delete(ctx, storage.KeyToken))
}

func TestStore_SealedValuesAreOpaque(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	s, err := New(dir, "hunter2")
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, storage.KeyToken, "secret-access-token"))

	raw, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "secret-access-token"))
	var doc document
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.NotEmpty(t, doc.Salt)

	s2, err := New(dir, "hunter2")
	require.NoError(t, err)
	v, err := s2.Get(ctx, storage.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "secret-access-token", v)

	wrong, err := New(dir, "wrong")
	require.NoError(t, err)
	_, err = wrong.Get(ctx, storage.KeyToken)
	require.Error(t, err)

	_, err = New(dir, "")
	require.Error(t, err)
}

func TestStore_CorruptDocument(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{"), 0o600))

	_, err := New(dir, "")
	require.Error(t, err)
}

func TestStore_PassphraseSealsPlainDocument(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	plain, err := New(dir, "")
	require.NoError(t, err)
	require.NoError(t, plain.Set(ctx, storage.KeyToken, "plain-access-token"))
	require.NoError(t, plain.Set(ctx, storage.KeyUser, `{"id":1}`))

	s, err := New(dir, "hunter2")
	require.NoError(t, err)
	v, err := s.Get(ctx, storage.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "plain-access-token", v)

	require.NoError(t, s.Set(ctx, storage.KeyRefreshToken, "refresh"))
	v, err = s.Get(ctx, storage.KeyUser)
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, v)

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "plain-access-token")
	var doc document
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.NotEmpty(t, doc.Salt)

	_, err = New(dir, "")
	require.Error(t, err, "now sealed")

	again, err := New(dir, "hunter2")
	require.NoError(t, err)
	v, err = again.Get(ctx, storage.KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh", v)
}

func TestStore_PassphraseOnEmptyDocumentWritesNothing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := New(dir, "hunter2")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, FileName))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
