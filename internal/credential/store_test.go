package credential

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestCredential_Redaction(t *testing.T) {
	c := New("ghp_secret")

	assert.Equal(t, "ghp_secret", c.Value())
	assert.Equal(t, "[REDACTED]", c.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", c))
	assert.NotContains(t, fmt.Sprintf("%#v", c), "ghp_secret")

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "ghp_secret")

	assert.Equal(t, "[EMPTY]", Credential{}.String())
}

func TestFromToken(t *testing.T) {
	token := (&oauth2.Token{AccessToken: "gho_abc", TokenType: "bearer"}).
		WithExtra(map[string]interface{}{"scope": "repo"})

	c := FromToken(token)
	assert.Equal(t, "gho_abc", c.Value())
	assert.Equal(t, "bearer", c.TokenType())
	assert.Equal(t, "repo", c.Scope())
	assert.False(t, c.CreatedAt().IsZero())

	assert.True(t, FromToken(nil).IsEmpty())
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	_, ok := s.Get()
	assert.False(t, ok)

	require.NoError(t, s.Set(New("one")))
	require.NoError(t, s.Set(New("two")))

	c, ok := s.Get()
	require.True(t, ok)
	assert.Equal(t, "two", c.Value())

	require.NoError(t, s.Clear())
	_, ok = s.Get()
	assert.False(t, ok)
	require.NoError(t, s.Clear())
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(New("persistent-token")))

	info, err := os.Stat(filepath.Join(dir, StorageKey+".json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	c, ok := reopened.Get()
	require.True(t, ok)
	assert.Equal(t, "persistent-token", c.Value())
}

func TestFileStore_Clear(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Clear(), "clearing an empty store must succeed")

	require.NoError(t, s.Set(New("token")))
	require.NoError(t, s.Clear())

	_, ok := s.Get()
	assert.False(t, ok)

	_, err = os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err))

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	_, ok = reopened.Get()
	assert.False(t, ok)
}

func TestFileStore_FailedClearKeepsCredential(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(New("token")))

	// A non-empty directory at the credential path cannot be removed.
	require.NoError(t, os.Remove(s.Path()))
	require.NoError(t, os.Mkdir(s.Path(), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(s.Path(), "keep"), []byte("x"), 0o600))

	assert.Error(t, s.Clear())

	got, ok := s.Get()
	require.True(t, ok, "a failed clear leaves the credential in place")
	assert.Equal(t, "token", got.Value())
}

func TestFileStore_CorruptFileIsAbsent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, StorageKey+".json"), []byte("{not json"), 0600))

	s, err := NewFileStore(dir)
	require.NoError(t, err)
	_, ok := s.Get()
	assert.False(t, ok)
}

func TestFileStore_ConcurrentSetAndClearIsConsistent(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = s.Set(New(fmt.Sprintf("token-%d", i)))
		}(i)
		go func() {
			defer wg.Done()
			_ = s.Clear()
		}()
	}
	wg.Wait()

	cached, cachedOK := s.Get()

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	onDisk, diskOK := reopened.Get()

	assert.Equal(t, cachedOK, diskOK, "memory and disk must agree on presence")
	assert.Equal(t, cached.Value(), onDisk.Value(), "memory and disk must agree on value")
}
