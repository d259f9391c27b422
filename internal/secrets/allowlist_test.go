package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "allowlist.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAllowlist(t *testing.T) {
	path := writeFile(t, `
[allowlist]
regexes = ['''EXAMPLE[0-9]+''', "^test-"]
`)
	al, err := LoadAllowlist(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"EXAMPLE[0-9]+", "^test-"}, al.Regexes)
}

func TestLoadAllowlist_Errors(t *testing.T) {
	t.Run("bad toml", func(t *testing.T) {
		_, err := LoadAllowlist(writeFile(t, "[allowlist\n"))
		assert.ErrorIs(t, err, ErrInvalidTOML)
	})
	t.Run("bad regex", func(t *testing.T) {
		_, err := LoadAllowlist(writeFile(t, "[allowlist]\nregexes = [\"(open\"]\n"))
		assert.ErrorIs(t, err, ErrInvalidRegex)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadAllowlist(filepath.Join(t.TempDir(), "nope.toml"))
		assert.Error(t, err)
	})
}

func TestNewAllowlist(t *testing.T) {
	al, err := NewAllowlist("a", "b+")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b+"}, al.Regexes)

	_, err = NewAllowlist("[")
	assert.ErrorIs(t, err, ErrInvalidRegex)
}

func TestMerge(t *testing.T) {
	a := &Allowlist{Regexes: []string{"a"}}
	b := &Allowlist{Regexes: []string{"b"}}

	assert.Equal(t, []string{"a", "b"}, Merge(a, b).Regexes)
	assert.Equal(t, []string{"a"}, Merge(a, nil).Regexes)
	assert.True(t, Merge(nil, nil).empty())
}
