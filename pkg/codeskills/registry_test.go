package codeskills

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoArgs struct {
	Input  string `mapstructure:"input"`
	Repeat int    `mapstructure:"repeat"`
}

func echoEntry() *Entry {
	return NewEntry("echo", "repeat the input", func(_ context.Context, a *echoArgs) (any, error) {
		n := a.Repeat
		if n == 0 {
			n = 1
		}
		return strings.Repeat(a.Input, n), nil
	})
}

func TestEntryInvoke(t *testing.T) {
	e := echoEntry()
	assert.Equal(t, []string{"input string", "repeat int"}, e.Shape)

	out, err := e.Invoke(context.Background(), "ab", map[string]any{"repeat": "3"})
	require.NoError(t, err)
	assert.Equal(t, "ababab", out)
}

func TestEntryInvokeRejectsUnknownOptions(t *testing.T) {
	_, err := echoEntry().Invoke(context.Background(), "ab", map[string]any{"colour": "blue"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid arguments for code skill 'echo'")
	assert.Contains(t, err.Error(), "repeat int")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(echoEntry())
	r.Register(TextStatsEntry())

	assert.Equal(t, []string{"echo", "text-stats"}, r.Names())

	_, ok := r.Lookup("echo")
	assert.True(t, ok)

	_, err := r.Invoke(context.Background(), "narrator", "hi", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotImplemented))
	assert.Contains(t, err.Error(), "narrator")
}

func TestDefaultRegistry(t *testing.T) {
	names := Default().Names()
	assert.Equal(t, []string{"text-stats", "vault-writer", "web-scraper"}, names)
}

func TestTextStats(t *testing.T) {
	out, err := TextStatsEntry().Invoke(context.Background(), "one two\nthree\n", nil)
	require.NoError(t, err)
	assert.Equal(t, TextStats{Words: 3, Characters: 14, Lines: 2, EstimatedTokens: 3}, out)
}

func TestWebScraper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<html><body><h1>Bees</h1><p>They make <strong>honey</strong>.</p></body></html>"))
		case "/plain":
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("just text"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	t.Run("html converted to markdown", func(t *testing.T) {
		out, err := WebScraperEntry().Invoke(context.Background(), server.URL+"/page", nil)
		require.NoError(t, err)
		assert.Contains(t, out, "# Bees")
		assert.Contains(t, out, "**honey**")
	})

	t.Run("non html returned verbatim", func(t *testing.T) {
		out, err := WebScraperEntry().Invoke(context.Background(), server.URL+"/plain", nil)
		require.NoError(t, err)
		assert.Equal(t, "just text", out)
	})

	t.Run("http error", func(t *testing.T) {
		_, err := WebScraperEntry().Invoke(context.Background(), server.URL+"/missing", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 404")
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := WebScraperEntry().Invoke(context.Background(), "not a url", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expects an http(s) URL")
	})
}

func TestVaultWriter(t *testing.T) {
	vault := t.TempDir()

	out, err := VaultWriterEntry().Invoke(context.Background(), "# Bee Facts\n\nBees dance.", map[string]any{
		"vault_path": vault,
		"folder":     "inbox",
		"tags":       []any{"bees", "nature"},
	})
	require.NoError(t, err)

	result := out.(map[string]any)
	path := result["path"].(string)
	assert.Equal(t, filepath.Join(vault, "inbox", "Bee Facts.md"), path)
	assert.Equal(t, "Bee Facts", result["title"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "---\ntitle: Bee Facts\ntags:\n    - bees\n    - nature\n"))
	assert.Contains(t, string(data), "Bees dance.")

	_, err = VaultWriterEntry().Invoke(context.Background(), "# Bee Facts", map[string]any{"vault_path": vault, "folder": "inbox"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestVaultWriterUsesEnvironment(t *testing.T) {
	vault := t.TempDir()
	t.Setenv("SKILLET_VAULT_PATH", "")
	t.Setenv("OBSIDIAN_VAULT_PATH", vault)

	out, err := VaultWriterEntry().Invoke(context.Background(), "hello", map[string]any{"title": "Greeting"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(vault, "Greeting.md"), out.(map[string]any)["path"])
}

func TestVaultWriterWithoutVault(t *testing.T) {
	t.Setenv("SKILLET_VAULT_PATH", "")
	t.Setenv("OBSIDIAN_VAULT_PATH", "")

	_, err := VaultWriterEntry().Invoke(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no vault path configured")
}
