package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnv(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadPrecedence(t *testing.T) {
	root := t.TempDir()
	skill := writeEnv(t, filepath.Join(root, "skill"), "SHARED=skill\nSKILL_ONLY=1\n")
	user := writeEnv(t, filepath.Join(root, "user"), "SHARED=user\nUSER_ONLY=2\n")
	project := writeEnv(t, filepath.Join(root, "project"), "SHARED=project\nPROJECT_ONLY=3\n")

	values, err := Read(skill, user, project, filepath.Join(root, "missing", ".env"))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"SHARED":       "skill",
		"SKILL_ONLY":   "1",
		"USER_ONLY":    "2",
		"PROJECT_ONLY": "3",
	}, values)
}

func TestOverlayKeepsProcessEnvAndRestores(t *testing.T) {
	root := t.TempDir()
	t.Setenv("SKILLET_TEST_PROCESS", "process")
	skill := writeEnv(t, root, "SKILLET_TEST_PROCESS=file\nSKILLET_TEST_OVERLAY=file\n")

	restore, err := Overlay(context.Background(), skill)
	require.NoError(t, err)

	assert.Equal(t, "process", os.Getenv("SKILLET_TEST_PROCESS"))
	assert.Equal(t, "file", os.Getenv("SKILLET_TEST_OVERLAY"))

	restore()
	_, set := os.LookupEnv("SKILLET_TEST_OVERLAY")
	assert.False(t, set)
	assert.Equal(t, "process", os.Getenv("SKILLET_TEST_PROCESS"))
}

func TestOverlayWithNoFiles(t *testing.T) {
	restore, err := Overlay(context.Background(), "", filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	restore()
}

func forgetKeys(t *testing.T, keys ...string) {
	t.Helper()
	t.Cleanup(func() {
		mu.Lock()
		defer mu.Unlock()
		for _, k := range keys {
			_ = os.Unsetenv(k)
			delete(fromFile, k)
		}
	})
}

func TestOverlaySkillEnvBeatsGlobalFiles(t *testing.T) {
	root := t.TempDir()
	forgetKeys(t, "SKILLET_TEST_SHARED", "SKILLET_TEST_PROJECT")
	skill := writeEnv(t, filepath.Join(root, "skill"), "SKILLET_TEST_SHARED=skill\n")
	user := writeEnv(t, filepath.Join(root, "user"), "SKILLET_TEST_SHARED=user\n")
	project := writeEnv(t, filepath.Join(root, "project"), "SKILLET_TEST_SHARED=project\nSKILLET_TEST_PROJECT=project\n")

	require.NoError(t, LoadGlobal(context.Background(), user, project))
	assert.Equal(t, "user", os.Getenv("SKILLET_TEST_SHARED"))
	assert.Equal(t, "project", os.Getenv("SKILLET_TEST_PROJECT"))

	restore, err := Overlay(context.Background(), skill, user, project)
	require.NoError(t, err)
	assert.Equal(t, "skill", os.Getenv("SKILLET_TEST_SHARED"))
	assert.Equal(t, "project", os.Getenv("SKILLET_TEST_PROJECT"))

	restore()
	assert.Equal(t, "user", os.Getenv("SKILLET_TEST_SHARED"))
	assert.Equal(t, "project", os.Getenv("SKILLET_TEST_PROJECT"))
}

func TestLoadGlobalKeepsProcessEnv(t *testing.T) {
	root := t.TempDir()
	t.Setenv("SKILLET_TEST_REAL", "process")
	user := writeEnv(t, filepath.Join(root, "user"), "SKILLET_TEST_REAL=user\n")
	skill := writeEnv(t, filepath.Join(root, "skill"), "SKILLET_TEST_REAL=skill\n")

	require.NoError(t, LoadGlobal(context.Background(), user, ""))
	restore, err := Overlay(context.Background(), skill)
	require.NoError(t, err)
	defer restore()

	assert.Equal(t, "process", os.Getenv("SKILLET_TEST_REAL"))
}
