package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillet/pkg/presenter"
)

func TestGet(t *testing.T) {
	info := Get()

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, GitCommit, info.GitCommit)
	assert.Equal(t, BuildTime, info.BuildTime)
	assert.Contains(t, info.GoVersion, "go")
}

func TestInfoString(t *testing.T) {
	info := Info{Version: "1.0.0", GitCommit: "abc123", BuildTime: "2026-10-19", GoVersion: "go1.25.1"}
	assert.Equal(t, "skillet 1.0.0 (commit abc123, built 2026-10-19, go1.25.1)", info.String())
}

func TestInfoRender(t *testing.T) {
	info := Info{Version: "1.0.0", GitCommit: "abc123", BuildTime: "now", GoVersion: "go1.25.1"}

	var buf bytes.Buffer
	require.NoError(t, presenter.Render(&buf, presenter.FormatJSON, info))
	assert.Contains(t, buf.String(), `"git_commit": "abc123"`)
}
