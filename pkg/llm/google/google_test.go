package google

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	llmtypes "github.com/jingkaihe/skillet/pkg/llm/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind llmtypes.ErrorKind
	}{
		{"rate limited", &genai.APIError{Code: 429, Message: "Too Many Requests", Status: "RESOURCE_EXHAUSTED"}, llmtypes.ErrRateLimited},
		{"server error", genai.APIError{Code: 503, Message: "unavailable"}, llmtypes.ErrTransient},
		{"bad request", &genai.APIError{Code: 400, Message: "invalid argument"}, llmtypes.ErrBadRequest},
		{"forbidden", &genai.APIError{Code: 403, Message: "denied"}, llmtypes.ErrAuthentication},
		{"other", errors.New("some random error"), llmtypes.ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e *llmtypes.Error
			require.ErrorAs(t, classify(tt.err), &e)
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, ProviderName, e.Provider)
		})
	}
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "")
	t.Setenv(FallbackAPIKeyEnvVar, "gemini-key")
	assert.Equal(t, "gemini-key", APIKeyFromEnv())

	t.Setenv(APIKeyEnvVar, "google-key")
	assert.Equal(t, "google-key", APIKeyFromEnv())
}

func TestNew(t *testing.T) {
	client, err := New(context.Background(), "key", "")
	require.NoError(t, err)
	assert.Equal(t, ProviderName, client.Name())
}
