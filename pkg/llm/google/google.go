// Package google adapts the Gemini API to the provider contract.
package google

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	llmtypes "github.com/jingkaihe/skillet/pkg/llm/types"
)

const (
	ProviderName = "google"
	APIKeyEnvVar = "GOOGLE_API_KEY"
	// FallbackAPIKeyEnvVar is read when APIKeyEnvVar is unset.
	FallbackAPIKeyEnvVar = "GEMINI_API_KEY"
)

// APIKeyFromEnv returns the configured Gemini API key.
func APIKeyFromEnv() string {
	if key := os.Getenv(APIKeyEnvVar); key != "" {
		return key
	}
	return os.Getenv(FallbackAPIKeyEnvVar)
}

// Client calls GenerateContent on the Gemini API backend.
type Client struct {
	client *genai.Client
}

// New creates a client. baseURL is only set in tests.
func New(ctx context.Context, apiKey, baseURL string) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Google GenAI client")
	}
	return &Client{client: client}, nil
}

// Name returns the provider name.
func (c *Client) Name() string { return ProviderName }

// Call generates a single response for the user prompt.
func (c *Client) Call(ctx context.Context, req llmtypes.Request) (string, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.MaxTokensOrDefault()),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(req.System)}, genai.RoleUser)
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(req.User)}, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return "", classify(err)
	}

	var text strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part != nil && !part.Thought {
				text.WriteString(part.Text)
			}
		}
	}
	if text.Len() == 0 {
		return "", llmtypes.NewError(llmtypes.ErrUnknown, ProviderName, 0, errors.New("response contained no text"))
	}
	return text.String(), nil
}

func classify(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	default:
		return llmtypes.Classify(ProviderName, err)
	}

	e := llmtypes.NewError(llmtypes.KindForStatus(code), ProviderName, code, err)
	if e.Kind == llmtypes.ErrAuthentication {
		e.KeyEnvVar = APIKeyEnvVar
	}
	return e
}
