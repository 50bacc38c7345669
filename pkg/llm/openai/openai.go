// Package openai adapts OpenAI-compatible chat completion APIs (OpenAI, xAI,
// Groq) to the provider contract.
package openai

import (
	"context"
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	llmtypes "github.com/jingkaihe/skillet/pkg/llm/types"
)

// Preset describes an OpenAI-compatible platform.
type Preset struct {
	Name         string
	BaseURL      string
	APIKeyEnvVar string
	// CompletionTokens sends max_completion_tokens instead of max_tokens.
	CompletionTokens bool
}

// Presets are the OpenAI-compatible platforms skillet knows about.
var Presets = map[string]Preset{
	"openai": {Name: "openai", BaseURL: "https://api.openai.com/v1", APIKeyEnvVar: "OPENAI_API_KEY", CompletionTokens: true},
	"xai":    {Name: "xai", BaseURL: "https://api.x.ai/v1", APIKeyEnvVar: "XAI_API_KEY"},
	"groq":   {Name: "groq", BaseURL: "https://api.groq.com/openai/v1", APIKeyEnvVar: "GROQ_API_KEY"},
}

// Client calls a chat completion endpoint.
type Client struct {
	preset Preset
	client *openai.Client
}

// New creates a client for preset. A non-empty baseURL overrides the preset's.
func New(preset Preset, apiKey, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = preset.BaseURL
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{preset: preset, client: openai.NewClientWithConfig(cfg)}
}

// Name returns the preset name.
func (c *Client) Name() string { return c.preset.Name }

// Call runs one chat completion with a system and a user message.
func (c *Client) Call(ctx context.Context, req llmtypes.Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.User})

	params := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	}
	if c.preset.CompletionTokens {
		params.MaxCompletionTokens = req.MaxTokensOrDefault()
	} else {
		params.MaxTokens = req.MaxTokensOrDefault()
	}
	if req.Temperature != nil {
		params.Temperature = temperature(*req.Temperature)
	}

	resp, err := c.client.CreateChatCompletion(ctx, params)
	if err != nil {
		return "", c.classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", llmtypes.NewError(llmtypes.ErrUnknown, c.preset.Name, 0, errors.New("response contained no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

// temperature converts t for go-openai, which omits a zero temperature from
// the request. The smallest positive float32 is sent for zero instead.
func temperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

func (c *Client) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return c.statusError(apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return c.statusError(reqErr.HTTPStatusCode, err)
	}

	return llmtypes.Classify(c.preset.Name, err)
}

func (c *Client) statusError(code int, err error) error {
	e := llmtypes.NewError(llmtypes.KindForStatus(code), c.preset.Name, code, err)
	if e.Kind == llmtypes.ErrAuthentication {
		e.KeyEnvVar = c.preset.APIKeyEnvVar
	}
	return e
}
