// Package anthropic adapts the Anthropic Messages API to the provider contract.
package anthropic

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"

	llmtypes "github.com/jingkaihe/skillet/pkg/llm/types"
)

const (
	ProviderName = "anthropic"
	APIKeyEnvVar = "ANTHROPIC_API_KEY"

	probePrompt = "ping"
)

// Client calls the Anthropic Messages API.
type Client struct {
	client anthropic.Client
}

// New creates a client. SDK-level retries are disabled; the dispatcher owns
// the retry policy.
func New(apiKey string, opts ...option.RequestOption) *Client {
	reqOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	return &Client{client: anthropic.NewClient(reqOpts...)}
}

// Name returns the provider name.
func (c *Client) Name() string { return ProviderName }

// Call sends one user message with the given system prompt and returns the
// concatenated text blocks of the reply.
func (c *Client) Call(ctx context.Context, req llmtypes.Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokensOrDefault()),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		}
	}
	if text.Len() == 0 {
		return "", llmtypes.NewError(llmtypes.ErrUnknown, ProviderName, 0, errors.Errorf("response contained no text (stop reason %q)", msg.StopReason))
	}
	return text.String(), nil
}

// Probe makes a one-token request to check whether model is accepted.
func (c *Client) Probe(ctx context.Context, model string) error {
	_, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(probePrompt)),
		},
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

func classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		e := llmtypes.NewError(llmtypes.KindForStatus(apiErr.StatusCode), ProviderName, apiErr.StatusCode, err)
		if e.Kind == llmtypes.ErrAuthentication {
			e.KeyEnvVar = APIKeyEnvVar
		}
		return e
	}
	return llmtypes.Classify(ProviderName, err)
}
