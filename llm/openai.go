package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

const (
	OpenAIID = "openai"

	DefaultModel = openai.GPT3Dot5Turbo
)

// OpenAIClient completes relay turns against an OpenAI-compatible chat
// completions endpoint. One attempt per call; cancellation comes from ctx.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

type OpenAIOption func(*openai.ClientConfig)

// WithBaseURL points the client at another OpenAI-compatible endpoint.
// The URL must include the version segment, e.g. "http://localhost:8080/v1".
func WithBaseURL(baseURL string) OpenAIOption {
	return func(cfg *openai.ClientConfig) {
		if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
			cfg.BaseURL = baseURL
		}
	}
}

func WithHTTPClient(httpClient *http.Client) OpenAIOption {
	return func(cfg *openai.ClientConfig) {
		if httpClient != nil {
			cfg.HTTPClient = httpClient
		}
	}
}

func NewOpenAIClient(apiKey, model string, opts ...OpenAIOption) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: api key must not be empty")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}

	cfg := openai.DefaultConfig(apiKey)
	for _, opt := range opts {
		opt(&cfg)
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (c *OpenAIClient) ID() string {
	return OpenAIID
}

func (c *OpenAIClient) Model() string {
	return c.model
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	turns := Turns(req)
	messages := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}

	log.Debug().
		Str("provider", OpenAIID).
		Str("model", c.model).
		Int("prior_len", len(req.Prior)).
		Str("text", req.Text).
		Msg("completion request")

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return Response{}, newProviderError(OpenAIID, err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, newProviderError(OpenAIID, ErrNoChoices)
	}

	text := resp.Choices[0].Message.Content
	if text == "" {
		return Response{}, newProviderError(OpenAIID, ErrEmptyContent)
	}

	log.Debug().
		Str("provider", OpenAIID).
		Str("response_id", resp.ID).
		Str("text", text).
		Msg("completion response")

	return Response{Text: text}, nil
}
