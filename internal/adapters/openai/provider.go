package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/peraluna/trip-planner-api/internal/ports/out/assistant"
)

const DefaultModel = "gpt-4o-mini"

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Provider streams chat completions from an OpenAI-compatible endpoint.
type Provider struct {
	client openai.Client
	model  string
}

func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing api key", assistant.ErrUnavailable)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Provider{client: openai.NewClient(opts...), model: model}, nil
}

// Stream forwards content deltas to onDelta. Failures before the first delta are
// reported as assistant.ErrUnavailable so callers can degrade gracefully.
func (p *Provider) Stream(ctx context.Context, req assistant.Request, onDelta func(string) error) error {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: toMessages(req),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(req.MaxTokens)
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var (
		emitted  bool
		deltaErr error
	)
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		text := chunk.Choices[0].Delta.Content
		if text == "" {
			continue
		}
		if err := onDelta(text); err != nil {
			deltaErr = err
			break
		}
		emitted = true
	}
	if deltaErr != nil {
		return deltaErr
	}
	if err := stream.Err(); err != nil {
		if emitted || errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", assistant.ErrUnavailable, err)
	}
	return nil
}

func toMessages(req assistant.Request) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Turns)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(req.SystemPrompt))
	}
	for _, t := range req.Turns {
		switch t.Role {
		case assistant.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(t.Content))
		default:
			msgs = append(msgs, openai.UserMessage(t.Content))
		}
	}
	return msgs
}

var _ assistant.Provider = (*Provider)(nil)
