package generator

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"vibelog/internal/domain"
)

// OpenAI produces blog drafts through the chat completions API. It
// implements domain.DraftGenerator.
type OpenAI struct {
	model  string
	opts   []option.RequestOption
	logger *slog.Logger
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string // optional, for OpenAI-compatible endpoints
	Logger  *slog.Logger
}

func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key missing; set llm.api_key or OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{model: cfg.Model, opts: opts, logger: cfg.Logger}, nil
}

// Generate asks the model for a complete draft in markdown and parses the
// title and teaser out of it.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (domain.GeneratedDraft, error) {
	client := openai.NewClient(o.opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return domain.GeneratedDraft{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.GeneratedDraft{}, fmt.Errorf("chat completion returned no choices")
	}

	draft, err := parseDraft(resp.Choices[0].Message.Content)
	if err != nil {
		return domain.GeneratedDraft{}, err
	}

	o.logger.Debug("draft generated",
		"model", o.model, "title", draft.Title, "lang", draft.DetectedLanguage)
	return draft, nil
}
