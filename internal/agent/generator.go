package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go/v3"
	openaioption "github.com/openai/openai-go/v3/option"
)

// ErrNotConfigured is returned when no provider key is set.
var ErrNotConfigured = errors.New("AI provider API key not configured")

const (
	defaultAnthropicModel = "claude-sonnet-4-5"
	defaultOpenAIModel    = "gpt-4o-search-preview"
	maxOutputTokens       = 4096
	webSearchMaxUses      = 5
)

// Generator sends one prompt to a language model and returns its text.
type Generator interface {
	Name() string
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// ProviderConfig selects and configures a Generator.
type ProviderConfig struct {
	Provider string
	APIKey   string
	Model    string
	// BaseURL overrides the provider endpoint, used by tests and proxies.
	BaseURL string
}

// NewGenerator returns the Generator for cfg.Provider.
func NewGenerator(cfg ProviderConfig) (Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "anthropic":
		return NewAnthropicGenerator(cfg), nil
	case "openai":
		return NewOpenAIGenerator(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
	}
}

// AnthropicGenerator calls the Messages API with the web search tool enabled.
type AnthropicGenerator struct {
	client anthropic.Client
	model  string
}

func NewAnthropicGenerator(cfg ProviderConfig) *AnthropicGenerator {
	opts := []anthropicoption.RequestOption{anthropicoption.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicGenerator{client: anthropic.NewClient(opts...), model: model}
}

func (g *AnthropicGenerator) Name() string { return "anthropic" }

func (g *AnthropicGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: maxOutputTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Tools: []anthropic.ToolUnionParam{
			{OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{MaxUses: anthropic.Int(webSearchMaxUses)}},
		},
	})
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	return out.String(), nil
}

// OpenAIGenerator calls the Chat Completions API. Search models are sent
// web_search_options so answers are grounded the same way as the Anthropic
// path; other models answer from training data only.
type OpenAIGenerator struct {
	client openai.Client
	model  string
}

func NewOpenAIGenerator(cfg ProviderConfig) *OpenAIGenerator {
	opts := []openaioption.RequestOption{openaioption.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, openaioption.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIGenerator{client: openai.NewClient(opts...), model: model}
}

func (g *OpenAIGenerator) Name() string { return "openai" }

func (g *OpenAIGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
	}
	if searchModel(g.model) {
		params.WebSearchOptions = openai.ChatCompletionNewParamsWebSearchOptions{SearchContextSize: "medium"}
	}
	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// searchModel reports whether model accepts web_search_options.
func searchModel(model string) bool {
	return strings.Contains(strings.ToLower(model), "search")
}
