// ABOUTME: Chat completion client for any OpenAI-compatible endpoint
// ABOUTME: Also provides conversation summarization for context condensing

package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/2389/parley-gateway/internal/conversation"
)

// ErrUpstream marks a failure of the model endpoint: transport errors,
// non-2xx responses, or responses with no choices.
var ErrUpstream = errors.New("upstream completion failure")

// Config holds the model endpoint settings.
type Config struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Result is a completed model response.
type Result struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	api    *openai.Client
	cfg    Config
	logger *slog.Logger
}

// NewClient builds a completion client. BaseURL may point at any
// OpenAI-compatible server; empty means the default API host.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:    openai.NewClientWithConfig(apiCfg),
		cfg:    cfg,
		logger: logger.With("component", "ai"),
	}
}

// systemInstruction returns the per-output-flag system prompt. The model is
// told how its output will be rendered so it structures the text accordingly.
func systemInstruction(flag string) string {
	switch flag {
	case "pdf":
		return "You are a helpful assistant. Your response will be rendered into a PDF document. Use clear headings, paragraphs, and plain text without markdown syntax."
	case "word":
		return "You are a helpful assistant. Your response will be rendered into a Word document. Use clear headings and paragraphs of plain text."
	case "excel":
		return "You are a helpful assistant. Your response will be rendered into a spreadsheet. Produce tabular data, one row per line, columns separated by tabs."
	case "powerpoint":
		return "You are a helpful assistant. Your response will be rendered into a slide deck. Separate slides with blank lines and start each slide with a short title line."
	case "checklist":
		return "You are a helpful assistant. Your response will be rendered into a checklist. Format it as a markdown list with one actionable item per line."
	default:
		return "You are a helpful assistant in a group conversation."
	}
}

// Complete sends the assembled conversation to the model and returns its
// reply. The output flag selects the system instruction prepended to the
// request.
func (c *Client) Complete(ctx context.Context, entries []conversation.Entry, flag string) (Result, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(entries)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemInstruction(flag),
	})
	for _, e := range entries {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    e.Role,
			Content: e.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("%w: response contained no choices", ErrUpstream)
	}

	c.logger.Info("completion finished",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return Result{
		Content:          resp.Choices[0].Message.Content,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// Summarize condenses conversation text into a short summary. Satisfies the
// context assembler's Summarizer so the older portion of a long conversation
// can be folded into a single entry.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "Summarize the following conversation concisely, preserving names, decisions, and open questions.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: response contained no choices", ErrUpstream)
	}
	return resp.Choices[0].Message.Content, nil
}
