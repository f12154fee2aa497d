// Package llm provides the model-backed summarizer used for compaction.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ngaut/NexusCRM-sub002/internal/pkg/logger"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL points at a local OpenAI-compatible server
	DefaultBaseURL = "http://localhost:1234/v1"
	// DefaultModel is the default summarization model
	DefaultModel = "nvidia-nemotron-3-nano-30b-a3b-mlx"
	// DefaultTimeout bounds one summarization call
	DefaultTimeout = 300 * time.Second

	summaryTemperature = 0.3
)

// Config configures the summarizer
type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// chatClient is the subset of the OpenAI client used here
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAISummarizer summarizes through an OpenAI-compatible chat endpoint
type OpenAISummarizer struct {
	client chatClient
	model  string
	logger *logger.Logger
}

// NewOpenAISummarizer creates a summarizer
func NewOpenAISummarizer(cfg *Config, lgr *logger.Logger) *OpenAISummarizer {
	if cfg == nil {
		cfg = &Config{}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log := lgr
	if log == nil {
		log = logger.L()
	}

	// local servers accept any key
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	log.Info("summarizer created",
		zap.String("base_url", clientCfg.BaseURL),
		zap.String("model", model))

	return &OpenAISummarizer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: log,
	}
}

// Model returns the model in use
func (s *OpenAISummarizer) Model() string {
	return s.model
}

// Summarize implements compactor.Summarizer
func (s *OpenAISummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: summaryTemperature,
	})
	if err != nil {
		s.logger.WithContext(ctx).Error("summarization request failed",
			zap.String("model", s.model),
			zap.Error(err))
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}

	s.logger.WithContext(ctx).Debug("summarization completed",
		zap.String("model", s.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("latency", time.Since(start)))

	return resp.Choices[0].Message.Content, nil
}
