package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/ngaut/NexusCRM-sub002/internal/pkg/logger"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	req  openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func newTestSummarizer(t *testing.T, fc *fakeChat) *OpenAISummarizer {
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "console"})
	require.NoError(t, err)
	s := NewOpenAISummarizer(&Config{Model: "test-model"}, log)
	s.client = fc
	return s
}

func TestSummarize(t *testing.T) {
	fc := &fakeChat{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "the summary"}}},
	}}
	s := newTestSummarizer(t, fc)

	out, err := s.Summarize(context.Background(), "summarize this")
	require.NoError(t, err)
	assert.Equal(t, "the summary", out)

	assert.Equal(t, "test-model", fc.req.Model)
	assert.InDelta(t, 0.3, fc.req.Temperature, 1e-6)
	require.Len(t, fc.req.Messages, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, fc.req.Messages[0].Role)
	assert.Equal(t, "summarize this", fc.req.Messages[0].Content)
}

func TestSummarizeNoChoices(t *testing.T) {
	s := newTestSummarizer(t, &fakeChat{})
	out, err := s.Summarize(context.Background(), "p")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSummarizeError(t *testing.T) {
	s := newTestSummarizer(t, &fakeChat{err: errors.New("boom")})
	_, err := s.Summarize(context.Background(), "p")
	assert.ErrorContains(t, err, "boom")
}

func TestDefaults(t *testing.T) {
	s := NewOpenAISummarizer(nil, nil)
	assert.Equal(t, DefaultModel, s.Model())
}
