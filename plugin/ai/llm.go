// Package ai provides the conversational assistant behind the chat-based
// scheduling flow: an LLM client for meeting-data extraction and a
// rule-based fallback for when no LLM backend is reachable.
package ai

import (
	"context"
	"time"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/confluo/confluo/internal/profile"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// LLMService is the LLM service interface.
type LLMService interface {
	// Chat performs synchronous chat and returns the assistant reply.
	Chat(ctx context.Context, messages []Message) (string, error)
}

type llmService struct {
	client *openai.Client
	model  string
}

// NewLLMService creates an LLMService against any OpenAI-compatible backend.
func NewLLMService(p *profile.Profile) (LLMService, error) {
	if !p.IsAIEnabled() {
		return nil, errors.New("AI is not enabled or no API key configured")
	}

	config := openai.DefaultConfig(p.AIAPIKey)
	if p.AIBaseURL != "" {
		config.BaseURL = p.AIBaseURL
	}

	return &llmService{
		client: openai.NewClientWithConfig(config),
		model:  p.AIModel,
	}, nil
}

// chatTimeout bounds a single completion call so a slow backend cannot
// stall an assistant turn.
const chatTimeout = 30 * time.Second

func (s *llmService) Chat(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    chatMessages,
		Temperature: 0.2,
	})
	if err != nil {
		return "", errors.Wrap(err, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
