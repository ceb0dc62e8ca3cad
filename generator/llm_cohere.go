package generator

import (
	"context"
	"errors"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	cohereoption "github.com/cohere-ai/cohere-go/v2/option"
)

// CohereLLM implements LLMClient on the Cohere chat API.
type CohereLLM struct {
	Model  string
	client *cohereclient.Client
}

func NewCohereLLMFromConfig(cfg *LLMSettings) (*CohereLLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("cohere api key missing; provide llm.api_key")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	opts := []cohereoption.RequestOption{cohereclient.WithToken(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, cohereclient.WithBaseURL(cfg.BaseURL))
	}
	return &CohereLLM{Model: cfg.Model, client: cohereclient.NewClient(opts...)}, nil
}

// Generate 把消息序列映射到 Cohere 的 preamble/chat_history/message 三段式。
func (c *CohereLLM) Generate(ctx context.Context, messages []Message) (string, error) {
	req := &cohere.ChatRequest{Model: cohere.String(c.Model)}

	last := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			last = i
			break
		}
	}
	if last == -1 {
		return "", &ModelInvocationError{Provider: "cohere", Err: errors.New("no user message to send")}
	}
	req.Message = messages[last].Content

	for i, m := range messages {
		if i == last {
			continue
		}
		switch m.Role {
		case RoleSystem:
			req.Preamble = cohere.String(m.Content)
		case RoleAssistant:
			req.ChatHistory = append(req.ChatHistory, &cohere.Message{
				Role:    "CHATBOT",
				Chatbot: &cohere.ChatMessage{Message: m.Content},
			})
		default:
			req.ChatHistory = append(req.ChatHistory, &cohere.Message{
				Role: "USER",
				User: &cohere.ChatMessage{Message: m.Content},
			})
		}
	}

	resp, err := c.client.Chat(ctx, req)
	if err != nil {
		return "", &ModelInvocationError{Provider: "cohere", Err: err}
	}
	if resp == nil || resp.Text == "" {
		return "", &ModelInvocationError{Provider: "cohere", Err: errors.New("empty response text")}
	}
	return resp.Text, nil
}
