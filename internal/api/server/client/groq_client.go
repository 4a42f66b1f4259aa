package client

import (
	"context"
	"fmt"

	"github.com/bz888/seally/internal/logger"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

// GroqClient talks to Groq through its OpenAI compatible API.
type GroqClient struct {
	client openai.Client
	config ClientConfig
	logger *logger.Logger
}

// NewGroqClient creates a completion client. Extra request options are
// applied after the defaults, tests use them to swap the HTTP client.
func NewGroqClient(config ClientConfig, opts ...option.RequestOption) *GroqClient {
	defaults := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithBaseURL(config.BaseURL),
		// failures are terminal for an exchange
		option.WithMaxRetries(0),
	}

	return &GroqClient{
		client: openai.NewClient(append(defaults, opts...)...),
		config: config,
		logger: logger.NewLogger("groq client"),
	}
}

// Stream opens a streamed chat completion. Request errors from the upstream
// surface on the first call to Next of the returned stream.
func (c *GroqClient) Stream(ctx context.Context, messages []Message) (DeltaStream, error) {
	if c.config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	params, err := c.buildParams(messages)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Opening stream, model:", c.config.Model, "messages:", len(messages))
	return &groqStream{stream: c.client.Chat.Completions.NewStreaming(ctx, params)}, nil
}

func (c *GroqClient) buildParams(messages []Message) (openai.ChatCompletionNewParams, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.config.Model),
		Temperature: openai.Float(c.config.Temperature),
		Messages:    make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
	}

	for i, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case RoleUser:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		case RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			return params, fmt.Errorf("message %d: unsupported role %q", i, msg.Role)
		}
	}
	return params, nil
}

type groqStream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
	delta  string
}

// Next advances to the next chunk. Chunks without choices yield an empty delta.
func (s *groqStream) Next() bool {
	if !s.stream.Next() {
		s.delta = ""
		return false
	}

	chunk := s.stream.Current()
	s.delta = ""
	if len(chunk.Choices) > 0 {
		s.delta = chunk.Choices[0].Delta.Content
	}
	return true
}

func (s *groqStream) Delta() string {
	return s.delta
}

func (s *groqStream) Err() error {
	return s.stream.Err()
}

func (s *groqStream) Close() error {
	return s.stream.Close()
}
