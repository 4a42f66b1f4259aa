package client

import (
	"context"
	"errors"
)

var ErrMissingAPIKey = errors.New("missing API key: set GROQ_API_KEY")

// DeltaStream is a lazy, order preserving sequence of text deltas. It can be
// consumed once; Next returns false when the upstream is exhausted or failed,
// Err tells the two apart.
type DeltaStream interface {
	Next() bool
	Delta() string
	Err() error
	Close() error
}

// Completer opens a streamed completion for a list of messages.
type Completer interface {
	Stream(ctx context.Context, messages []Message) (DeltaStream, error)
}

// ClientConfig holds the configuration for an upstream client
type ClientConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}
