package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/bz888/seally/internal/api/server/client"
	"github.com/bz888/seally/internal/logger"
	"github.com/google/uuid"
)

type Message = client.Message

const DefaultGreeting = "Hi! I'm Seally, your friendly seal chat helper! How can I assist you today? " +
	"Ask me about anything relating to seals, their habitats, and what you can do to help them!"

const readChunkSize = 4096

var (
	ErrEmptyInput = errors.New("nothing to send")
	ErrBusy       = errors.New("a message is already being sent")
)

// Transport delivers a conversation to the relay and returns the reply body.
type Transport interface {
	Chat(ctx context.Context, messages []Message) (io.ReadCloser, error)
}

// State is the phase of the current exchange.
type State int

const (
	Idle State = iota
	Sending
	Streaming
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case Streaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// ChangeFunc observes the session after every change. It receives a copy
// of the conversation and is called without the session lock held.
type ChangeFunc func(messages []Message, state State)

type Option func(*Session)

func WithOnChange(fn ChangeFunc) Option {
	return func(s *Session) { s.onChange = fn }
}

// WithGreeting replaces the opening assistant message. An empty greeting
// starts with an empty conversation.
func WithGreeting(greeting string) Option {
	return func(s *Session) { s.greeting = greeting }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Session) { s.newID = fn }
}

// Session owns one conversation and allows a single exchange at a time.
type Session struct {
	transport Transport
	onChange  ChangeFunc
	greeting  string
	newID     func() string
	logger    *logger.Logger

	mu       sync.Mutex
	messages []Message
	state    State
}

func NewSession(transport Transport, opts ...Option) *Session {
	s := &Session{
		transport: transport,
		greeting:  DefaultGreeting,
		newID:     uuid.NewString,
		logger:    logger.NewLogger("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.greeting != "" {
		s.messages = append(s.messages, Message{Role: client.RoleAssistant, Content: s.greeting})
	}
	return s
}

// Messages returns a copy of the conversation.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Sending reports whether an exchange is in flight.
func (s *Session) Sending() bool {
	return s.State() != Idle
}

// Send appends input as a user message, posts the whole conversation and
// streams the reply into a new assistant message. It returns ErrBusy without
// touching the conversation while another exchange is in flight.
func (s *Session) Send(ctx context.Context, input string) error {
	if strings.TrimSpace(input) == "" {
		return ErrEmptyInput
	}

	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		return ErrBusy
	}
	s.messages = append(s.messages, Message{Role: client.RoleUser, Content: input})
	s.state = Sending
	history := s.snapshotLocked()
	s.mu.Unlock()
	s.notify()

	defer s.setState(Idle)

	body, err := s.transport.Chat(ctx, history)
	if err != nil {
		s.logger.Error("Error sending message:", err)
		return fmt.Errorf("send message: %w", err)
	}
	defer body.Close()

	id := s.newID()
	s.mu.Lock()
	s.messages = append(s.messages, Message{Role: client.RoleAssistant, ID: id})
	s.state = Streaming
	s.mu.Unlock()
	s.notify()

	reply, err := s.readReply(body, id)
	s.update(id, reply)
	if err != nil {
		s.logger.Error("Error reading reply:", err)
		return fmt.Errorf("read reply: %w", err)
	}
	s.logger.Info("Reply complete, bytes:", len(reply))
	return nil
}

// readReply decodes the body chunk by chunk, replacing the assistant message
// with everything received so far after each one.
func (s *Session) readReply(body io.Reader, id string) (string, error) {
	decoder := NewStreamDecoder()
	var accumulated strings.Builder
	buf := make([]byte, readChunkSize)

	for {
		n, err := body.Read(buf)
		if n > 0 {
			accumulated.WriteString(decoder.Decode(buf[:n], true))
			s.update(id, accumulated.String())
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			accumulated.WriteString(decoder.Decode(nil, false))
			return accumulated.String(), err
		}
	}

	accumulated.WriteString(decoder.Decode(nil, false))
	return accumulated.String(), nil
}

func (s *Session) update(id, content string) {
	s.mu.Lock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Content = content
			break
		}
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.notify()
}

func (s *Session) notify() {
	if s.onChange == nil {
		return
	}
	s.mu.Lock()
	messages, state := s.snapshotLocked(), s.state
	s.mu.Unlock()
	s.onChange(messages, state)
}

func (s *Session) snapshotLocked() []Message {
	return append([]Message(nil), s.messages...)
}
