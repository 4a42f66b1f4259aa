package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	serverClient "github.com/bz888/seally/internal/api/server/client"
	"github.com/bz888/seally/internal/logger"
)

// maxErrorBody caps how much of a failed response is kept for the error.
const maxErrorBody = 4 << 10

// StatusError is returned when the relay answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// Client talks to the relay server.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *logger.Logger
}

// NewClient creates a relay client. A nil httpClient uses a client without
// timeout, streams may stay open for as long as the upstream generates.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		base:   base,
		http:   httpClient,
		logger: logger.NewLogger("api client"),
	}, nil
}

// Chat posts the conversation and returns the streamed reply body. The
// caller must close it.
func (c *Client) Chat(ctx context.Context, messages []serverClient.Message) (io.ReadCloser, error) {
	requestData, err := json.Marshal(serverClient.ChatRequest{Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("serialize request: %w", err)
	}

	requestURL := c.base.ResolveReference(&url.URL{Path: "/api/chat"})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL.String(), bytes.NewReader(requestData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("Sending conversation, messages:", len(messages))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return resp.Body, nil
}

// Status checks that the relay is up.
func (c *Client) Status(ctx context.Context) error {
	requestURL := c.base.ResolveReference(&url.URL{Path: "/status"})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode}
	}

	var status serverClient.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	if !status.ServerWorking {
		return fmt.Errorf("server reports it is not working")
	}
	return nil
}
