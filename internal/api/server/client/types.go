package client

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a conversation. ID is only set on the client side
// to address the assistant reply that is being streamed.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	ID      string `json:"id,omitempty"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages []Message `json:"messages"`
}

// ValidationResponse is returned with 400 when no user messages are present.
type ValidationResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is returned with 500 when the request could not be set up.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	PortWorking   bool `json:"port_working"`
	ServerWorking bool `json:"server_working"`
}
