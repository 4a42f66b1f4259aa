package handlers

import (
	"errors"
	"net/http"

	"github.com/bz888/seally/internal/api/server/client"
	"github.com/gin-gonic/gin"
)

const InvalidRequestMessage = "Invalid request format. Expected user messages."

var errMissingMessages = errors.New("messages: expected an array of messages")

// ChatHandler relays the user messages of a conversation upstream and streams
// the generated text back as it arrives, one write and flush per delta.
func (h *Handler) ChatHandler(c *gin.Context) {
	var req struct {
		Messages []client.Message `json:"messages"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, err)
		return
	}
	if req.Messages == nil {
		h.fail(c, errMissingMessages)
		return
	}

	userMessages := FilterUserMessages(req.Messages)
	if len(userMessages) == 0 {
		h.logger.Warn("Rejected request without user messages")
		c.JSON(http.StatusBadRequest, client.ValidationResponse{Message: InvalidRequestMessage})
		return
	}

	stream, err := h.completer.Stream(c.Request.Context(), BuildUpstreamMessages(h.prompt, userMessages))
	if err != nil {
		h.fail(c, err)
		return
	}
	defer stream.Close()

	started := false
	for stream.Next() {
		delta := stream.Delta()
		if delta == "" {
			continue
		}
		if !started {
			startStream(c)
			started = true
		}
		if _, err := c.Writer.WriteString(delta); err != nil {
			h.logger.Warn("Client went away:", err)
			return
		}
		c.Writer.Flush()
	}

	if err := stream.Err(); err != nil {
		if !started {
			h.fail(c, err)
			return
		}
		h.logger.Error("Upstream stream failed:", err)
		// the client must see a truncated body, not a clean end of stream
		panic(http.ErrAbortHandler)
	}

	if !started {
		startStream(c)
	}
	h.logger.Info("Completed response")
}

func startStream(c *gin.Context) {
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
}

func (h *Handler) fail(c *gin.Context, err error) {
	h.logger.Error("Error:", err)
	c.JSON(http.StatusInternalServerError, client.ErrorResponse{Error: err.Error()})
}

// FilterUserMessages keeps the user messages of a conversation, in order.
func FilterUserMessages(messages []client.Message) []client.Message {
	filtered := make([]client.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == client.RoleUser {
			filtered = append(filtered, client.Message{Role: msg.Role, Content: msg.Content})
		}
	}
	return filtered
}

// BuildUpstreamMessages prepends the system prompt to the user messages.
func BuildUpstreamMessages(prompt string, userMessages []client.Message) []client.Message {
	messages := make([]client.Message, 0, len(userMessages)+1)
	messages = append(messages, client.Message{Role: client.RoleSystem, Content: prompt})
	return append(messages, userMessages...)
}
