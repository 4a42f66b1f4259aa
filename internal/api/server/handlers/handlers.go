package handlers

import (
	"net/http"

	"github.com/bz888/seally/internal/api/server/client"
	"github.com/bz888/seally/internal/logger"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	completer client.Completer
	prompt    string
	logger    *logger.Logger
}

func NewHandler(completer client.Completer, prompt string) *Handler {
	return &Handler{
		completer: completer,
		prompt:    prompt,
		logger:    logger.NewLogger("ChatHandler"),
	}
}

func (h *Handler) StatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, client.StatusResponse{
		PortWorking:   true,
		ServerWorking: true,
	})
}
