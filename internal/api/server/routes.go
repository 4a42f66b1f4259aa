package server

import (
	"github.com/bz888/seally/internal/api/server/handlers"
	"github.com/gin-gonic/gin"
)

func registerRoutes(r gin.IRouter, handler *handlers.Handler) {
	r.POST("/api/chat", handler.ChatHandler)
	r.GET("/status", handler.StatusHandler)
}
