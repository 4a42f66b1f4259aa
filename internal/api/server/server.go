package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bz888/seally/internal/api/server/client"
	"github.com/bz888/seally/internal/api/server/handlers"
	"github.com/bz888/seally/internal/config"
	"github.com/bz888/seally/internal/logger"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	logger *logger.Logger
}

// New builds the relay around an upstream completer.
func New(cfg *config.Config, completer client.Completer) *Server {
	s := &Server{
		cfg:    cfg,
		engine: gin.New(),
		logger: logger.NewLogger("Server"),
	}

	s.engine.Use(gin.LoggerWithWriter(logger.NewLogger("http")), recovery(s.logger))
	registerRoutes(s.engine, handlers.NewHandler(completer, cfg.SystemPrompt))
	return s
}

// NewFromConfig builds the relay with a Groq completion client.
func NewFromConfig(cfg *config.Config) *Server {
	completer := client.NewGroqClient(client.ClientConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
	})
	return New(cfg, completer)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

// Listen binds the configured address.
func (s *Server) Listen() (net.Listener, error) {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return listener, nil
}

// Serve serves on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if s.cfg.APIKey == "" {
		s.logger.Warn("GROQ_API_KEY not provided, chat requests will fail")
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server started on http://" + listener.Addr().String() + "/")
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// recovery turns panics into a 500, except http.ErrAbortHandler which must
// reach net/http so the connection is torn down.
func recovery(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			l.Error("Recovered from panic:", rec)
			if !c.Writer.Written() {
				c.AbortWithStatusJSON(http.StatusInternalServerError, client.ErrorResponse{Error: fmt.Sprint(rec)})
				return
			}
			c.Abort()
		}()
		c.Next()
	}
}
