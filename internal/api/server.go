// Package api provides the HTTP server for the Perplexity Proxy API: the
// Gin engine, routing, CORS and API-key authentication middleware, and
// graceful shutdown. Configuration reloads apply to a running server.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/router-for-me/PerplexityProxyAPI/internal/api/handlers"
	"github.com/router-for-me/PerplexityProxyAPI/internal/api/handlers/management"
	"github.com/router-for-me/PerplexityProxyAPI/internal/api/handlers/openai"
	"github.com/router-for-me/PerplexityProxyAPI/internal/config"
	"github.com/router-for-me/PerplexityProxyAPI/internal/logging"
	"github.com/router-for-me/PerplexityProxyAPI/internal/util"
)

// Server represents the main API server.
type Server struct {
	engine        *gin.Engine
	server        *http.Server
	handlers      *handlers.BaseAPIHandler
	requestLogger *logging.RequestLogger

	mu  sync.RWMutex
	cfg *config.Config
}

// NewServer creates and initializes a new API server instance.
func NewServer(cfg *config.Config, base *handlers.BaseAPIHandler) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	requestLogger := logging.NewRequestLogger(cfg.RequestLog, "logs")
	engine.Use(logging.GinLogrusLogger())
	engine.Use(logging.GinLogrusRecovery())
	engine.Use(requestLogger.Middleware())
	engine.Use(corsMiddleware())

	s := &Server{
		engine:        engine,
		handlers:      base,
		requestLogger: requestLogger,
		cfg:           cfg,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: engine,
	}
	return s
}

// setupRoutes configures the API routes for the server.
func (s *Server) setupRoutes() {
	openaiHandlers := openai.NewOpenAIAPIHandler(s.handlers)
	managementHandlers := management.NewHandler(s.handlers)

	v1 := s.engine.Group("/v1")
	v1.Use(s.authMiddleware())
	{
		v1.GET("/models", openaiHandlers.OpenAIModels)
		v1.POST("/chat/completions", openaiHandlers.ChatCompletions)
		v1.GET("/conversations", managementHandlers.GetConversations)
		v1.POST("/conversations/reset", managementHandlers.ResetConversation)
		v1.POST("/conversations/reset-all", managementHandlers.ResetAllConversations)
		v1.GET("/usage", managementHandlers.GetUsage)
	}

	s.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Perplexity Proxy API Server",
			"endpoints": []string{
				"POST /v1/chat/completions",
				"GET /v1/models",
				"GET /v1/conversations",
				"POST /v1/conversations/reset",
				"POST /v1/conversations/reset-all",
				"GET /v1/usage",
			},
		})
	})

	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":               "ok",
			"active_conversations": s.handlers.Conversations.ActiveCount(),
		})
	})
}

// Start begins listening for requests. It blocks until the server stops.
func (s *Server) Start() error {
	log.Infof("API server listening on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying engine, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// UpdateConfig applies a reloaded configuration to the running server.
// API keys, debug level, request logging, and the upstream parameters take
// effect immediately; the listen port does not change at runtime.
func (s *Server) UpdateConfig(cfg *config.Config) {
	s.mu.Lock()
	previous := s.cfg
	s.cfg = cfg
	s.mu.Unlock()

	util.SetLogLevel(cfg)
	if previous.LoggingToFile != cfg.LoggingToFile {
		if err := logging.ConfigureLogOutput(cfg.LoggingToFile); err != nil {
			log.Errorf("failed to reconfigure log output: %v", err)
		}
	}
	s.requestLogger.SetEnabled(cfg.RequestLog)
	s.handlers.UpdateConfig(cfg)
	log.Debugf("server configuration updated")
}

func (s *Server) currentConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// authMiddleware authenticates requests using the configured API keys.
// When no keys are configured, every request is allowed.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := s.currentConfig()
		if len(cfg.APIKeys) == 0 {
			c.Next()
			return
		}

		key := c.GetHeader("X-Api-Key")
		if key == "" {
			authHeader := c.GetHeader("Authorization")
			key = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		}

		for _, candidate := range cfg.APIKeys {
			if candidate != "" && candidate == key {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{
				Message: "Invalid API key",
				Type:    "authentication_error",
			},
		})
	}
}

// corsMiddleware adds CORS headers to every response.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Api-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
