// Command server runs the Perplexity Proxy API: an OpenAI-compatible
// chat-completion endpoint backed by the Perplexity web SSE interface.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/router-for-me/PerplexityProxyAPI/internal/api"
	"github.com/router-for-me/PerplexityProxyAPI/internal/api/handlers"
	"github.com/router-for-me/PerplexityProxyAPI/internal/config"
	"github.com/router-for-me/PerplexityProxyAPI/internal/conversation"
	"github.com/router-for-me/PerplexityProxyAPI/internal/logging"
	"github.com/router-for-me/PerplexityProxyAPI/internal/usage"
	"github.com/router-for-me/PerplexityProxyAPI/internal/util"
	"github.com/router-for-me/PerplexityProxyAPI/internal/watcher"
)

const shutdownTimeout = 5 * time.Second

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Configuration file path")
	flag.Parse()

	logging.SetupBaseLogger()

	if configPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			log.Fatalf("failed to get working directory: %v", err)
		}
		configPath = filepath.Join(wd, "config.yaml")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err = logging.ConfigureLogOutput(cfg.LoggingToFile); err != nil {
		log.Fatalf("failed to configure log output: %v", err)
	}
	util.SetLogLevel(cfg)

	conversations := conversation.NewManager(cfg.Conversation.MaxTurns, cfg.Conversation.MaxSessions)
	stats := usage.NewStatistics(cfg.UsageStatisticsPath)
	base := handlers.NewBaseAPIHandler(cfg, conversations, stats)
	server := api.NewServer(cfg, base)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configWatcher := watcher.NewWatcher(configPath, server.UpdateConfig)
	go func() {
		if errWatch := configWatcher.Start(ctx); errWatch != nil && !errors.Is(errWatch, context.Canceled) {
			log.Warnf("config watcher stopped: %v", errWatch)
		}
	}()

	go func() {
		if errServe := server.Start(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			log.Fatalf("server error: %v", errServe)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown error: %v", err)
	}
}
