package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harkida/Gemini-WebExersice/internal/config"
	"github.com/harkida/Gemini-WebExersice/internal/engine"
	"github.com/harkida/Gemini-WebExersice/internal/handlers"
	"github.com/harkida/Gemini-WebExersice/internal/logger"
	"github.com/harkida/Gemini-WebExersice/internal/middleware"
	"github.com/harkida/Gemini-WebExersice/internal/services"
	"github.com/harkida/Gemini-WebExersice/internal/storage"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg)

	log.Info("Starting Dialogue API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"model_name", cfg.GeminiModel)

	if cfg.GeminiAPIKey == "" {
		log.Error("GEMINI_API_KEY is required")
		os.Exit(1)
	}
	if cfg.AdminAPIKey == "" {
		log.Warn("ADMIN_API_KEY is not set, admin endpoints are disabled")
	}

	gemini := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, log)

	var synth services.Synthesizer
	if cfg.ElevenLabsAPIKey != "" {
		synth = services.NewElevenLabsService(cfg.ElevenLabsAPIKey, cfg.ElevenLabsModelID, cfg.ElevenLabsVoiceID, log)
	} else {
		log.Warn("ELEVENLABS_API_KEY is not set, responses will be text-only")
		synth = services.NoopSynthesizer{}
	}

	store := storage.NewRedisStorage(cfg.RedisURL, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}

	eng := engine.New(store, gemini, gemini, synth, log)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, log)
	mux.Handle("/health", healthHandler)

	turnHandler := handlers.NewTurnHandler(eng, log)
	mux.Handle("/v1/turns", turnHandler)
	mux.Handle("/v1/turns/", turnHandler)

	historyHandler := handlers.NewHistoryHandler(eng, log)
	mux.Handle("/v1/history", historyHandler)

	sessionHandler := handlers.NewSessionHandler(store, cfg.AdminAPIKey, log)
	mux.Handle("/v1/sessions", sessionHandler)
	mux.Handle("/v1/sessions/", sessionHandler)

	teamHandler := handlers.NewTeamHandler(store, log)
	mux.Handle("/v1/teams/join", teamHandler)

	scenarioHandler := handlers.NewScenarioHandler(store, cfg.AdminAPIKey, log)
	mux.Handle("/v1/scenarios", scenarioHandler)
	mux.Handle("/v1/scenarios/", scenarioHandler)

	handler := middleware.Logger(mux, log)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
