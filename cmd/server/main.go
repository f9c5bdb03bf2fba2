package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ctchen222/tictactoe/internal/bot"
	"github.com/ctchen222/tictactoe/internal/config"
	"github.com/ctchen222/tictactoe/internal/controller"
	"github.com/ctchen222/tictactoe/internal/hub"
	"github.com/ctchen222/tictactoe/internal/logger"
	"github.com/ctchen222/tictactoe/internal/server"
	"github.com/ctchen222/tictactoe/internal/telemetry"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize telemetry
	shutdown, err := telemetry.InitOtel(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	logger.Init(cfg.LogLevel)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics, err := telemetry.NewGlobalGameMetrics()
	if err != nil {
		log.Fatalf("failed to create metrics: %v", err)
	}

	seed := cfg.Game.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	slog.Info("Starting game", "mode", cfg.Game.Mode, "difficulty", cfg.Game.Difficulty, "seed", seed)

	// Create hub and controller
	h := hub.NewHub(hub.WithAckTimeout(cfg.Game.OutcomeAckTimeout))
	ctrl := controller.New(
		controller.WithMode(controller.Mode(cfg.Game.Mode)),
		controller.WithDifficulty(bot.Difficulty(cfg.Game.Difficulty)),
		controller.WithSelector(bot.NewSelector(rand.New(rand.NewPCG(seed, seed)), metrics)),
		controller.WithPresenter(h),
		controller.WithDelay(controller.SleepDelay(cfg.Game.AIDelay)),
		controller.WithMetrics(metrics),
	)

	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		h.Run(hubCtx, ctrl)
	}()

	srv := server.NewServer(h)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Engine(),
	}

	go func() {
		slog.Info("http server started", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-ctx.Done()

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Stop the hub first so open viewers are closed.
	stopHub()
	<-hubDone

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exiting")
}
