package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jjspscl/hunt-st-assessment/internal/service"
	handler "github.com/jjspscl/hunt-st-assessment/internal/transport/http"
	"github.com/jjspscl/hunt-st-assessment/internal/transport/ws"
)

var sweepInterval time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&sweepInterval, "sweep-interval", time.Minute, "How often expired idempotency records and sessions are purged")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := ws.NewHub()
	a, err := newApp(ctx, service.WithNotifier(hub))
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg

	log.Printf("Starting taskchat...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s (%s)", cfg.DatabaseURL, cfg.DatabaseDriver)
	log.Printf("LLM: %s model=%s mode=%s", cfg.LLMBaseURL, cfg.LLMModel, cfg.Mode)
	if cfg.LLMAPIKey == "" && !cfg.MockMode() {
		log.Printf("WARN: no LLM API key configured, chat requests will fail")
	}
	if cfg.AuthEnabled() {
		log.Printf("Password auth enabled")
	}

	go hub.Run(ctx)
	go a.svc.RunExpirySweeper(ctx, sweepInterval)

	server := handler.NewServer(a.svc, ws.NewServer(hub, cfg.WSPingInterval, cfg.OriginAllowed))

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down taskchat...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	// Turns whose clients went away keep running until they finalize.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.ChatTurnTimeout)
	defer drainCancel()
	if err := a.svc.Drain(drainCtx); err != nil {
		log.Printf("WARN: chat turns still running at exit: %v", err)
	}

	log.Println("taskchat stopped")
	return nil
}
