package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/jjspscl/hunt-st-assessment/internal/adapter/llm"
	"github.com/jjspscl/hunt-st-assessment/internal/config"
	"github.com/jjspscl/hunt-st-assessment/internal/logging"
	"github.com/jjspscl/hunt-st-assessment/internal/policy"
	store "github.com/jjspscl/hunt-st-assessment/internal/repository"
	"github.com/jjspscl/hunt-st-assessment/internal/service"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:          "taskchat",
	Short:        "Chat-driven task tracker",
	Long:         `taskchat turns chat messages into tasks through a tool-calling model and serves them over HTTP and MCP.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg   *config.Config
	store *store.SQLiteStore
	svc   *service.Service
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Printf("WARN: failed to close store: %v", err)
	}
}

// newApp loads configuration and wires the store, model client, policy
// engine and service.
func newApp(ctx context.Context, opts ...service.Option) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	// Logs go to stderr; stdout carries MCP frames.
	if err := logging.Setup(os.Stderr, cfg.LogLevel); err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	llmClient := llm.NewLLMClient(cfg.Mode, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout)

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	return &app{
		cfg:   cfg,
		store: db,
		svc:   service.New(db, llmClient, cfg, policyEngine, opts...),
	}, nil
}
