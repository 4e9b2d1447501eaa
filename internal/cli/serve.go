package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okent/rekindle/internal/config"
	"github.com/okent/rekindle/internal/engine"
	"github.com/okent/rekindle/internal/feed"
	"github.com/okent/rekindle/internal/notify"
	"github.com/okent/rekindle/internal/reasoning"
	"github.com/okent/rekindle/internal/server"
	"github.com/okent/rekindle/internal/store"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and the batch scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Check for ANTHROPIC_API_KEY env override
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.Reasoning.Provider = "anthropic"
		cfg.Reasoning.AnthropicKey = key
	}

	// Resolve database path
	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	eng := buildEngine(db, cfg)

	reasoner, err := reasoning.NewClient(cfg.Reasoning)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: reasoning not configured (%v), templated rationale only\n", err)
	} else if reasoner != nil {
		eng.Resolver.Reasoner = reasoner
		fmt.Fprintf(os.Stderr, "  reasoning: %s\n", cfg.Reasoning.Provider)
	}

	eng.StartBatchTimer(cfg.BatchInterval())
	defer eng.Stop()

	srv := server.New(db, eng, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "rekindle serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "  batch cadence: %s\n", cfg.BatchInterval())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}

func buildEngine(db *store.DB, cfg config.Config) *engine.Engine {
	eng := engine.New(db)
	eng.Feed = &feed.StorePublisher{DB: db}
	eng.Notifier = notify.LogDispatcher{}
	eng.Horizon = cfg.Horizon()
	eng.MaxPerBatch = cfg.Engine.MaxPerBatch
	eng.Concurrency = cfg.Engine.BatchConcurrency
	if cfg.Engine.CloseFriendsGroup != "" {
		eng.CloseFriendsGroup = cfg.Engine.CloseFriendsGroup
	}
	eng.Resolver.Timeout = cfg.ReasoningTimeout()
	return eng
}
