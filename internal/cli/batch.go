package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/okent/rekindle/internal/config"
	"github.com/okent/rekindle/internal/store"
	"github.com/spf13/cobra"
)

var batchUser string

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run one suggestion-generation pass (all users, or --user)",
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchUser, "user", "", "generate for a single user id")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

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

	ctx := context.Background()
	if batchUser != "" {
		res, err := eng.GenerateBatch(ctx, batchUser)
		if err != nil {
			return fmt.Errorf("generate batch: %w", err)
		}
		if res.SkippedNoAvailability {
			fmt.Fprintf(os.Stderr, "%s: no availability in horizon\n", batchUser)
		} else {
			fmt.Fprintf(os.Stderr, "%s: created %d suggestions\n", batchUser, res.Created)
		}
		return nil
	}

	eng.RunAllBatches(ctx)
	return nil
}
