package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/recall/internal/engine"
	"github.com/lazypower/recall/internal/ingest"
)

// Maintenance commands run against the database directly; stop the
// server first if it is holding the same file.

// --- import command ---

var importCmd = &cobra.Command{
	Use:   "import [file.jsonl]",
	Short: "Import observation batches from a JSONL file",
	Long:  "Each line is one observation batch: {\"concepts\": [...], \"signals\": {...}}. Malformed lines are skipped.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	eng, err := newEngine(cfg, db)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	stats, err := ingest.ImportFile(ctx, eng, args[0])
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	fmt.Printf("imported %d batches: %d concept mentions, %d new concepts\n", stats.Batches, stats.Concepts, stats.Created)
	if stats.Skipped > 0 {
		fmt.Printf("skipped %d malformed lines\n", stats.Skipped)
	}
	return nil
}

// --- dedup command ---

var dedupThreshold float64

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Merge near-duplicate concepts",
	Long:  "Find concept pairs whose vectors are nearly identical and merge each into the more-established one, rewiring edges and folding occurrence counts.",
	RunE:  runDedup,
}

func runDedup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	eng, err := newEngine(cfg, db)
	if err != nil {
		return err
	}
	emb := engine.ChooseEmbedder(cfg.Embedding.Provider, cfg.Embedding.OllamaURL, cfg.Embedding.Model, cfg.Embedding.HashDims)
	if emb == nil {
		return fmt.Errorf("dedup needs an embedder; set embedding.provider to auto, ollama, or hash")
	}
	eng.SetEmbedder(emb)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	removed, err := eng.Dedup(ctx, dedupThreshold)
	if err != nil {
		return fmt.Errorf("dedup: %w", err)
	}

	if removed == 0 {
		fmt.Println("No duplicates found.")
		return nil
	}
	fmt.Printf("merged %d duplicate concepts\n", removed)
	return nil
}

// --- sweep command ---

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one decay sweep over all active concepts",
	Long:  "Re-score every active concept against the forgetting curve and fire reminders for anything faded or overdue. The server does this on a schedule; sweep is for cron or debugging.",
	RunE:  runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	eng, err := newEngine(cfg, db)
	if err != nil {
		return err
	}

	stats, err := eng.Sweep(context.Background())
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	fmt.Printf("swept %d concepts: %d scores lowered, %d reminders fired\n", stats.Scanned, stats.Lowered, stats.Reminded)
	return nil
}

func init() {
	dedupCmd.Flags().Float64Var(&dedupThreshold, "threshold", 0.95, "Cosine similarity above which two concepts count as duplicates")
}
