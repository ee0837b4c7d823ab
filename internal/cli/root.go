package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/recall/internal/config"
	"github.com/lazypower/recall/internal/engine"
	"github.com/lazypower/recall/internal/notify"
	"github.com/lazypower/recall/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Adaptive recall engine for personal memory",
	Long:  "Recall tracks the concepts you encounter, models how fast you forget them, and schedules reviews before they fade. Single Go binary, local SQLite.",
}

func Execute() error {
	return rootCmd.Execute()
}

var cfgFile string

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to YAML config file")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(observeCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(dueCmd)
	rootCmd.AddCommand(conceptsCmd)
	rootCmd.AddCommand(curveCmd)
	rootCmd.AddCommand(relatedCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(dedupCmd)
	rootCmd.AddCommand(sweepCmd)
}

// loadConfig returns the defaults, or the merged file config when --config
// was given.
func loadConfig() (config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.Load(cfgFile)
}

// openDB opens the database for CLI commands. RECALL_DB wins over the
// config file, which wins over ~/.recall/recall.db.
func openDB(cfg config.Config) (*store.DB, error) {
	path := os.Getenv("RECALL_DB")
	if path == "" {
		path = cfg.Database.Path
	}
	if path == "" {
		var err error
		path, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(path)
}

// newEngine builds an engine over db with all tuning taken from cfg.
func newEngine(cfg config.Config, db *store.DB) (*engine.Engine, error) {
	notifier, err := notify.NewNotifier(cfg.Reminders, nil)
	if err != nil {
		return nil, fmt.Errorf("create notifier: %w", err)
	}

	eng := engine.New(db, notifier)
	eng.Decay = engine.NewDecayModel(cfg.Decay.HalfLifeHours)
	eng.Decay.ReviewThreshold = cfg.Decay.ReviewThreshold
	if cfg.Decay.MaxIntervalDays > 0 {
		eng.Decay.MaxInterval = time.Duration(cfg.Decay.MaxIntervalDays * 24 * float64(time.Hour))
	}
	eng.Algorithm = cfg.Review.Algorithm
	eng.SimilarityThreshold = cfg.Graph.SimilarityThreshold
	eng.Cooldown = time.Duration(cfg.Reminders.CooldownMinutes) * time.Minute
	return eng, nil
}
