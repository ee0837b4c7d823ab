package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/recall/internal/engine"
	"github.com/lazypower/recall/internal/server"
	"github.com/lazypower/recall/internal/tracker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	eng, err := newEngine(cfg, db)
	if err != nil {
		return err
	}

	emb := engine.ChooseEmbedder(cfg.Embedding.Provider, cfg.Embedding.OllamaURL, cfg.Embedding.Model, cfg.Embedding.HashDims)
	if emb != nil {
		eng.SetEmbedder(emb)
		fmt.Fprintf(os.Stderr, "  embedder: %s\n", emb.Model())
	} else {
		fmt.Fprintf(os.Stderr, "  embedder: disabled\n")
	}

	// Backfill vectors for concepts observed while no embedder was around
	if eng.Embedder != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if n, err := eng.EmbedMissing(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "embed missing: %v\n", err)
			} else if n > 0 {
				fmt.Fprintf(os.Stderr, "  embedded %d missing concepts\n", n)
			}
		}()
	}

	if cfg.Tracker.Enabled {
		tr := tracker.New()
		if err := tr.Register(&tracker.SweepJob{Engine: eng, ScheduleExpr: cfg.Tracker.SweepSchedule}); err != nil {
			return fmt.Errorf("register sweep job: %w", err)
		}
		if err := tr.Register(&tracker.BackfillJob{Engine: eng, ScheduleExpr: cfg.Tracker.BackfillSchedule}); err != nil {
			return fmt.Errorf("register backfill job: %w", err)
		}
		if err := tr.Start(); err != nil {
			return fmt.Errorf("start tracker: %w", err)
		}
		defer tr.Stop()
		fmt.Fprintf(os.Stderr, "  tracker: sweep %q, backfill %q\n", cfg.Tracker.SweepSchedule, cfg.Tracker.BackfillSchedule)
	}

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
		fmt.Fprintf(os.Stderr, "recall serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", db.Path)
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
