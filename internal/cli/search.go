package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lazypower/recall/internal/engine"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search concepts by meaning",
	Long:  "Rank concepts against a free-text query by vector similarity weighted with retention. Finding a concept counts as seeing it again.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

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
		return fmt.Errorf("search needs an embedder; set embedding.provider to auto, ollama, or hash")
	}
	eng.SetEmbedder(emb)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results, err := eng.Find(ctx, query, engine.SearchOpts{Limit: searchLimit})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%d. [%.3f] %s\n", i+1, r.Score, r.Concept.Label)
		fmt.Printf("   retention %.0f%%, seen %dx, last %s\n",
			r.Concept.MemoryScore*100, r.Concept.OccurrenceCount, humanize.Time(time.UnixMilli(r.Concept.LastSeenAt)))
		fmt.Println()
	}
	return nil
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum number of results")
}
