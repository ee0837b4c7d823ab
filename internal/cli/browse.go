package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lazypower/recall/internal/engine"
	"github.com/lazypower/recall/internal/store"
)

// Read-side commands open the database directly instead of going through
// the server.

// resolveConcept accepts a concept id or a label.
func resolveConcept(db *store.DB, arg string) (*store.Concept, error) {
	c, err := db.GetConcept(arg)
	if err != nil || c != nil {
		return c, err
	}
	return db.GetConceptByLabel(strings.ToLower(strings.TrimSpace(arg)))
}

// --- due command ---

var dueWithinHours float64

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "List concepts due for review",
	RunE:  runDue,
}

func runDue(cmd *cobra.Command, args []string) error {
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

	within := time.Duration(dueWithinHours * float64(time.Hour))
	due, err := eng.DueItems(context.Background(), within)
	if err != nil {
		return fmt.Errorf("due items: %w", err)
	}

	if len(due) == 0 {
		fmt.Println("Nothing due. Nice.")
		return nil
	}

	fmt.Printf("%d due for review:\n\n", len(due))
	for _, d := range due {
		line := fmt.Sprintf("  %3.0f%%  %-32s %s", d.MemoryScore*100, d.Label, humanize.Time(time.UnixMilli(d.NextReviewAt)))
		if d.Item != nil {
			line += fmt.Sprintf("  [box %d, %d reviews]", d.Item.Box, d.Item.TotalReviews)
		}
		fmt.Println(line)
	}
	fmt.Printf("\nreview with: recall review <concept-id> <quality 0-5>\n")
	return nil
}

// --- concepts command ---

var conceptsLimit int

var conceptsCmd = &cobra.Command{
	Use:   "concepts",
	Short: "List tracked concepts",
	RunE:  runConcepts,
}

func runConcepts(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	concepts, err := db.ListConcepts()
	if err != nil {
		return fmt.Errorf("list concepts: %w", err)
	}
	if len(concepts) == 0 {
		fmt.Println("No concepts yet. Feed some with `recall observe`.")
		return nil
	}
	if conceptsLimit > 0 && len(concepts) > conceptsLimit {
		concepts = concepts[:conceptsLimit]
	}

	for _, c := range concepts {
		fmt.Printf("  %3.0f%%  %-32s seen %dx, last %s\n",
			c.MemoryScore*100, c.Label, c.OccurrenceCount, humanize.Time(time.UnixMilli(c.LastSeenAt)))
		fmt.Printf("        id: %s\n", c.ID)
	}
	return nil
}

// --- curve command ---

var curveHorizonHours float64

var curveCmd = &cobra.Command{
	Use:   "curve [concept]",
	Short: "Project a concept's forgetting curve",
	Args:  cobra.ExactArgs(1),
	RunE:  runCurve,
}

func runCurve(cmd *cobra.Command, args []string) error {
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

	c, err := resolveConcept(db, args[0])
	if err != nil {
		return fmt.Errorf("resolve concept: %w", err)
	}
	if c == nil {
		return fmt.Errorf("no concept matching %q", args[0])
	}

	points, err := eng.DecayCurve(context.Background(), c.ID, curveHorizonHours)
	if err != nil {
		return fmt.Errorf("decay curve: %w", err)
	}

	fmt.Printf("forgetting curve for %q (now %.0f%%):\n\n", c.Label, c.MemoryScore*100)
	stride := 1
	if len(points) > 13 {
		stride = (len(points) - 1) / 12
	}
	for i := 0; i < len(points); i += stride {
		p := points[i]
		bar := strings.Repeat("#", int(p.Score*30+0.5))
		fmt.Printf("  +%4.0fh  %3.0f%%  %s\n", p.Hours, p.Score*100, bar)
	}
	return nil
}

// --- related command ---

var relatedLimit int

var relatedCmd = &cobra.Command{
	Use:   "related [concept]",
	Short: "Show a concept's strongest graph neighbors",
	Args:  cobra.ExactArgs(1),
	RunE:  runRelated,
}

func runRelated(cmd *cobra.Command, args []string) error {
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

	c, err := resolveConcept(db, args[0])
	if err != nil {
		return fmt.Errorf("resolve concept: %w", err)
	}
	if c == nil {
		return fmt.Errorf("no concept matching %q", args[0])
	}

	related, err := eng.Related(context.Background(), c.ID, relatedLimit)
	if err != nil {
		if errors.Is(err, engine.ErrConceptNotFound) {
			return fmt.Errorf("no concept matching %q", args[0])
		}
		return fmt.Errorf("related: %w", err)
	}
	if len(related) == 0 {
		fmt.Printf("%q has no graph neighbors yet.\n", c.Label)
		return nil
	}

	fmt.Printf("related to %q:\n\n", c.Label)
	for _, r := range related {
		if r.Tag != "" {
			fmt.Printf("  %5.2f  #%s\n", r.Weight, r.Tag)
			continue
		}
		fmt.Printf("  %5.2f  %s (%.0f%%)\n", r.Weight, r.Concept.Label, r.Concept.MemoryScore*100)
	}
	return nil
}

func init() {
	dueCmd.Flags().Float64Var(&dueWithinHours, "within", 0, "Include concepts due within the next N hours")
	conceptsCmd.Flags().IntVarP(&conceptsLimit, "limit", "n", 0, "Maximum number of concepts to list")
	curveCmd.Flags().Float64Var(&curveHorizonHours, "horizon", 336, "Projection horizon in hours")
	relatedCmd.Flags().IntVarP(&relatedLimit, "limit", "n", 10, "Maximum number of neighbors")
}
