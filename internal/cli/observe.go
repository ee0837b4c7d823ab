package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lazypower/recall/internal/client"
	"github.com/lazypower/recall/internal/engine"
)

// Producer-side commands talk to a running daemon so all writes funnel
// through one engine.

var (
	serverURL        string
	observeTag       string
	observeAttention float64
	observeIntent    float64
	observeAudio     float64
)

var observeCmd = &cobra.Command{
	Use:   "observe [concept]...",
	Short: "Report an exposure to one or more concepts",
	Long:  "Report that the given concepts were just encountered together. Quote multi-word concepts. Requires a running server (recall serve).",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runObserve,
}

func runObserve(cmd *cobra.Command, args []string) error {
	sig := engine.Signals{SourceTag: observeTag}
	if cmd.Flags().Changed("attention") {
		sig.Attention = &observeAttention
	}
	if cmd.Flags().Changed("intent") {
		sig.Intent = &observeIntent
	}
	if cmd.Flags().Changed("audio") {
		sig.Audio = &observeAudio
	}

	c := client.New(serverURL)
	if !c.Healthy() {
		return fmt.Errorf("recall server not reachable (is `recall serve` running?)")
	}

	resp, err := c.Observe(args, sig)
	if err != nil {
		return fmt.Errorf("observe: %w", err)
	}

	fmt.Printf("observed %d concepts (%d new, %d edges)\n", len(resp.ConceptIDs), resp.Created, resp.Edges)
	if resp.Notified > 0 {
		fmt.Printf("%d review reminders fired\n", resp.Notified)
	}
	return nil
}

var reviewAlgorithm string

var reviewCmd = &cobra.Command{
	Use:   "review [concept-id] [quality]",
	Short: "Grade a recall attempt (quality 0-5)",
	Long:  "Record how well a concept was recalled: 0 is a blackout, 5 is instant perfect recall. Concept ids come from `recall due`.",
	Args:  cobra.ExactArgs(2),
	RunE:  runReview,
}

func runReview(cmd *cobra.Command, args []string) error {
	quality, err := strconv.Atoi(args[1])
	if err != nil || quality < 0 || quality > 5 {
		return fmt.Errorf("quality must be an integer 0-5, got %q", args[1])
	}

	c := client.New(serverURL)
	if !c.Healthy() {
		return fmt.Errorf("recall server not reachable (is `recall serve` running?)")
	}

	resp, err := c.Review(args[0], quality, reviewAlgorithm)
	if err != nil {
		return fmt.Errorf("review: %w", err)
	}

	next := time.UnixMilli(resp.NextReviewAt)
	fmt.Printf("%s: quality %d (%s), interval %dd, next review %s\n",
		resp.Label, resp.Quality, resp.Algorithm, resp.IntervalDays, humanize.Time(next))
	return nil
}

func init() {
	for _, cmd := range []*cobra.Command{observeCmd, reviewCmd} {
		cmd.Flags().StringVar(&serverURL, "server", "", "Server URL (default $RECALL_URL or http://127.0.0.1:37878)")
	}

	observeCmd.Flags().StringVarP(&observeTag, "tag", "t", "", "Source tag for co-occurrence edges (e.g. meeting, reading)")
	observeCmd.Flags().Float64Var(&observeAttention, "attention", 0, "Attention signal, 0-100")
	observeCmd.Flags().Float64Var(&observeIntent, "intent", 0, "Intent classifier confidence, 0-1")
	observeCmd.Flags().Float64Var(&observeAudio, "audio", 0, "Transcription confidence, 0-1")

	reviewCmd.Flags().StringVar(&reviewAlgorithm, "algorithm", "", "Scheduling algorithm: sm2 or leitner (default: server setting)")
}
