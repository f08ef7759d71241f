package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cardtag/internal/card"
	"cardtag/internal/config"
	"cardtag/internal/llm"
	"cardtag/internal/prompt"
	"cardtag/internal/sink"
	"cardtag/internal/tagger"
)

var tagFlags config.Config

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Tag cards with the configured model",
	Long: `Runs the full enrichment pipeline: load cards, apply filters, build the
grounding prompt, dispatch tagging calls in the configured execution mode,
and append successful results as JSON lines.

Execution modes:
  sequential  - one card at a time (slowest, simplest to debug)
  concurrent  - every card submitted up front, bounded in-flight calls
  batch       - fixed-size chunks, one call per chunk`,
	RunE: runTag,
}

func init() {
	defaults := config.Default()
	f := tagCmd.Flags()
	f.StringVar(&tagFlags.Input, "input", defaults.Input, "Input JSON file of cards")
	f.StringVar(&tagFlags.Output, "output", defaults.Output, "Output JSONL file")
	f.StringVar(&tagFlags.Taxonomy, "taxonomy", defaults.Taxonomy, "Taxonomy document embedded in the system prompt")
	f.StringVar(&tagFlags.Schema, "schema", defaults.Schema, "Schema document embedded in the system prompt")
	f.StringVar(&tagFlags.Provider, "provider", defaults.Provider, "Remote service provider (openai, gemini)")
	f.StringVar(&tagFlags.Model, "model", defaults.Model, "Model identifier")
	f.StringVar(&tagFlags.BaseURL, "base-url", "", "Override the provider base URL")
	f.StringVar(&tagFlags.Timeout, "timeout", defaults.Timeout, "Per-request timeout (Go duration, e.g. 2m)")
	f.StringVar(&tagFlags.Mode, "mode", defaults.Mode, "Execution mode (sequential, concurrent, batch)")
	f.IntVar(&tagFlags.Concurrency, "concurrency", defaults.Concurrency, "Max in-flight remote calls in concurrent mode")
	f.IntVar(&tagFlags.BatchSize, "batch-size", defaults.BatchSize, "Cards per chunk in batch mode")
	f.IntVar(&tagFlags.MaxRetries, "max-retries", defaults.MaxRetries, "Attempts per card before dropping it")
	f.BoolVar(&tagFlags.EDHOnly, "edh-only", false, "Only process Commander-legal cards")
	f.StringSliceVar(&tagFlags.Colors, "colors", nil, "Filter by exact color identity (e.g. --colors B,R)")
	f.BoolVar(&tagFlags.Colorless, "colorless", false, "Include colorless cards")
	f.BoolVar(&tagFlags.Resume, "resume", false, "Skip cards already recorded in the output file")
	f.IntVar(&tagFlags.SplitSize, "split-size", 0, "Start a new output file every N successes (0 = disabled)")
}

// resolveConfig layers explicitly set flags over the config file (or the
// defaults when no file is given).
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("input") {
		cfg.Input = tagFlags.Input
	}
	if f.Changed("output") {
		cfg.Output = tagFlags.Output
	}
	if f.Changed("taxonomy") {
		cfg.Taxonomy = tagFlags.Taxonomy
	}
	if f.Changed("schema") {
		cfg.Schema = tagFlags.Schema
	}
	if f.Changed("provider") {
		cfg.Provider = tagFlags.Provider
	}
	if f.Changed("model") {
		cfg.Model = tagFlags.Model
	}
	if f.Changed("base-url") {
		cfg.BaseURL = tagFlags.BaseURL
	}
	if f.Changed("timeout") {
		cfg.Timeout = tagFlags.Timeout
	}
	if f.Changed("mode") {
		cfg.Mode = tagFlags.Mode
	}
	if f.Changed("concurrency") {
		cfg.Concurrency = tagFlags.Concurrency
	}
	if f.Changed("batch-size") {
		cfg.BatchSize = tagFlags.BatchSize
	}
	if f.Changed("max-retries") {
		cfg.MaxRetries = tagFlags.MaxRetries
	}
	if f.Changed("edh-only") {
		cfg.EDHOnly = tagFlags.EDHOnly
	}
	if f.Changed("colors") {
		cfg.Colors = tagFlags.Colors
	}
	if f.Changed("colorless") {
		cfg.Colorless = tagFlags.Colorless
	}
	if f.Changed("resume") {
		cfg.Resume = tagFlags.Resume
	}
	if f.Changed("split-size") {
		cfg.SplitSize = tagFlags.SplitSize
	}
	return cfg, nil
}

func runTag(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	mode, err := tagger.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}

	log := logger.With(zap.String("run_id", uuid.NewString()))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load and filter cards. All input errors are fatal before any
	// processing begins.
	cards, err := card.Load(cfg.Input)
	if err != nil {
		return err
	}
	total := len(cards)

	cards = card.FilterOracleText(cards)
	log.Info("loaded card database",
		zap.String("input", cfg.Input),
		zap.Int("total", total),
		zap.Int("with_oracle_text", len(cards)))

	if cfg.EDHOnly {
		cards = card.FilterCommanderLegal(cards)
		log.Info("applied commander legality filter", zap.Int("remaining", len(cards)))
	}
	if len(cfg.Colors) > 0 || cfg.Colorless {
		cards = card.FilterColorIdentity(cards, cfg.Colors, cfg.Colorless)
		log.Info("applied color identity filter",
			zap.Strings("colors", cfg.Colors),
			zap.Bool("colorless", cfg.Colorless),
			zap.Int("remaining", len(cards)))
	}

	taxonomy, schema, err := prompt.LoadGrounding(cfg.Taxonomy, cfg.Schema)
	if err != nil {
		return err
	}
	systemPrompt := prompt.System(taxonomy, schema)

	if dir := filepath.Dir(cfg.Output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	out := sink.New(cfg.Output, cfg.SplitSize, log)
	if cfg.Resume {
		processed, err := out.Resume()
		if err != nil {
			return err
		}
		remaining := make([]card.Card, 0, len(cards))
		for _, c := range cards {
			if !processed[c.OracleID] {
				remaining = append(remaining, c)
			}
		}
		log.Info("resuming from existing output",
			zap.Int("already_processed", len(processed)),
			zap.Int("remaining", len(remaining)))
		cards = remaining
	} else {
		if err := out.Reset(); err != nil {
			return err
		}
	}

	client, err := llm.New(llm.Config{
		Provider: cfg.Provider,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
		Timeout:  cfg.RequestTimeout(),
	})
	if err != nil {
		return err
	}

	retry := llm.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries

	t := tagger.New(client, systemPrompt, retry, log)
	d := tagger.NewDispatcher(t, out, cfg.Concurrency, cfg.BatchSize, log)

	log.Info("starting tagging run",
		zap.String("mode", cfg.Mode),
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Int("cards", len(cards)))

	stats, err := d.Run(ctx, mode, cards)
	if err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}

	printSummary(cfg, out, stats)
	return nil
}

func printSummary(cfg config.Config, out *sink.Sink, stats tagger.Stats) {
	var rows [][2]string
	for index, count := range out.FileCounts() {
		rows = append(rows, [2]string{sink.PartPath(cfg.Output, index), fmt.Sprintf("%d", count)})
	}
	fmt.Println(renderCountTable("File", "Records", rows))
	fmt.Printf("Attempted %d cards: %d tagged, %d dropped in %s\n",
		stats.Attempted, stats.Succeeded, stats.Dropped, stats.Elapsed.Round(time.Millisecond))
	if cfg.Mode == "concurrent" {
		fmt.Printf("Peak in-flight calls: %d (capacity %d)\n", stats.PeakConcurrency, cfg.Concurrency)
	}
}
