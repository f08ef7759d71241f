package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cardtag/internal/card"
)

var (
	filterInput  string
	filterOutput string
	filterColors []string
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Write a filtered snapshot of the card database",
	Long: `Filters the card database down to Commander-legal cards with oracle text
whose color identity exactly matches any non-empty combination of the given
colors, and writes the result as a new JSON file.`,
	RunE: runFilter,
}

func init() {
	filterCmd.Flags().StringVar(&filterInput, "input", "data/scryfall_oracle.json", "Input JSON file of cards")
	filterCmd.Flags().StringVar(&filterOutput, "output", "data/filtered_cards.json", "Output JSON file")
	filterCmd.Flags().StringSliceVar(&filterColors, "colors", []string{"B", "W", "R"}, "Color universe for identity combinations")
}

func runFilter(cmd *cobra.Command, args []string) error {
	cards, err := card.Load(filterInput)
	if err != nil {
		return err
	}
	total := len(cards)

	cards = card.FilterOracleText(cards)
	cards = card.FilterCommanderLegal(cards)

	combos := card.ColorCombinations(filterColors)
	filtered := make([]card.Card, 0, len(cards))
	for _, c := range cards {
		if card.MatchesAnyIdentity(c, combos) {
			filtered = append(filtered, c)
		}
	}

	logger.Info("filtered card database",
		zap.String("input", filterInput),
		zap.Int("total", total),
		zap.Int("filtered", len(filtered)))

	if dir := filepath.Dir(filterOutput); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := card.Save(filterOutput, filtered); err != nil {
		return err
	}

	counts := card.CountByIdentity(filtered)
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][2]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, [2]string{k, fmt.Sprintf("%d", counts[k])})
	}
	fmt.Println(renderCountTable("Identity", "Cards", rows))
	fmt.Printf("Saved %d cards to %s\n", len(filtered), filterOutput)
	return nil
}
