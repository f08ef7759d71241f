// Package card defines the card data model and the legality/color filters
// applied before tagging.
package card

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Card is a single oracle card record from a Scryfall-style database dump.
// Unknown input fields are ignored. Cards are never mutated after load.
type Card struct {
	Name          string            `json:"name"`
	OracleID      string            `json:"oracle_id"`
	OracleText    string            `json:"oracle_text"`
	ColorIdentity []string          `json:"color_identity"`
	Legalities    map[string]string `json:"legalities"`
}

// TagResult is the structured tag record returned by the model for one card.
// The only invariant enforced here is that it parsed as JSON; it is expected
// to carry an "oracle_id" field referencing its source card.
type TagResult map[string]any

// OracleID returns the oracle_id field, or "" when absent or not a string.
func (r TagResult) OracleID() string {
	id, _ := r["oracle_id"].(string)
	return id
}

// Load reads a JSON array of cards from path.
func Load(path string) ([]Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read card database: %w", err)
	}
	var cards []Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("failed to parse card database %s: %w", path, err)
	}
	return cards, nil
}

// FilterOracleText drops cards without oracle text. Always applied: a card
// with no rules text has nothing to tag.
func FilterOracleText(cards []Card) []Card {
	out := make([]Card, 0, len(cards))
	for _, c := range cards {
		if c.OracleText != "" {
			out = append(out, c)
		}
	}
	return out
}

// FilterCommanderLegal keeps cards whose commander legality is "legal".
func FilterCommanderLegal(cards []Card) []Card {
	out := make([]Card, 0, len(cards))
	for _, c := range cards {
		if c.Legalities["commander"] == "legal" {
			out = append(out, c)
		}
	}
	return out
}

// FilterColorIdentity keeps cards whose color identity exactly matches the
// requested color set. With colorless set, cards with an empty identity are
// admitted as well. Exact-match semantics: a card whose identity is a proper
// subset of the requested colors is excluded.
func FilterColorIdentity(cards []Card, colors []string, colorless bool) []Card {
	target := make(map[string]bool, len(colors))
	for _, c := range colors {
		target[c] = true
	}

	out := make([]Card, 0, len(cards))
	for _, c := range cards {
		if colorless && len(c.ColorIdentity) == 0 {
			out = append(out, c)
			continue
		}
		if len(target) > 0 && identityEquals(c.ColorIdentity, target) {
			out = append(out, c)
		}
	}
	return out
}

func identityEquals(identity []string, target map[string]bool) bool {
	if len(identity) != len(target) {
		return false
	}
	for _, c := range identity {
		if !target[c] {
			return false
		}
	}
	return true
}

// IdentityKey renders a color identity as a stable sorted key, "Colorless"
// for the empty identity.
func IdentityKey(identity []string) string {
	if len(identity) == 0 {
		return "Colorless"
	}
	sorted := append([]string(nil), identity...)
	sort.Strings(sorted)
	return strings.Join(sorted, "")
}

// CountByIdentity tallies cards per color-identity key.
func CountByIdentity(cards []Card) map[string]int {
	counts := make(map[string]int)
	for _, c := range cards {
		counts[IdentityKey(c.ColorIdentity)]++
	}
	return counts
}

// ColorCombinations returns every non-empty subset of the given colors.
// Used by the standalone filter command to select its color universe.
func ColorCombinations(colors []string) [][]string {
	var combos [][]string
	n := len(colors)
	for mask := 1; mask < 1<<n; mask++ {
		var combo []string
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				combo = append(combo, colors[i])
			}
		}
		combos = append(combos, combo)
	}
	return combos
}

// MatchesAnyIdentity reports whether the card's color identity exactly
// matches one of the given combinations.
func MatchesAnyIdentity(c Card, combos [][]string) bool {
	for _, combo := range combos {
		target := make(map[string]bool, len(combo))
		for _, col := range combo {
			target[col] = true
		}
		if identityEquals(c.ColorIdentity, target) {
			return true
		}
	}
	return false
}

// Save writes cards back out as an indented JSON array.
func Save(path string, cards []Card) error {
	data, err := json.MarshalIndent(cards, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cards: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
