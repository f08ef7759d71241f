// Package prompt builds the grounding system prompt and the per-card and
// per-batch user prompts sent to the tagging model.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"cardtag/internal/card"
)

const systemRole = "You are an expert in Magic: The Gathering EDH deckbuilding. " +
	"Tag cards according to the provided taxonomy and schema. Output strictly valid JSON."

// LoadGrounding reads the taxonomy and schema documents verbatim. Both are
// embedded into the system prompt as-is and never parsed here.
func LoadGrounding(taxonomyPath, schemaPath string) (taxonomy, schema string, err error) {
	tax, err := os.ReadFile(taxonomyPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read taxonomy: %w", err)
	}
	sch, err := os.ReadFile(schemaPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read schema: %w", err)
	}
	return string(tax), string(sch), nil
}

// System composes the grounding system prompt from the taxonomy and schema
// texts plus the fixed instruction rules.
func System(taxonomy, schema string) string {
	return fmt.Sprintf(`%s

TAXONOMY (YAML):
%s

SCHEMA (JSON):
%s

Rules:
- Follow enums and limits exactly.
- Use only allowed values.
- Output JSON ONLY.
`, systemRole, taxonomy, schema)
}

// Card builds the user prompt for tagging a single card.
func Card(c card.Card) string {
	return fmt.Sprintf(`Card:
Name: %s
Oracle ID: %s
Oracle Text: %s

Tag this card strictly according to the schema. Output JSON only.
`, c.Name, c.OracleID, c.OracleText)
}

// Batch builds the user prompt for tagging an ordered chunk of cards. The
// model is instructed to return a JSON array in the same order as the input.
func Batch(cards []card.Card) string {
	var sb strings.Builder
	sb.WriteString("Cards (return JSON array in order):\n")
	for _, c := range cards {
		fmt.Fprintf(&sb, "- name: %s\n  oracle_id: %s\n  oracle_text: %s\n", c.Name, c.OracleID, c.OracleText)
	}
	return sb.String()
}
