package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardtag/internal/card"
)

func TestSystem_EmbedsGroundingVerbatim(t *testing.T) {
	taxonomy := "tags:\n  - ramp\n  - removal\n"
	schema := `{"type": "object"}`

	got := System(taxonomy, schema)

	assert.Contains(t, got, taxonomy)
	assert.Contains(t, got, schema)
	assert.Contains(t, got, "Use only allowed values.")
	assert.Contains(t, got, "Output JSON ONLY.")
}

func TestCard_ListsAllFields(t *testing.T) {
	c := card.Card{
		Name:       "Sol Ring",
		OracleID:   "abc-123",
		OracleText: "{T}: Add {C}{C}.",
	}

	got := Card(c)

	assert.Contains(t, got, "Name: Sol Ring")
	assert.Contains(t, got, "Oracle ID: abc-123")
	assert.Contains(t, got, "Oracle Text: {T}: Add {C}{C}.")
	assert.Contains(t, got, "Output JSON only.")
}

func TestBatch_PreservesInputOrder(t *testing.T) {
	cards := []card.Card{
		{Name: "First", OracleID: "1", OracleText: "a"},
		{Name: "Second", OracleID: "2", OracleText: "b"},
		{Name: "Third", OracleID: "3", OracleText: "c"},
	}

	got := Batch(cards)

	assert.Contains(t, got, "return JSON array in order")
	first := strings.Index(got, "name: First")
	second := strings.Index(got, "name: Second")
	third := strings.Index(got, "name: Third")
	require.True(t, first >= 0 && second >= 0 && third >= 0)
	assert.Less(t, first, second)
	assert.Less(t, second, third)
}

func TestLoadGrounding(t *testing.T) {
	dir := t.TempDir()
	taxPath := filepath.Join(dir, "taxonomy.yaml")
	schemaPath := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(taxPath, []byte("tags: []\n"), 0o644))
	require.NoError(t, os.WriteFile(schemaPath, []byte("{}"), 0o644))

	taxonomy, schema, err := LoadGrounding(taxPath, schemaPath)
	require.NoError(t, err)
	assert.Equal(t, "tags: []\n", taxonomy)
	assert.Equal(t, "{}", schema)
}

func TestLoadGrounding_MissingFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(schemaPath, []byte("{}"), 0o644))

	_, _, err := LoadGrounding(filepath.Join(dir, "absent.yaml"), schemaPath)
	assert.Error(t, err)
}
