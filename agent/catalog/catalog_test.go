package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type named struct {
	Name string
}

func nameOf(n named) string { return n.Name }

func TestLookupPicksLatte(t *testing.T) {
	t.Parallel()

	entries := []named{{Name: "Latte"}, {Name: "Mocha"}}
	got, idx, ok := Lookup(entries, "I want a latte", nameOf)

	require.True(t, ok)
	assert.Equal(t, "Latte", got.Name)
	assert.Equal(t, 0, idx)
}

func TestLookupZeroOverlapIsNoMatch(t *testing.T) {
	t.Parallel()

	_, idx, ok := Lookup([]named{{Name: "Latte"}, {Name: "Mocha"}}, "quantum physics", nameOf)
	assert.False(t, ok)
	assert.Equal(t, -1, idx)
}

func TestLookupTieGoesToFirst(t *testing.T) {
	t.Parallel()

	entries := []named{{Name: "Iced Latte"}, {Name: "Hot Latte"}}
	got, _, ok := Lookup(entries, "latte please", nameOf)
	require.True(t, ok)
	assert.Equal(t, "Iced Latte", got.Name)
}

func TestLookupHigherScoreWins(t *testing.T) {
	t.Parallel()

	entries := []named{{Name: "Latte"}, {Name: "Oat Milk Latte"}}
	got, _, ok := Lookup(entries, "oat latte", nameOf)
	require.True(t, ok)
	assert.Equal(t, "Oat Milk Latte", got.Name)
}

func TestScoreCountsSubstringTokens(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2, Score("PEANUT butter jar", "Peanut Butter"))
	assert.Equal(t, 0, Score("", "anything"))
}

func TestLoadEmbedded(t *testing.T) {
	t.Parallel()

	c, err := Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, c.FAQ)
	assert.NotEmpty(t, c.Products)
	assert.NotEmpty(t, c.Concepts)
	assert.NotEmpty(t, c.FraudCases)

	entry, ok := c.FindFAQ("how much is the pricing")
	require.True(t, ok)
	assert.Equal(t, "pricing", entry.ID)

	product, ok := c.FindProduct("peanut butter")
	require.True(t, ok)
	assert.Equal(t, "Peanut Butter", product.Name)

	items, ok := c.Recipe("  Pasta ")
	require.True(t, ok)
	assert.Len(t, items, 3)
}

func TestLoadOverrideDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConceptsFile),
		[]byte(`[{"id":"recursion","title":"Recursion","summary":"A function calling itself.","sample_question":"What stops recursion?"}]`), 0o644))

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"recursion"}, c.ConceptIDs())
	assert.NotEmpty(t, c.Products, "missing files fall back to embedded data")
}

func TestLoadCorruptOverride(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FAQFile), []byte("not json"), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}
