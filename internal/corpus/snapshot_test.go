package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSnapshotJSON() string {
	return `{
		"metadata": {
			"generated_at": "2026-08-01T10:00:00Z",
			"statistics": {"total_items": 2, "unique_tags": 2}
		},
		"tags": {
			"Mining": {"count": 2, "items": ["A1", "B2"], "item_titles": ["First", "Second"]},
			"Katoomba": {"count": 1, "items": ["A1"], "item_titles": ["First"]}
		},
		"items": {
			"A1": {"title": "First", "item_type": "newspaperArticle", "children": [
				{"key": "C1", "kind": "attachment", "content_type": "application/pdf"}
			]},
			"B2": {"title": "Second", "item_type": "newspaperArticle"}
		}
	}`
}

func TestParseSnapshot(t *testing.T) {
	snap, err := ParseSnapshot([]byte(validSnapshotJSON()))
	require.NoError(t, err)

	assert.Len(t, snap.Tags, 2)
	assert.Len(t, snap.Items, 2)
	assert.Equal(t, 2, snap.Stats.TotalItems)

	t.Run("Tags in stable enumeration order", func(t *testing.T) {
		assert.Equal(t, "Katoomba", snap.Tags[0].Label)
		assert.Equal(t, "Mining", snap.Tags[1].Label)
	})

	t.Run("Item tag set is derived", func(t *testing.T) {
		assert.ElementsMatch(t, []string{"Mining", "Katoomba"}, snap.TagsForItem("A1"))
		assert.Equal(t, []string{"Mining"}, snap.TagsForItem("B2"))
	})

	t.Run("Child PDF detection", func(t *testing.T) {
		item := snap.Items["A1"]
		require.Len(t, item.Children, 1)
		assert.True(t, item.Children[0].IsPDF())
	})
}

func TestParseSnapshot_EmptyCorpus(t *testing.T) {
	snap, err := ParseSnapshot([]byte(`{"tags": {}, "items": {}}`))
	require.NoError(t, err)
	assert.Empty(t, snap.Tags)
	assert.Empty(t, snap.Items)
}

func TestParseSnapshot_UnknownItemKey(t *testing.T) {
	data := `{
		"tags": {"Mining": {"count": 1, "items": ["MISSING"], "item_titles": ["x"]}},
		"items": {}
	}`
	_, err := ParseSnapshot([]byte(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MISSING")
	assert.Contains(t, err.Error(), "Mining")
}

func TestParseSnapshot_CountMismatch(t *testing.T) {
	data := `{
		"tags": {"Mining": {"count": 3, "items": ["A1"], "item_titles": ["x"]}},
		"items": {"A1": {"title": "x", "item_type": "newspaperArticle"}}
	}`
	_, err := ParseSnapshot([]byte(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Mining")
	assert.Contains(t, err.Error(), "count")
}

func TestParseSnapshot_NonParallelTitles(t *testing.T) {
	data := `{
		"tags": {"Mining": {"count": 1, "items": ["A1"], "item_titles": []}},
		"items": {"A1": {"title": "x", "item_type": "newspaperArticle"}}
	}`
	_, err := ParseSnapshot([]byte(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parallel")
}

func TestParseSnapshot_SchemaViolation(t *testing.T) {
	// count below 1 violates the schema before cross-checking starts
	data := `{
		"tags": {"Mining": {"count": 0, "items": [], "item_titles": []}},
		"items": {}
	}`
	_, err := ParseSnapshot([]byte(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestSnapshot_MarshalRoundTrip(t *testing.T) {
	snap, err := ParseSnapshot([]byte(validSnapshotJSON()))
	require.NoError(t, err)

	data, err := snap.Marshal()
	require.NoError(t, err)

	again, err := ParseSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, snap.Tags, again.Tags)
	assert.Equal(t, snap.Items, again.Items)
	assert.Equal(t, snap.Stats, again.Stats)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "coal mine", Normalize("  Coal Mine "))
}
