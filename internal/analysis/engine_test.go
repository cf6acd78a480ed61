package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagaudit/internal/corpus"
	"tagaudit/internal/hierarchy"
)

func testSnapshot() *corpus.Snapshot {
	tags := []corpus.Tag{
		{Label: "Mine", Count: 3, Items: []string{"A", "B", "C"}, ItemTitles: []string{"a", "b", "c"}},
		{Label: "Coal Mine", Count: 2, Items: []string{"A", "B"}, ItemTitles: []string{"a", "b"}},
		// Railway overlaps Mine on exactly half its usage, which sits on
		// the overlap boundary and must not produce a relation.
		{Label: "Railway", Count: 2, Items: []string{"C", "D"}, ItemTitles: []string{"c", "d"}},
	}
	corpus.SortTags(tags)

	return &corpus.Snapshot{
		Tags: tags,
		Items: map[string]corpus.Item{
			"A": {Key: "A", Title: "a", ItemType: "newspaperArticle"},
			"B": {Key: "B", Title: "b", ItemType: "newspaperArticle"},
			"C": {Key: "C", Title: "c", ItemType: "newspaperArticle"},
			"D": {Key: "D", Title: "d", ItemType: "newspaperArticle"},
		},
	}
}

func TestNew_RejectsInvalidOptions(t *testing.T) {
	_, err := New(Options{SimilarityThreshold: 180, OverlapRatio: 0.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "between 0 and 100")

	_, err = New(Options{SimilarityThreshold: 80, OverlapRatio: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestEngine_Run(t *testing.T) {
	engine, err := New(DefaultOptions())
	require.NoError(t, err)

	res, err := engine.Run(context.Background(), testSnapshot())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.False(t, res.GeneratedAt.IsZero())

	t.Run("Hierarchy sees both rules", func(t *testing.T) {
		types := map[hierarchy.RelationType]int{}
		for _, r := range res.Hierarchy {
			types[r.Type]++
			assert.NotEqual(t, r.Broader, r.Narrower)
		}
		assert.Equal(t, 1, types[hierarchy.RelationSubstring], "Mine should be broader than Coal Mine")
		assert.Equal(t, 1, types[hierarchy.RelationCooccurrence], "Coal Mine fully overlaps Mine")
	})

	t.Run("Cooccurrence network built", func(t *testing.T) {
		require.NotEmpty(t, res.Cooccurrence)
		assert.Equal(t, 2, res.Cooccurrence[0].Count)
	})

	t.Run("Similarity detector ran", func(t *testing.T) {
		found := false
		for _, p := range res.SimilarPairs {
			if (p.Tag1 == "Mine" && p.Tag2 == "Coal Mine") || (p.Tag1 == "Coal Mine" && p.Tag2 == "Mine") {
				found = true
				assert.Equal(t, "Mine", p.SuggestedMerge)
			}
		}
		assert.True(t, found, "partial ratio should pair Mine with Coal Mine")
	})

	t.Run("Quality ran over items", func(t *testing.T) {
		assert.Len(t, res.Quality.NoAttachments, 4)
	})
}

func TestEngine_RunIsIdempotent(t *testing.T) {
	engine, err := New(DefaultOptions())
	require.NoError(t, err)

	snap := testSnapshot()
	first, err := engine.Run(context.Background(), snap)
	require.NoError(t, err)
	second, err := engine.Run(context.Background(), snap)
	require.NoError(t, err)

	// Run identity differs; the exports must not.
	assert.Equal(t, first.SimilarPairs, second.SimilarPairs)
	assert.Equal(t, first.Hierarchy, second.Hierarchy)
	assert.Equal(t, first.Cooccurrence, second.Cooccurrence)
	assert.Equal(t, first.Quality, second.Quality)
}

func TestEngine_EmptySnapshot(t *testing.T) {
	engine, err := New(DefaultOptions())
	require.NoError(t, err)

	res, err := engine.Run(context.Background(), &corpus.Snapshot{Items: map[string]corpus.Item{}})
	require.NoError(t, err)

	assert.Empty(t, res.SimilarPairs)
	assert.Empty(t, res.Hierarchy)
	assert.Empty(t, res.Cooccurrence)
	assert.Empty(t, res.Quality.Duplicates)
	assert.Empty(t, res.Quality.NoAttachments)
}

func TestEngine_SingletonSnapshot(t *testing.T) {
	engine, err := New(DefaultOptions())
	require.NoError(t, err)

	snap := &corpus.Snapshot{
		Tags: []corpus.Tag{{Label: "Mining", Count: 1, Items: []string{"A"}, ItemTitles: []string{"a"}}},
		Items: map[string]corpus.Item{
			"A": {Key: "A", Title: "a", ItemType: "newspaperArticle"},
		},
	}

	res, err := engine.Run(context.Background(), snap)
	require.NoError(t, err)
	assert.Empty(t, res.SimilarPairs)
	assert.Empty(t, res.Hierarchy)
	assert.Empty(t, res.Cooccurrence)
}
