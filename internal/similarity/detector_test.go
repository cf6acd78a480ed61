package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagaudit/internal/corpus"
)

func tag(label string, count int) corpus.Tag {
	return corpus.Tag{Label: label, Count: count}
}

func pairSet(pairs []Pair) map[[2]string]bool {
	set := make(map[[2]string]bool)
	for _, p := range pairs {
		a, b := p.Tag1, p.Tag2
		if b < a {
			a, b = b, a
		}
		set[[2]string{a, b}] = true
	}
	return set
}

func TestNewDetector_ThresholdValidation(t *testing.T) {
	for _, bad := range []int{-1, 101, 500} {
		_, err := NewDetector(bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "between 0 and 100")
	}

	for _, ok := range []int{0, 80, 100} {
		_, err := NewDetector(ok)
		assert.NoError(t, err)
	}
}

func TestFindSimilar(t *testing.T) {
	tags := []corpus.Tag{
		tag("Shale Mine", 12),
		tag("Shale Mines", 4),
		tag("Coal Mining", 7),
		tag("Mining Coal", 2),
		tag("Mine", 10),
		tag("Coal Mine", 3),
		tag("Logging", 5),
	}

	d, err := NewDetector(80)
	require.NoError(t, err)
	pairs := d.FindSimilar(tags)
	set := pairSet(pairs)

	t.Run("Spelling variant found by edit ratio", func(t *testing.T) {
		assert.True(t, set[[2]string{"Shale Mine", "Shale Mines"}])
	})

	t.Run("Word order variant found by token sort", func(t *testing.T) {
		assert.True(t, set[[2]string{"Coal Mining", "Mining Coal"}])
	})

	t.Run("Containment found by partial ratio", func(t *testing.T) {
		assert.True(t, set[[2]string{"Coal Mine", "Mine"}])
	})

	t.Run("Unrelated labels stay out", func(t *testing.T) {
		for key := range set {
			assert.NotContains(t, key, "Logging")
		}
	})

	t.Run("No self pairs and no duplicated unordered pairs", func(t *testing.T) {
		seen := make(map[[2]string]int)
		for _, p := range pairs {
			assert.NotEqual(t, p.Tag1, p.Tag2)
			a, b := p.Tag1, p.Tag2
			if b < a {
				a, b = b, a
			}
			seen[[2]string{a, b}]++
		}
		for key, n := range seen {
			assert.Equal(t, 1, n, "pair %v emitted more than once", key)
		}
	})

	t.Run("Ordered by descending similarity", func(t *testing.T) {
		for i := 1; i < len(pairs); i++ {
			assert.GreaterOrEqual(t, pairs[i-1].Similarity, pairs[i].Similarity)
		}
	})
}

func TestFindSimilar_PluralVariant(t *testing.T) {
	tags := []corpus.Tag{tag("Mining", 32), tag("Mines", 8)}

	d, err := NewDetector(55)
	require.NoError(t, err)
	pairs := d.FindSimilar(tags)

	require.Len(t, pairs, 1)
	assert.Equal(t, "Mining", pairs[0].SuggestedMerge)
	assert.GreaterOrEqual(t, pairs[0].Similarity, 55)
}

func TestFindSimilar_SuggestedMerge(t *testing.T) {
	t.Run("Higher count wins", func(t *testing.T) {
		d, _ := NewDetector(80)
		pairs := d.FindSimilar([]corpus.Tag{tag("Miners", 3), tag("Miner", 9)})
		require.Len(t, pairs, 1)
		assert.Equal(t, "Miner", pairs[0].SuggestedMerge)
	})

	t.Run("Tie goes to first-encountered tag", func(t *testing.T) {
		d, _ := NewDetector(80)
		pairs := d.FindSimilar([]corpus.Tag{tag("Miners", 5), tag("Miner", 5)})
		require.Len(t, pairs, 1)
		assert.Equal(t, "Miners", pairs[0].SuggestedMerge)
	})
}

func TestFindSimilar_Monotonicity(t *testing.T) {
	tags := []corpus.Tag{
		tag("Mining", 10), tag("Mines", 5), tag("Mine", 7),
		tag("Shale Mine", 3), tag("Shale Mines", 2),
		tag("Railway", 4), tag("Railways", 6),
	}

	loose, _ := NewDetector(50)
	strict, _ := NewDetector(90)

	looseSet := pairSet(loose.FindSimilar(tags))
	strictSet := pairSet(strict.FindSimilar(tags))

	for key := range strictSet {
		assert.True(t, looseSet[key], "pair %v found at 90 but missing at 50", key)
	}
	assert.GreaterOrEqual(t, len(looseSet), len(strictSet))
}

func TestFindSimilar_DegenerateCorpora(t *testing.T) {
	d, _ := NewDetector(80)

	assert.Empty(t, d.FindSimilar(nil))
	assert.Empty(t, d.FindSimilar([]corpus.Tag{tag("Mining", 1)}))
}
