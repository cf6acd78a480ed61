package similarity

import (
	"fmt"
	"sort"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"tagaudit/internal/corpus"
)

// DefaultThreshold is the similarity score below which a tag pair is not
// reported. Empirically chosen for one corpus; override via Detector.
const DefaultThreshold = 80

// Pair is an unordered pair of distinct tag labels considered merge
// candidates. Similarity is the maximum of the three component scores.
type Pair struct {
	Tag1           string `json:"tag1"`
	Tag2           string `json:"tag2"`
	Count1         int    `json:"count1"`
	Count2         int    `json:"count2"`
	Similarity     int    `json:"similarity"`
	Ratio          int    `json:"ratio"`
	Partial        int    `json:"partial"`
	TokenSort      int    `json:"token_sort"`
	SuggestedMerge string `json:"suggested_merge"`
}

// Detector scores every unordered pair of tag labels with three fuzzy
// measures and keeps the pairs at or above its threshold.
type Detector struct {
	threshold int
}

// NewDetector validates the threshold before any computation begins.
// Out-of-range values are a caller error, never silently clamped.
func NewDetector(threshold int) (*Detector, error) {
	if threshold < 0 || threshold > 100 {
		return nil, fmt.Errorf("similarity threshold %d out of range: must be between 0 and 100", threshold)
	}
	return &Detector{threshold: threshold}, nil
}

// FindSimilar returns all pairs scoring at or above the threshold, ordered
// by descending similarity. Ties keep the stable enumeration order of the
// input, so a given snapshot always yields the same output.
//
// Three measures are computed on the lower-cased labels and the maximum
// wins: the character-edit ratio catches spelling variants, the best
// partial-alignment ratio catches containment (a compound term vs its head
// noun), and the token-sort ratio catches word-order variants. Any single
// measure firing makes the pair worth human review.
func (d *Detector) FindSimilar(tags []corpus.Tag) []Pair {
	var pairs []Pair

	for i := 0; i < len(tags); i++ {
		for j := i + 1; j < len(tags); j++ {
			a, b := tags[i], tags[j]
			la, lb := corpus.Normalize(a.Label), corpus.Normalize(b.Label)

			ratio := fuzzy.Ratio(la, lb)
			partial := fuzzy.PartialRatio(la, lb)
			tokenSort := fuzzy.TokenSortRatio(la, lb)

			score := ratio
			if partial > score {
				score = partial
			}
			if tokenSort > score {
				score = tokenSort
			}

			if score < d.threshold {
				continue
			}

			// The higher-count label survives a merge; on a tie the
			// first-encountered tag wins for determinism.
			suggested := a.Label
			if b.Count > a.Count {
				suggested = b.Label
			}

			pairs = append(pairs, Pair{
				Tag1:           a.Label,
				Tag2:           b.Label,
				Count1:         a.Count,
				Count2:         b.Count,
				Similarity:     score,
				Ratio:          ratio,
				Partial:        partial,
				TokenSort:      tokenSort,
				SuggestedMerge: suggested,
			})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Similarity > pairs[j].Similarity
	})
	return pairs
}
