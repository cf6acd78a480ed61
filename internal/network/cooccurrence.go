package network

import (
	"sort"

	"tagaudit/internal/corpus"
)

// Pair is an unordered pair of distinct tag labels with the number of
// items carrying both, plus each tag's independent total usage. Tag1 sorts
// before Tag2 so each unordered pair has exactly one canonical form.
type Pair struct {
	Tag1      string `json:"tag1"`
	Tag2      string `json:"tag2"`
	Count     int    `json:"count"`
	Tag1Total int    `json:"tag1_total"`
	Tag2Total int    `json:"tag2_total"`
}

type pairKey struct {
	a, b string
}

func canonical(t1, t2 string) pairKey {
	if t2 < t1 {
		t1, t2 = t2, t1
	}
	return pairKey{a: t1, b: t2}
}

// Build derives the co-occurrence network from the tag→items index by
// inverting it into an item→tags index first. Cost is driven by the number
// of tag pairs per item, not by the square of the tag vocabulary; items
// with fewer than two tags contribute nothing.
func Build(tags []corpus.Tag) []Pair {
	totals := make(map[string]int, len(tags))
	itemTags := make(map[string][]string)
	for _, tag := range tags {
		totals[tag.Label] = tag.Count
		for _, key := range tag.Items {
			itemTags[key] = append(itemTags[key], tag.Label)
		}
	}

	counts := make(map[pairKey]int)
	for _, labels := range itemTags {
		if len(labels) < 2 {
			continue
		}
		sort.Strings(labels)
		for i := 0; i < len(labels); i++ {
			for j := i + 1; j < len(labels); j++ {
				counts[canonical(labels[i], labels[j])]++
			}
		}
	}

	pairs := make([]Pair, 0, len(counts))
	for key, count := range counts {
		pairs = append(pairs, Pair{
			Tag1:      key.a,
			Tag2:      key.b,
			Count:     count,
			Tag1Total: totals[key.a],
			Tag2Total: totals[key.b],
		})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Count == pairs[j].Count {
			if pairs[i].Tag1 == pairs[j].Tag1 {
				return pairs[i].Tag2 < pairs[j].Tag2
			}
			return pairs[i].Tag1 < pairs[j].Tag1
		}
		return pairs[i].Count > pairs[j].Count
	})
	return pairs
}
