package hierarchy

import (
	"fmt"
	"strings"

	"tagaudit/internal/corpus"
	"tagaudit/internal/network"
)

// RelationType names the rule that produced a candidate relation. Both
// rules may legitimately fire for the same pair; deduplicating across rule
// types is a downstream human decision, not done here.
type RelationType string

const (
	// RelationSubstring: the broader label is contained in the narrower
	// one ("Mine" is broader than "Coal Mine").
	RelationSubstring RelationType = "substring"
	// RelationCooccurrence: most of the narrower tag's usage overlaps
	// with the broader, more frequent tag.
	RelationCooccurrence RelationType = "cooccurrence"
)

// DefaultOverlapRatio is the fraction of the less-frequent tag's usage
// that must co-occur with the more-frequent tag before a cooccurrence
// relation is emitted. Empirically chosen; override via Inferencer.
const DefaultOverlapRatio = 0.5

// Relation is a candidate (broader, narrower) pair for human review.
// Inference is advisory: the engine never auto-applies a hierarchy.
type Relation struct {
	Broader       string       `json:"broader"`
	Narrower      string       `json:"narrower"`
	BroaderCount  int          `json:"broader_count"`
	NarrowerCount int          `json:"narrower_count"`
	Type          RelationType `json:"relationship_type"`
}

// Inferencer derives candidate parent/child tag relations.
type Inferencer struct {
	overlapRatio float64
}

// NewInferencer validates the overlap ratio up front; it must be a
// fraction in (0, 1].
func NewInferencer(overlapRatio float64) (*Inferencer, error) {
	if overlapRatio <= 0 || overlapRatio > 1 {
		return nil, fmt.Errorf("co-occurrence overlap ratio %v out of range: must be in (0, 1]", overlapRatio)
	}
	return &Inferencer{overlapRatio: overlapRatio}, nil
}

// Infer applies both rules and returns every candidate found. The
// co-occurrence pairs must describe the same tag set; they are the one
// input this component consumes from another analysis.
func (inf *Inferencer) Infer(tags []corpus.Tag, cooc []network.Pair) []Relation {
	relations := inf.substringRelations(tags)
	relations = append(relations, inf.cooccurrenceRelations(cooc)...)
	return relations
}

// substringRelations checks every ordered pair: when one normalised label
// is contained in the other, the contained (shorter) label is the broader
// term. Labels that normalise identically (pure case variants) cannot be
// ordered and are left to the similarity detector.
func (inf *Inferencer) substringRelations(tags []corpus.Tag) []Relation {
	var relations []Relation
	for _, narrower := range tags {
		nLower := corpus.Normalize(narrower.Label)
		for _, broader := range tags {
			if narrower.Label == broader.Label {
				continue
			}
			bLower := corpus.Normalize(broader.Label)
			if bLower == nLower || !strings.Contains(nLower, bLower) {
				continue
			}
			relations = append(relations, Relation{
				Broader:       broader.Label,
				Narrower:      narrower.Label,
				BroaderCount:  broader.Count,
				NarrowerCount: narrower.Count,
				Type:          RelationSubstring,
			})
		}
	}
	return relations
}

// cooccurrenceRelations emits a relation when the overlap fraction of the
// less-frequent tag exceeds the configured ratio. A tag used once can
// never satisfy the rule for any partner; that is accepted, not
// special-cased. Equal counts break toward the pair's canonical first tag.
func (inf *Inferencer) cooccurrenceRelations(cooc []network.Pair) []Relation {
	var relations []Relation
	for _, pair := range cooc {
		if pair.Count == 0 {
			continue
		}
		lesser := pair.Tag1Total
		if pair.Tag2Total < lesser {
			lesser = pair.Tag2Total
		}
		if lesser == 0 {
			continue
		}
		if float64(pair.Count)/float64(lesser) <= inf.overlapRatio {
			continue
		}

		broader, narrower := pair.Tag1, pair.Tag2
		broaderCount, narrowerCount := pair.Tag1Total, pair.Tag2Total
		if pair.Tag2Total > pair.Tag1Total {
			broader, narrower = pair.Tag2, pair.Tag1
			broaderCount, narrowerCount = pair.Tag2Total, pair.Tag1Total
		}
		relations = append(relations, Relation{
			Broader:       broader,
			Narrower:      narrower,
			BroaderCount:  broaderCount,
			NarrowerCount: narrowerCount,
			Type:          RelationCooccurrence,
		})
	}
	return relations
}
