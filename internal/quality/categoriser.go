package quality

import (
	"fmt"
	"sort"

	"tagaudit/internal/corpus"
)

// Priority ranks how urgently a flagged item needs human review.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// PatternCategory is the outcome of the attachment-pattern decision tree.
type PatternCategory string

const (
	PatternMultiplePDFs  PatternCategory = "multiple_pdfs"
	PatternPDFPlusNotes  PatternCategory = "pdf_plus_notes"
	PatternMultipleNotes PatternCategory = "multiple_notes"
	PatternMixedContent  PatternCategory = "mixed_content"
	PatternUncertain     PatternCategory = "uncertain"
)

// nonPrimaryTypes are reference/derivative record types that are not
// primary sources themselves. Static membership test, nothing inferred.
var nonPrimaryTypes = map[string]bool{
	"note":                true,
	"annotation":          true,
	"attachment":          true,
	"encyclopediaArticle": true,
	"dictionaryEntry":     true,
}

// DuplicateIssue flags one item whose normalised title is shared with at
// least one sibling. Placeholder titles like "[No Title]" form degenerate
// but valid clusters; the report separates those for triage, so they are
// not filtered here.
type DuplicateIssue struct {
	ItemKey  string   `json:"item_key"`
	Title    string   `json:"title"`
	ItemType string   `json:"item_type"`
	Date     string   `json:"date,omitempty"`
	Siblings []string `json:"siblings"`
}

// NonPrimaryIssue flags an item whose record type is a reference or
// derivative type rather than a primary source.
type NonPrimaryIssue struct {
	ItemKey  string `json:"item_key"`
	Title    string `json:"title"`
	ItemType string `json:"item_type"`
}

// PatternIssue carries the decision-tree outcome for one item with
// children, with counts as evidence and a human-readable reasoning line.
type PatternIssue struct {
	ItemKey        string          `json:"item_key"`
	Title          string          `json:"title"`
	Category       PatternCategory `json:"category"`
	Priority       Priority        `json:"priority"`
	NumPDFs        int             `json:"num_pdfs"`
	NumNotes       int             `json:"num_notes"`
	NumAttachments int             `json:"num_attachments"`
	NumChildren    int             `json:"num_children"`
	Reasoning      string          `json:"reasoning"`
	Action         string          `json:"action"`
}

// MissingIssue flags an item with no children at all.
type MissingIssue struct {
	ItemKey string `json:"item_key"`
	Title   string `json:"title"`
}

// Report groups the quality issues by category. Categories are independent
// classifications: one item may appear in several of them.
type Report struct {
	Duplicates         []DuplicateIssue  `json:"duplicates"`
	NonPrimarySources  []NonPrimaryIssue `json:"non_primary_sources"`
	AttachmentPatterns []PatternIssue    `json:"attachment_patterns"`
	NoAttachments      []MissingIssue    `json:"no_attachments"`
}

// Categorise classifies every item in the snapshot. Items are visited in
// sorted key order so repeated runs on the same snapshot produce identical
// output.
func Categorise(snap *corpus.Snapshot) Report {
	keys := make([]string, 0, len(snap.Items))
	for key := range snap.Items {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var report Report
	titleGroups := make(map[string][]string)

	for _, key := range keys {
		item := snap.Items[key]
		titleGroups[corpus.Normalize(item.Title)] = append(titleGroups[corpus.Normalize(item.Title)], key)

		if nonPrimaryTypes[item.ItemType] {
			report.NonPrimarySources = append(report.NonPrimarySources, NonPrimaryIssue{
				ItemKey:  key,
				Title:    item.Title,
				ItemType: item.ItemType,
			})
		}

		if len(item.Children) == 0 {
			report.NoAttachments = append(report.NoAttachments, MissingIssue{ItemKey: key, Title: item.Title})
		} else {
			report.AttachmentPatterns = append(report.AttachmentPatterns, classifyPattern(item))
		}
	}

	for _, key := range keys {
		item := snap.Items[key]
		group := titleGroups[corpus.Normalize(item.Title)]
		if len(group) < 2 {
			continue
		}
		siblings := make([]string, 0, len(group)-1)
		for _, sibling := range group {
			if sibling != key {
				siblings = append(siblings, sibling)
			}
		}
		report.Duplicates = append(report.Duplicates, DuplicateIssue{
			ItemKey:  key,
			Title:    item.Title,
			ItemType: item.ItemType,
			Date:     item.Date,
			Siblings: siblings,
		})
	}

	return report
}

// classifyPattern runs the fixed-order decision tree over an item's
// children. The order is load-bearing: the categories are not mutually
// exclusive by counts alone, so evaluation order resolves the overlaps.
func classifyPattern(item corpus.Item) PatternIssue {
	var numPDFs, numNotes, numAttachments int
	for _, child := range item.Children {
		if child.IsPDF() {
			numPDFs++
		}
		switch child.Kind {
		case corpus.ChildNote:
			numNotes++
		case corpus.ChildAttachment:
			numAttachments++
		}
	}

	issue := PatternIssue{
		ItemKey:        item.Key,
		Title:          item.Title,
		NumPDFs:        numPDFs,
		NumNotes:       numNotes,
		NumAttachments: numAttachments,
		NumChildren:    len(item.Children),
	}

	switch {
	case numPDFs >= 2 && numNotes == 0:
		issue.Category = PatternMultiplePDFs
		issue.Priority = PriorityHigh
		issue.Reasoning = fmt.Sprintf("Has %d PDF files with no notes. May be distinct sources combined.", numPDFs)
		issue.Action = "Review if these are separate articles"
	case numPDFs >= 1 && numNotes >= 1:
		issue.Category = PatternPDFPlusNotes
		issue.Priority = PriorityLow
		issue.Reasoning = fmt.Sprintf("Has %d PDF(s) and %d note(s). Likely text extraction.", numPDFs, numNotes)
		issue.Action = "Probably legitimate structure"
	case numPDFs == 0 && numNotes >= 2:
		issue.Category = PatternMultipleNotes
		issue.Priority = PriorityMedium
		issue.Reasoning = fmt.Sprintf("Has %d notes with no PDFs. May be transcribed text sections.", numNotes)
		issue.Action = "Check if notes should be consolidated"
	case numAttachments > numPDFs+numNotes:
		issue.Category = PatternMixedContent
		issue.Priority = PriorityMedium
		issue.Reasoning = fmt.Sprintf("Has mixed attachment types: %d total attachments.", numAttachments)
		issue.Action = "Check attachment types and purposes"
	default:
		issue.Category = PatternUncertain
		issue.Priority = PriorityMedium
		issue.Reasoning = "Pattern unclear from metadata alone."
		issue.Action = "Manual inspection required"
	}
	return issue
}
