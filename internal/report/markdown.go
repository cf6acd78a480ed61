package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tagaudit/internal/analysis"
	"tagaudit/internal/corpus"
	"tagaudit/internal/quality"
)

const timeLayout = "2006-01-02 15:04:05"

// RenderTagAnalysis produces the tag analysis report: similar pairs,
// hierarchy candidates and co-occurrence patterns, with the top rows of
// each export rendered as Markdown tables for human review.
func RenderTagAnalysis(res *analysis.Result) string {
	var sb strings.Builder

	sb.WriteString("# Tag Analysis Report\n\n")
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n", res.GeneratedAt.Format(timeLayout)))
	sb.WriteString(fmt.Sprintf("**Run ID:** `%s`\n\n", res.RunID))
	sb.WriteString("---\n\n")

	sb.WriteString("## 1. Similar Tags Analysis\n\n")
	sb.WriteString(fmt.Sprintf("Found **%d** pairs of similar tags that may need consolidation.\n\n", len(res.SimilarPairs)))
	sb.WriteString("These represent potential duplicates, spelling variations, or related terms that should be standardized.\n\n")

	if len(res.SimilarPairs) > 0 {
		sb.WriteString("### Top 20 Most Similar Tag Pairs (Recommended for Review)\n\n")
		sb.WriteString("| Tag 1 | Tag 2 | Similarity | Count 1 | Count 2 | Suggested Merge To |\n")
		sb.WriteString("|-------|-------|------------|---------|---------|--------------------|\n")
		for _, p := range top(res.SimilarPairs, 20) {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d%% | %d | %d | **%s** |\n",
				p.Tag1, p.Tag2, p.Similarity, p.Count1, p.Count2, p.SuggestedMerge))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("All pairs shown have at least %d%% similarity in one metric (ratio, partial, or token sort).\n\n", res.Options.SimilarityThreshold))
	sb.WriteString("---\n\n")

	sb.WriteString("## 2. Hierarchical Relationships\n\n")
	sb.WriteString(fmt.Sprintf("Found **%d** potential parent-child relationships between tags.\n\n", len(res.Hierarchy)))

	if len(res.Hierarchy) > 0 {
		sb.WriteString("### Detected Hierarchies (Top 20)\n\n")
		sb.WriteString("| Broader Term | Narrower Term | Broader Count | Narrower Count | Rule |\n")
		sb.WriteString("|--------------|---------------|---------------|----------------|------|\n")
		for _, h := range top(res.Hierarchy, 20) {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %s |\n",
				h.Broader, h.Narrower, h.BroaderCount, h.NarrowerCount, h.Type))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("*No clear hierarchical relationships detected in tag names.*\n\n")
	}

	sb.WriteString("**Note:** These are detected candidates only. Manual review decides true hierarchical relationships; the same pair may appear once per rule.\n\n")
	sb.WriteString("---\n\n")

	sb.WriteString("## 3. Tag Co-occurrence Patterns\n\n")
	sb.WriteString("Analyzed how tags appear together on the same items. This reveals thematic clusters and suggests potential tag categories.\n\n")

	if len(res.Cooccurrence) > 0 {
		sb.WriteString("### Top 30 Most Common Tag Pairs\n\n")
		sb.WriteString("| Tag 1 | Tag 2 | Co-occurrence Count | Tag 1 Total | Tag 2 Total |\n")
		sb.WriteString("|-------|-------|---------------------|-------------|-------------|\n")
		for _, c := range top(res.Cooccurrence, 30) {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d |\n",
				c.Tag1, c.Tag2, c.Count, c.Tag1Total, c.Tag2Total))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("---\n\n")
	sb.WriteString("## 4. Recommendations\n\n")
	sb.WriteString("1. **Review high-similarity pairs** (>90%) first - likely duplicates or spelling variations\n")
	sb.WriteString("2. **Standardize singular/plural forms** - choose a convention\n")
	sb.WriteString("3. **Resolve case inconsistencies** - establish capitalization rules\n")
	sb.WriteString("4. **Group co-occurring tags** into thematic categories for a controlled vocabulary\n")

	return sb.String()
}

// RenderQuality produces the data quality report: duplicate clusters,
// non-primary sources, attachment patterns and missing attachments, with
// the priority summary the triage workflow starts from.
func RenderQuality(res *analysis.Result) string {
	q := res.Quality
	var sb strings.Builder

	sb.WriteString("# Data Quality Issues Report\n\n")
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n", res.GeneratedAt.Format(timeLayout)))
	sb.WriteString(fmt.Sprintf("**Run ID:** `%s`\n\n", res.RunID))
	sb.WriteString("---\n\n")

	sb.WriteString("## 1. Duplicate Items\n\n")
	sb.WriteString(fmt.Sprintf("**Count:** %d items with duplicate titles\n\n", len(q.Duplicates)))
	sb.WriteString("These items have identical titles and may represent duplicate entries, different articles with the same headline, or different editions of the same article.\n\n")

	if len(q.Duplicates) > 0 {
		groups := duplicateGroups(q.Duplicates)
		sb.WriteString(fmt.Sprintf("**Duplicate title groups:** %d\n\n", len(groups)))
		sb.WriteString("### Examples (first 10 groups)\n\n")
		for idx, group := range top(groups, 10) {
			sb.WriteString(fmt.Sprintf("**%d. \"%s\"** (%d items)\n", idx+1, group[0].Title, len(group)))
			for _, item := range group {
				sb.WriteString(fmt.Sprintf("   - Key: `%s`, Type: %s, Date: %s\n", item.ItemKey, item.ItemType, item.Date))
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("---\n\n")
	sb.WriteString("## 2. Non-Primary Source Items\n\n")
	sb.WriteString(fmt.Sprintf("**Count:** %d items\n\n", len(q.NonPrimarySources)))
	sb.WriteString("These items are notes, attachments, or reference-work types that may need reclassification or removal from the primary source dataset.\n\n")
	for _, issue := range top(q.NonPrimarySources, 20) {
		sb.WriteString(fmt.Sprintf("- Key: `%s`, Type: **%s**, Title: \"%s\"\n", issue.ItemKey, issue.ItemType, issue.Title))
	}
	if extra := len(q.NonPrimarySources) - 20; extra > 0 {
		sb.WriteString(fmt.Sprintf("\n*...and %d more*\n", extra))
	}
	sb.WriteString("\n---\n\n")

	sb.WriteString("## 3. Attachment Patterns\n\n")
	sb.WriteString(fmt.Sprintf("**Count:** %d items with children classified\n\n", len(q.AttachmentPatterns)))
	sb.WriteString(patternSummaryTable(q.AttachmentPatterns))
	sb.WriteString("\n---\n\n")

	sb.WriteString("## 4. Items without Attachments\n\n")
	sb.WriteString(fmt.Sprintf("**Count:** %d items\n\n", len(q.NoAttachments)))
	sb.WriteString("These items have no attachments or notes: missing files, placeholders, or text entered directly.\n\n")
	if len(q.NoAttachments) <= 50 {
		for _, issue := range q.NoAttachments {
			sb.WriteString(fmt.Sprintf("- Key: `%s`, Title: \"%s\"\n", issue.ItemKey, issue.Title))
		}
	} else {
		sb.WriteString(fmt.Sprintf("**Note:** Too many items to list individually (%d items). See data export for full list.\n", len(q.NoAttachments)))
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString("## 5. Summary and Priorities\n\n")
	sb.WriteString("1. **HIGH:** Review items with multiple PDFs - may need splitting\n")
	sb.WriteString("2. **HIGH:** Check duplicate items - merge or differentiate\n")
	sb.WriteString("3. **MEDIUM:** Verify items without attachments have text in notes\n")
	sb.WriteString("4. **LOW:** Reclassify non-primary source items if needed\n")

	return sb.String()
}

// RenderInspection produces the per-item attachment inspection report for
// the categories that need manual review, listing each item's children.
// The snapshot supplies the child detail and derived tag sets.
func RenderInspection(res *analysis.Result, snap *corpus.Snapshot) string {
	byCategory := make(map[quality.PatternCategory][]quality.PatternIssue)
	for _, issue := range res.Quality.AttachmentPatterns {
		byCategory[issue.Category] = append(byCategory[issue.Category], issue)
	}

	var sb strings.Builder
	sb.WriteString("# Multiple Attachments Inspection Report\n\n")
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n\n", res.GeneratedAt.Format(timeLayout)))
	sb.WriteString("---\n\n")
	sb.WriteString("## Summary by Category\n\n")
	sb.WriteString("| Category | Count | Priority |\n")
	sb.WriteString("|----------|-------|----------|\n")
	for _, cat := range []struct {
		cat      quality.PatternCategory
		priority quality.Priority
		label    string
	}{
		{quality.PatternMultiplePDFs, quality.PriorityHigh, "Multiple PDFs"},
		{quality.PatternPDFPlusNotes, quality.PriorityLow, "PDF + Notes"},
		{quality.PatternMultipleNotes, quality.PriorityMedium, "Multiple Notes"},
		{quality.PatternMixedContent, quality.PriorityMedium, "Mixed Content"},
		{quality.PatternUncertain, quality.PriorityMedium, "Uncertain"},
	} {
		sb.WriteString(fmt.Sprintf("| %s | %d | %s |\n", cat.label, len(byCategory[cat.cat]), cat.priority))
	}
	sb.WriteString("\n---\n\n")

	sb.WriteString("## HIGH PRIORITY: Multiple PDFs (Potential Split Candidates)\n\n")
	sb.WriteString("These items have multiple PDF attachments and may contain distinct primary sources that should be separated into individual entries.\n\n")

	for idx, issue := range top(byCategory[quality.PatternMultiplePDFs], 20) {
		item, ok := snap.Items[issue.ItemKey]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("### %d. \"%s\"\n\n", idx+1, item.Title))
		sb.WriteString(fmt.Sprintf("**Item Key:** `%s`\n", item.Key))
		sb.WriteString(fmt.Sprintf("**Type:** %s\n", item.ItemType))
		if item.Date != "" {
			sb.WriteString(fmt.Sprintf("**Date:** %s\n", item.Date))
		}
		if tags := snap.TagsForItem(item.Key); len(tags) > 0 {
			sb.WriteString(fmt.Sprintf("**Tags:** %s\n", strings.Join(tags, ", ")))
		}
		sb.WriteString(fmt.Sprintf("\n**Attachments (%d):**\n\n", len(item.Children)))
		for ci, child := range item.Children {
			name := child.Filename
			if name == "" {
				name = child.Title
			}
			sb.WriteString(fmt.Sprintf("%d. **%s:** %s\n", ci+1, child.Kind, name))
			if child.ContentType != "" {
				sb.WriteString(fmt.Sprintf("   - Content Type: %s\n", child.ContentType))
			}
		}
		sb.WriteString(fmt.Sprintf("\n**Action Required:** %s\n", issue.Action))
		sb.WriteString(fmt.Sprintf("**Reasoning:** %s\n\n---\n\n", issue.Reasoning))
	}

	for _, section := range []struct {
		cat   quality.PatternCategory
		title string
		blurb string
	}{
		{quality.PatternPDFPlusNotes, "PDF + Notes (Likely Text Extraction)", "PDFs with accompanying notes, typically text extraction. Usually fine as-is."},
		{quality.PatternMultipleNotes, "Multiple Notes (Transcribed Sections)", "Multiple notes without PDFs. May be transcribed text to consolidate."},
		{quality.PatternMixedContent, "Mixed Content", "Various attachment types needing individual review."},
		{quality.PatternUncertain, "Uncertain Cases", "Require manual inspection to determine appropriate action."},
	} {
		issues := byCategory[section.cat]
		sb.WriteString(fmt.Sprintf("## %s\n\n%s\n\n**Count:** %d\n\n", section.title, section.blurb, len(issues)))
		for idx, issue := range top(issues, 5) {
			sb.WriteString(fmt.Sprintf("%d. \"%s\" (Key: `%s`) - %d PDF(s), %d note(s)\n",
				idx+1, issue.Title, issue.ItemKey, issue.NumPDFs, issue.NumNotes))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func patternSummaryTable(issues []quality.PatternIssue) string {
	counts := make(map[quality.PatternCategory]int)
	for _, issue := range issues {
		counts[issue.Category]++
	}

	var sb strings.Builder
	sb.WriteString("| Category | Count | Priority | Description |\n")
	sb.WriteString("|----------|-------|----------|-------------|\n")
	sb.WriteString(fmt.Sprintf("| Multiple PDFs | %d | **HIGH** | Multiple PDF files - may be distinct sources |\n", counts[quality.PatternMultiplePDFs]))
	sb.WriteString(fmt.Sprintf("| PDF + Notes | %d | LOW | PDFs with text extraction notes |\n", counts[quality.PatternPDFPlusNotes]))
	sb.WriteString(fmt.Sprintf("| Multiple Notes | %d | MEDIUM | Multiple notes without PDFs |\n", counts[quality.PatternMultipleNotes]))
	sb.WriteString(fmt.Sprintf("| Mixed Content | %d | MEDIUM | Various attachment types |\n", counts[quality.PatternMixedContent]))
	sb.WriteString(fmt.Sprintf("| Uncertain | %d | MEDIUM | Requires manual inspection |\n", counts[quality.PatternUncertain]))
	return sb.String()
}

// duplicateGroups regroups the flat duplicate issues by normalised title,
// ordered by first appearance.
func duplicateGroups(issues []quality.DuplicateIssue) [][]quality.DuplicateIssue {
	index := make(map[string]int)
	var groups [][]quality.DuplicateIssue
	for _, issue := range issues {
		key := strings.ToLower(issue.Title)
		idx, ok := index[key]
		if !ok {
			idx = len(groups)
			index[key] = idx
			groups = append(groups, nil)
		}
		groups[idx] = append(groups[idx], issue)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i]) > len(groups[j])
	})
	return groups
}

func top[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// Timestamp formats a run time for file naming.
func Timestamp(t time.Time) string {
	return t.Format("20060102-150405")
}
