package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagaudit/internal/analysis"
	"tagaudit/internal/corpus"
	"tagaudit/internal/hierarchy"
	"tagaudit/internal/network"
	"tagaudit/internal/quality"
	"tagaudit/internal/similarity"
)

func reportResult() *analysis.Result {
	return &analysis.Result{
		RunID:       "run-test",
		GeneratedAt: time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC),
		Options:     analysis.Options{SimilarityThreshold: 80, OverlapRatio: 0.5},
		SimilarPairs: []similarity.Pair{
			{Tag1: "Shale Mine", Tag2: "Shale Mines", Count1: 12, Count2: 4,
				Similarity: 95, Ratio: 95, Partial: 90, TokenSort: 95, SuggestedMerge: "Shale Mine"},
		},
		Hierarchy: []hierarchy.Relation{
			{Broader: "Mine", Narrower: "Coal Mine", BroaderCount: 10, NarrowerCount: 3, Type: hierarchy.RelationSubstring},
		},
		Cooccurrence: []network.Pair{
			{Tag1: "Katoomba", Tag2: "Mining", Count: 2, Tag1Total: 2, Tag2Total: 3},
		},
		Quality: quality.Report{
			Duplicates: []quality.DuplicateIssue{
				{ItemKey: "T1", Title: "Town Talk.", ItemType: "newspaperArticle", Siblings: []string{"T2"}},
				{ItemKey: "T2", Title: "Town Talk.", ItemType: "newspaperArticle", Siblings: []string{"T1"}},
			},
			NonPrimarySources: []quality.NonPrimaryIssue{
				{ItemKey: "N1", Title: "A stray note", ItemType: "note"},
			},
			AttachmentPatterns: []quality.PatternIssue{
				{ItemKey: "P1", Title: "Two scans", Category: quality.PatternMultiplePDFs,
					Priority: quality.PriorityHigh, NumChildren: 2, NumPDFs: 2,
					Reasoning: "Has 2 PDF files with no notes. May be distinct sources combined.",
					Action:    "Review PDFs to check if they are different sources"},
			},
			NoAttachments: []quality.MissingIssue{
				{ItemKey: "E1", Title: "Nothing attached"},
			},
		},
	}
}

func TestRenderTagAnalysis(t *testing.T) {
	out := RenderTagAnalysis(reportResult())

	assert.Contains(t, out, "# Tag Analysis Report")
	assert.Contains(t, out, "`run-test`")
	assert.Contains(t, out, "| Shale Mine | Shale Mines | 95% | 12 | 4 | **Shale Mine** |")
	assert.Contains(t, out, "| Mine | Coal Mine | 10 | 3 | substring |")
	assert.Contains(t, out, "| Katoomba | Mining | 2 | 2 | 3 |")
	assert.Contains(t, out, "at least 80% similarity")
}

func TestRenderTagAnalysis_EmptyResult(t *testing.T) {
	res := &analysis.Result{RunID: "empty", GeneratedAt: time.Now(),
		Options: analysis.Options{SimilarityThreshold: 80, OverlapRatio: 0.5}}

	out := RenderTagAnalysis(res)
	assert.Contains(t, out, "Found **0** pairs")
	assert.Contains(t, out, "No clear hierarchical relationships detected")
}

func TestRenderQuality(t *testing.T) {
	out := RenderQuality(reportResult())

	assert.Contains(t, out, "# Data Quality Issues Report")
	assert.Contains(t, out, "**Count:** 2 items with duplicate titles")
	assert.Contains(t, out, "**Duplicate title groups:** 1")
	assert.Contains(t, out, "\"Town Talk.\"** (2 items)")
	assert.Contains(t, out, "Type: **note**")
	assert.Contains(t, out, "| Multiple PDFs | 1 | **HIGH** |")
	assert.Contains(t, out, "- Key: `E1`, Title: \"Nothing attached\"")
}

func TestRenderInspection(t *testing.T) {
	snap := &corpus.Snapshot{
		Tags: []corpus.Tag{
			{Label: "Mining", Count: 1, Items: []string{"P1"}, ItemTitles: []string{"Two scans"}},
		},
		Items: map[string]corpus.Item{
			"P1": {Key: "P1", Title: "Two scans", ItemType: "newspaperArticle", Date: "1889-05-04",
				Children: []corpus.Child{
					{Key: "c1", Kind: corpus.ChildAttachment, Filename: "page1.pdf", ContentType: corpus.PDFContentType},
					{Key: "c2", Kind: corpus.ChildAttachment, Filename: "page2.pdf", ContentType: corpus.PDFContentType},
				}},
		},
	}

	out := RenderInspection(reportResult(), snap)

	assert.Contains(t, out, "# Multiple Attachments Inspection Report")
	assert.Contains(t, out, "| Multiple PDFs | 1 | HIGH |")
	assert.Contains(t, out, "### 1. \"Two scans\"")
	assert.Contains(t, out, "**Tags:** Mining")
	assert.Contains(t, out, "page1.pdf")
	assert.Contains(t, out, "page2.pdf")
	assert.Contains(t, out, "**Action Required:** Review PDFs to check if they are different sources")
}

func TestRenderInspection_SkipsUnknownItems(t *testing.T) {
	snap := &corpus.Snapshot{Items: map[string]corpus.Item{}}
	out := RenderInspection(reportResult(), snap)
	assert.NotContains(t, out, "### 1.")
}

func TestWriteSimilarCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSimilarCSV(&buf, reportResult()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"tag1", "tag2", "count1", "count2", "similarity", "ratio", "partial", "token_sort", "suggested_merge"}, records[0])
	assert.Equal(t, []string{"Shale Mine", "Shale Mines", "12", "4", "95", "95", "90", "95", "Shale Mine"}, records[1])
}

func TestWriteHierarchyCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHierarchyCSV(&buf, reportResult()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Mine", "Coal Mine", "10", "3", "substring"}, records[1])
}

func TestWriteNetworkJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNetworkJSON(&buf, reportResult()))

	var doc struct {
		GeneratedAt   string         `json:"generated_at"`
		RunID         string         `json:"run_id"`
		Cooccurrences []network.Pair `json:"cooccurrences"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "run-test", doc.RunID)
	require.Len(t, doc.Cooccurrences, 1)
	assert.Equal(t, network.Pair{Tag1: "Katoomba", Tag2: "Mining", Count: 2, Tag1Total: 2, Tag2Total: 3}, doc.Cooccurrences[0])
}

func TestWriteQualityCSVs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteQualityCSVs(dir, reportResult()))

	for _, name := range []string{
		"quality_duplicates.csv",
		"quality_non_primary_sources.csv",
		"quality_attachment_patterns.csv",
		"quality_no_attachments.csv",
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "quality_duplicates.csv"))
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"T1", "Town Talk.", "newspaperArticle", "", "T2"}, records[1])
}

func TestDuplicateGroups_OrderedBySize(t *testing.T) {
	issues := []quality.DuplicateIssue{
		{ItemKey: "A1", Title: "Alpha"},
		{ItemKey: "B1", Title: "beta"},
		{ItemKey: "B2", Title: "Beta"},
		{ItemKey: "B3", Title: "BETA"},
		{ItemKey: "A2", Title: "alpha"},
	}

	groups := duplicateGroups(issues)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0], 3)
	assert.Len(t, groups[1], 2)
}

func TestTimestamp(t *testing.T) {
	ts := Timestamp(time.Date(2026, 8, 25, 10, 30, 45, 0, time.UTC))
	assert.Equal(t, "20260825-103045", ts)
	assert.False(t, strings.ContainsAny(ts, ": /"))
}
