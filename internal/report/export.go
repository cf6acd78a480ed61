package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tagaudit/internal/analysis"
)

// WriteSimilarCSV writes the similarity export, already ordered by
// descending similarity.
func WriteSimilarCSV(w io.Writer, res *analysis.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"tag1", "tag2", "count1", "count2", "similarity", "ratio", "partial", "token_sort", "suggested_merge"}); err != nil {
		return err
	}
	for _, p := range res.SimilarPairs {
		record := []string{
			p.Tag1, p.Tag2,
			strconv.Itoa(p.Count1), strconv.Itoa(p.Count2),
			strconv.Itoa(p.Similarity), strconv.Itoa(p.Ratio), strconv.Itoa(p.Partial), strconv.Itoa(p.TokenSort),
			p.SuggestedMerge,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHierarchyCSV writes the hierarchy export.
func WriteHierarchyCSV(w io.Writer, res *analysis.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"broader", "narrower", "broader_count", "narrower_count", "relationship_type"}); err != nil {
		return err
	}
	for _, r := range res.Hierarchy {
		record := []string{
			r.Broader, r.Narrower,
			strconv.Itoa(r.BroaderCount), strconv.Itoa(r.NarrowerCount),
			string(r.Type),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// networkExport is the JSON document carrying the co-occurrence network.
type networkExport struct {
	GeneratedAt   string      `json:"generated_at"`
	RunID         string      `json:"run_id"`
	Cooccurrences interface{} `json:"cooccurrences"`
}

// WriteNetworkJSON writes the co-occurrence export.
func WriteNetworkJSON(w io.Writer, res *analysis.Result) error {
	doc := networkExport{
		GeneratedAt:   res.GeneratedAt.Format(time.RFC3339),
		RunID:         res.RunID,
		Cooccurrences: res.Cooccurrence,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteQualityCSVs writes one CSV per quality category into dir.
func WriteQualityCSVs(dir string, res *analysis.Result) error {
	q := res.Quality

	if err := writeCSVFile(filepath.Join(dir, "quality_duplicates.csv"),
		[]string{"item_key", "title", "item_type", "date", "siblings"},
		func(cw *csv.Writer) error {
			for _, issue := range q.Duplicates {
				if err := cw.Write([]string{issue.ItemKey, issue.Title, issue.ItemType, issue.Date, joinKeys(issue.Siblings)}); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
		return err
	}

	if err := writeCSVFile(filepath.Join(dir, "quality_non_primary_sources.csv"),
		[]string{"item_key", "title", "item_type"},
		func(cw *csv.Writer) error {
			for _, issue := range q.NonPrimarySources {
				if err := cw.Write([]string{issue.ItemKey, issue.Title, issue.ItemType}); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
		return err
	}

	if err := writeCSVFile(filepath.Join(dir, "quality_attachment_patterns.csv"),
		[]string{"item_key", "title", "category", "priority", "num_pdfs", "num_notes", "num_children"},
		func(cw *csv.Writer) error {
			for _, issue := range q.AttachmentPatterns {
				record := []string{
					issue.ItemKey, issue.Title, string(issue.Category), string(issue.Priority),
					strconv.Itoa(issue.NumPDFs), strconv.Itoa(issue.NumNotes), strconv.Itoa(issue.NumChildren),
				}
				if err := cw.Write(record); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
		return err
	}

	return writeCSVFile(filepath.Join(dir, "quality_no_attachments.csv"),
		[]string{"item_key", "title"},
		func(cw *csv.Writer) error {
			for _, issue := range q.NoAttachments {
				if err := cw.Write([]string{issue.ItemKey, issue.Title}); err != nil {
					return err
				}
			}
			return nil
		})
}

func writeCSVFile(path string, header []string, write func(*csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := write(cw); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func joinKeys(keys []string) string {
	return strings.Join(keys, ";")
}
