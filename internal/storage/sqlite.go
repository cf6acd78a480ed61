package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tagaudit/internal/analysis"
	"tagaudit/internal/corpus"
	"tagaudit/internal/hierarchy"
	"tagaudit/internal/network"
	"tagaudit/internal/quality"
	"tagaudit/internal/similarity"
)

// Issue groups stored in the quality_issues table.
const (
	issueDuplicate     = "duplicate"
	issueNonPrimary    = "non_primary_source"
	issuePattern       = "attachment_pattern"
	issueNoAttachments = "no_attachments"
)

// SQLiteStore persists corpus snapshots and analysis runs. Everything in
// it is a derived artifact, regenerable from the source snapshot; runs are
// keyed by their UUID so reruns never overwrite history.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			generated_at TEXT,
			payload JSON
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			generated_at TEXT,
			similarity_threshold INTEGER,
			overlap_ratio REAL,
			stats JSON
		);`,
		`CREATE TABLE IF NOT EXISTS similar_tags (
			run_id TEXT,
			position INTEGER,
			tag1 TEXT,
			tag2 TEXT,
			count1 INTEGER,
			count2 INTEGER,
			similarity INTEGER,
			ratio INTEGER,
			partial INTEGER,
			token_sort INTEGER,
			suggested_merge TEXT,
			PRIMARY KEY (run_id, position)
		);`,
		`CREATE TABLE IF NOT EXISTS hierarchy_relations (
			run_id TEXT,
			position INTEGER,
			broader TEXT,
			narrower TEXT,
			broader_count INTEGER,
			narrower_count INTEGER,
			relationship_type TEXT,
			PRIMARY KEY (run_id, position)
		);`,
		`CREATE TABLE IF NOT EXISTS cooccurrence_pairs (
			run_id TEXT,
			position INTEGER,
			tag1 TEXT,
			tag2 TEXT,
			count INTEGER,
			tag1_total INTEGER,
			tag2_total INTEGER,
			PRIMARY KEY (run_id, position)
		);`,
		`CREATE TABLE IF NOT EXISTS quality_issues (
			run_id TEXT,
			position INTEGER,
			issue_group TEXT,
			item_key TEXT,
			detail JSON,
			PRIMARY KEY (run_id, issue_group, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_similar_run ON similar_tags(run_id);`,
		`CREATE INDEX IF NOT EXISTS idx_quality_run ON quality_issues(run_id);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot stores the snapshot document as a new row.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *corpus.Snapshot) error {
	payload, err := snap.Marshal()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (generated_at, payload) VALUES (?, ?)`,
		snap.GeneratedAt, payload)
	return err
}

// LoadLatestSnapshot returns the most recently stored snapshot.
func (s *SQLiteStore) LoadLatestSnapshot(ctx context.Context) (*corpus.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots ORDER BY id DESC LIMIT 1`)

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no snapshot stored yet: run extract first")
		}
		return nil, err
	}
	return corpus.ParseSnapshot(payload)
}

// SaveRun persists a full analysis result in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, res *analysis.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stats, err := json.Marshal(res.Stats)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, generated_at, similarity_threshold, overlap_ratio, stats)
		VALUES (?, ?, ?, ?, ?)
	`, res.RunID, res.GeneratedAt.Format(time.RFC3339), res.Options.SimilarityThreshold, res.Options.OverlapRatio, stats); err != nil {
		return err
	}

	simStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO similar_tags (run_id, position, tag1, tag2, count1, count2, similarity, ratio, partial, token_sort, suggested_merge)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer simStmt.Close()
	for i, p := range res.SimilarPairs {
		if _, err := simStmt.Exec(res.RunID, i, p.Tag1, p.Tag2, p.Count1, p.Count2, p.Similarity, p.Ratio, p.Partial, p.TokenSort, p.SuggestedMerge); err != nil {
			return err
		}
	}

	relStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO hierarchy_relations (run_id, position, broader, narrower, broader_count, narrower_count, relationship_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer relStmt.Close()
	for i, r := range res.Hierarchy {
		if _, err := relStmt.Exec(res.RunID, i, r.Broader, r.Narrower, r.BroaderCount, r.NarrowerCount, string(r.Type)); err != nil {
			return err
		}
	}

	coStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cooccurrence_pairs (run_id, position, tag1, tag2, count, tag1_total, tag2_total)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer coStmt.Close()
	for i, p := range res.Cooccurrence {
		if _, err := coStmt.Exec(res.RunID, i, p.Tag1, p.Tag2, p.Count, p.Tag1Total, p.Tag2Total); err != nil {
			return err
		}
	}

	if err := saveQuality(ctx, tx, res); err != nil {
		return err
	}

	return tx.Commit()
}

func saveQuality(ctx context.Context, tx *sql.Tx, res *analysis.Result) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO quality_issues (run_id, position, issue_group, item_key, detail)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	insert := func(position int, group, itemKey string, issue interface{}) error {
		detail, err := json.Marshal(issue)
		if err != nil {
			return err
		}
		_, err = stmt.Exec(res.RunID, position, group, itemKey, detail)
		return err
	}

	for i, issue := range res.Quality.Duplicates {
		if err := insert(i, issueDuplicate, issue.ItemKey, issue); err != nil {
			return err
		}
	}
	for i, issue := range res.Quality.NonPrimarySources {
		if err := insert(i, issueNonPrimary, issue.ItemKey, issue); err != nil {
			return err
		}
	}
	for i, issue := range res.Quality.AttachmentPatterns {
		if err := insert(i, issuePattern, issue.ItemKey, issue); err != nil {
			return err
		}
	}
	for i, issue := range res.Quality.NoAttachments {
		if err := insert(i, issueNoAttachments, issue.ItemKey, issue); err != nil {
			return err
		}
	}
	return nil
}

// LoadRun reconstructs a stored analysis result. An empty runID loads the
// most recent run.
func (s *SQLiteStore) LoadRun(ctx context.Context, runID string) (*analysis.Result, error) {
	var row *sql.Row
	if runID == "" {
		row = s.db.QueryRowContext(ctx,
			`SELECT id, generated_at, similarity_threshold, overlap_ratio, stats FROM runs ORDER BY generated_at DESC LIMIT 1`)
	} else {
		row = s.db.QueryRowContext(ctx,
			`SELECT id, generated_at, similarity_threshold, overlap_ratio, stats FROM runs WHERE id = ?`, runID)
	}

	res := &analysis.Result{}
	var generatedAt string
	var stats []byte
	if err := row.Scan(&res.RunID, &generatedAt, &res.Options.SimilarityThreshold, &res.Options.OverlapRatio, &stats); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no analysis run found: run analyze first")
		}
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339, generatedAt); err == nil {
		res.GeneratedAt = t
	}
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &res.Stats); err != nil {
			return nil, fmt.Errorf("decode run stats: %w", err)
		}
	}

	if err := s.loadSimilar(ctx, res); err != nil {
		return nil, err
	}
	if err := s.loadHierarchy(ctx, res); err != nil {
		return nil, err
	}
	if err := s.loadCooccurrence(ctx, res); err != nil {
		return nil, err
	}
	if err := s.loadQuality(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SQLiteStore) loadSimilar(ctx context.Context, res *analysis.Result) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag1, tag2, count1, count2, similarity, ratio, partial, token_sort, suggested_merge
		FROM similar_tags WHERE run_id = ? ORDER BY position
	`, res.RunID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p similarity.Pair
		if err := rows.Scan(&p.Tag1, &p.Tag2, &p.Count1, &p.Count2, &p.Similarity, &p.Ratio, &p.Partial, &p.TokenSort, &p.SuggestedMerge); err != nil {
			return err
		}
		res.SimilarPairs = append(res.SimilarPairs, p)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadHierarchy(ctx context.Context, res *analysis.Result) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT broader, narrower, broader_count, narrower_count, relationship_type
		FROM hierarchy_relations WHERE run_id = ? ORDER BY position
	`, res.RunID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r hierarchy.Relation
		var relType string
		if err := rows.Scan(&r.Broader, &r.Narrower, &r.BroaderCount, &r.NarrowerCount, &relType); err != nil {
			return err
		}
		r.Type = hierarchy.RelationType(relType)
		res.Hierarchy = append(res.Hierarchy, r)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadCooccurrence(ctx context.Context, res *analysis.Result) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag1, tag2, count, tag1_total, tag2_total
		FROM cooccurrence_pairs WHERE run_id = ? ORDER BY position
	`, res.RunID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p network.Pair
		if err := rows.Scan(&p.Tag1, &p.Tag2, &p.Count, &p.Tag1Total, &p.Tag2Total); err != nil {
			return err
		}
		res.Cooccurrence = append(res.Cooccurrence, p)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadQuality(ctx context.Context, res *analysis.Result) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT issue_group, detail FROM quality_issues
		WHERE run_id = ? ORDER BY issue_group, position
	`, res.RunID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var group string
		var detail []byte
		if err := rows.Scan(&group, &detail); err != nil {
			return err
		}

		switch group {
		case issueDuplicate:
			var issue quality.DuplicateIssue
			if err := json.Unmarshal(detail, &issue); err != nil {
				return fmt.Errorf("decode %s issue: %w", group, err)
			}
			res.Quality.Duplicates = append(res.Quality.Duplicates, issue)
		case issueNonPrimary:
			var issue quality.NonPrimaryIssue
			if err := json.Unmarshal(detail, &issue); err != nil {
				return fmt.Errorf("decode %s issue: %w", group, err)
			}
			res.Quality.NonPrimarySources = append(res.Quality.NonPrimarySources, issue)
		case issuePattern:
			var issue quality.PatternIssue
			if err := json.Unmarshal(detail, &issue); err != nil {
				return fmt.Errorf("decode %s issue: %w", group, err)
			}
			res.Quality.AttachmentPatterns = append(res.Quality.AttachmentPatterns, issue)
		case issueNoAttachments:
			var issue quality.MissingIssue
			if err := json.Unmarshal(detail, &issue); err != nil {
				return fmt.Errorf("decode %s issue: %w", group, err)
			}
			res.Quality.NoAttachments = append(res.Quality.NoAttachments, issue)
		default:
			return fmt.Errorf("unknown quality issue group %q", group)
		}
	}
	return rows.Err()
}
