package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/clinicalcore/orchestrator/core"
)

// SQLiteStore is the default durable Store backend, using the pure-Go
// modernc.org/sqlite driver (no cgo). One row per AuditEntry; the
// autoincrement rowid is the entry's numeric ID, which gives the
// process-monotonic sequence §5 requires.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) a SQLite database at path
// and ensures the audit_entries table exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writes; avoid SQLITE_BUSY churn

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	user_id_hash TEXT NOT NULL,
	handler_name TEXT NOT NULL,
	action TEXT NOT NULL,
	input_data TEXT,
	output_data TEXT,
	confidence_score INTEGER,
	explainability_score INTEGER,
	reasoning_summary TEXT,
	decision_factors TEXT,
	alternatives TEXT,
	escalation_triggered TEXT,
	safety_flags TEXT,
	clinician_override TEXT,
	reviewed_by_hash TEXT,
	review_timestamp TEXT,
	review_notes TEXT
);
CREATE INDEX IF NOT EXISTS idx_audit_handler ON audit_entries(handler_name);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_entries(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_escalation ON audit_entries(escalation_triggered);
`

func (s *SQLiteStore) Insert(ctx context.Context, entry *core.AuditEntry) (int64, error) {
	inputJSON, _ := json.Marshal(entry.InputData)
	outputJSON, _ := json.Marshal(entry.OutputData)
	factorsJSON, _ := json.Marshal(entry.DecisionFactors)
	alternativesJSON, _ := json.Marshal(entry.Alternatives)
	safetyJSON, _ := json.Marshal(entry.SafetyFlags)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_entries
			(timestamp, user_id_hash, handler_name, action, input_data, output_data,
			 confidence_score, explainability_score, reasoning_summary, decision_factors,
			 alternatives, escalation_triggered, safety_flags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.Format(time.RFC3339Nano), entry.UserIDHash, entry.HandlerName, entry.Action,
		string(inputJSON), string(outputJSON), entry.ConfidenceScore, entry.ExplainabilityScore,
		entry.ReasoningSummary, string(factorsJSON), string(alternativesJSON),
		entry.EscalationTriggered, string(safetyJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("audit: insert: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (*core.AuditEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM audit_entries WHERE id = ?`, id)
	entry, err := scanSQLiteRow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: audit entry %d", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("audit: get: %w", err)
	}
	return entry, nil
}

func (s *SQLiteStore) List(ctx context.Context, filters ListFilters) ([]core.AuditEntry, error) {
	query := `SELECT ` + sqliteColumns + ` FROM audit_entries WHERE 1=1`
	var args []interface{}

	if filters.Handler != "" {
		query += ` AND handler_name = ?`
		args = append(args, filters.Handler)
	}
	if filters.UserHash != "" {
		query += ` AND user_id_hash = ?`
		args = append(args, filters.UserHash)
	}
	if filters.MinConfidencePercent > 0 {
		query += ` AND confidence_score >= ?`
		args = append(args, filters.MinConfidencePercent)
	}
	if filters.EscalationsOnly {
		query += ` AND escalation_triggered IS NOT NULL`
	}
	if filters.SinceHours > 0 {
		cutoff := time.Now().UTC().Add(-time.Duration(filters.SinceHours) * time.Hour)
		query += ` AND timestamp >= ?`
		args = append(args, cutoff.Format(time.RFC3339Nano))
	}
	query += ` ORDER BY id DESC`
	if filters.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filters.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	defer rows.Close()

	var out []core.AuditEntry
	for rows.Next() {
		entry, err := scanSQLiteRow(rows)
		if err != nil {
			return nil, fmt.Errorf("audit: list scan: %w", err)
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateReview(ctx context.Context, id int64, review ReviewUpdate) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if review.Override != nil && existing.ClinicianOverride != nil {
		return core.ErrAlreadyReviewed
	}
	if review.ReviewedByHash != "" && existing.ReviewedByHash != nil {
		return core.ErrAlreadyReviewed
	}

	reviewedByHash := existing.ReviewedByHash
	if review.ReviewedByHash != "" {
		reviewedByHash = &review.ReviewedByHash
	}
	reviewNotes := existing.ReviewNotes
	if review.ReviewNotes != nil {
		reviewNotes = review.ReviewNotes
	}
	reviewTimestamp := existing.ReviewTimestamp
	if !review.ReviewTimestamp.IsZero() {
		reviewTimestamp = &review.ReviewTimestamp
	}

	var overrideJSON []byte
	override := existing.ClinicianOverride
	if review.Override != nil {
		override = review.Override
	}
	if override != nil {
		overrideJSON, _ = json.Marshal(override)
	}

	var reviewTimestampStr interface{}
	if reviewTimestamp != nil {
		reviewTimestampStr = reviewTimestamp.Format(time.RFC3339Nano)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE audit_entries
		SET reviewed_by_hash = ?, review_notes = ?, review_timestamp = ?, clinician_override = ?
		WHERE id = ?`,
		reviewedByHash, reviewNotes, reviewTimestampStr, nullableString(overrideJSON), id,
	)
	if err != nil {
		return fmt.Errorf("audit: update review: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

const sqliteColumns = `id, timestamp, user_id_hash, handler_name, action, input_data, output_data,
	confidence_score, explainability_score, reasoning_summary, decision_factors, alternatives,
	escalation_triggered, safety_flags, clinician_override, reviewed_by_hash, review_timestamp, review_notes`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSQLiteRow(row rowScanner) (*core.AuditEntry, error) {
	var (
		e                                                                  core.AuditEntry
		timestamp                                                         string
		inputJSON, outputJSON, factorsJSON, alternativesJSON, safetyJSON  sql.NullString
		overrideJSON                                                      sql.NullString
		escalationTriggered, reviewedByHash, reviewTimestamp, reviewNotes sql.NullString
		confidenceScore, explainabilityScore                              sql.NullInt64
	)

	if err := row.Scan(
		&e.ID, &timestamp, &e.UserIDHash, &e.HandlerName, &e.Action,
		&inputJSON, &outputJSON, &confidenceScore, &explainabilityScore,
		&e.ReasoningSummary, &factorsJSON, &alternativesJSON,
		&escalationTriggered, &safetyJSON, &overrideJSON,
		&reviewedByHash, &reviewTimestamp, &reviewNotes,
	); err != nil {
		return nil, err
	}

	if confidenceScore.Valid {
		v := int(confidenceScore.Int64)
		e.ConfidenceScore = &v
	}
	if explainabilityScore.Valid {
		v := int(explainabilityScore.Int64)
		e.ExplainabilityScore = &v
	}

	e.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
	if inputJSON.Valid {
		json.Unmarshal([]byte(inputJSON.String), &e.InputData)
	}
	if outputJSON.Valid {
		json.Unmarshal([]byte(outputJSON.String), &e.OutputData)
	}
	if factorsJSON.Valid {
		json.Unmarshal([]byte(factorsJSON.String), &e.DecisionFactors)
	}
	if alternativesJSON.Valid {
		json.Unmarshal([]byte(alternativesJSON.String), &e.Alternatives)
	}
	if safetyJSON.Valid {
		json.Unmarshal([]byte(safetyJSON.String), &e.SafetyFlags)
	}
	if overrideJSON.Valid && overrideJSON.String != "" {
		var override core.ClinicianOverride
		if json.Unmarshal([]byte(overrideJSON.String), &override) == nil {
			e.ClinicianOverride = &override
		}
	}
	if escalationTriggered.Valid {
		v := escalationTriggered.String
		e.EscalationTriggered = &v
	}
	if reviewedByHash.Valid {
		v := reviewedByHash.String
		e.ReviewedByHash = &v
	}
	if reviewTimestamp.Valid {
		t, err := time.Parse(time.RFC3339Nano, reviewTimestamp.String)
		if err == nil {
			e.ReviewTimestamp = &t
		}
	}
	if reviewNotes.Valid {
		v := reviewNotes.String
		e.ReviewNotes = &v
	}

	return &e, nil
}

func nullableString(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return string(b)
}
