package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/invoice-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS invoice_runs (
	id             TEXT PRIMARY KEY,
	invoice_id     TEXT NOT NULL,
	vendor         TEXT NOT NULL,
	dataset        TEXT NOT NULL DEFAULT '',
	invoice_number TEXT NOT NULL DEFAULT '',
	fingerprint    TEXT NOT NULL DEFAULT '',
	is_duplicate   INTEGER NOT NULL DEFAULT 0,
	duplicate_of   TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS vendor_memory (
	vendor        TEXT NOT NULL,
	kind          TEXT NOT NULL,
	pattern       TEXT NOT NULL,
	confidence    REAL NOT NULL,
	support_count INTEGER NOT NULL DEFAULT 0,
	reject_count  INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL DEFAULT 'active',
	last_used_at  DATETIME,
	PRIMARY KEY (vendor, kind, pattern)
);

CREATE TABLE IF NOT EXISTS correction_memory (
	vendor        TEXT NOT NULL,
	field_path    TEXT NOT NULL,
	pattern_type  TEXT NOT NULL,
	pattern_value TEXT NOT NULL,
	value         TEXT NOT NULL DEFAULT '',
	confidence    REAL NOT NULL,
	support_count INTEGER NOT NULL DEFAULT 0,
	reject_count  INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL DEFAULT 'active',
	last_used_at  DATETIME,
	PRIMARY KEY (vendor, field_path, pattern_type, pattern_value)
);

CREATE TABLE IF NOT EXISTS resolution_memory (
	vendor       TEXT NOT NULL,
	strategy_key TEXT NOT NULL,
	tally        TEXT NOT NULL DEFAULT '{}',
	confidence   REAL NOT NULL,
	reject_count INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT 'active',
	last_used_at DATETIME,
	PRIMARY KEY (vendor, strategy_key)
);

CREATE TABLE IF NOT EXISTS duplicate_records (
	id           TEXT PRIMARY KEY,
	invoice_id   TEXT NOT NULL,
	vendor       TEXT NOT NULL,
	fingerprint  TEXT NOT NULL,
	duplicate_of TEXT NOT NULL,
	reason       TEXT NOT NULL,
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS learning_events (
	invoice_id TEXT PRIMARY KEY,
	decision   TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_events (
	id          TEXT PRIMARY KEY,
	ts          DATETIME NOT NULL,
	event_type  TEXT NOT NULL,
	vendor      TEXT NOT NULL DEFAULT '',
	invoice_id  TEXT NOT NULL DEFAULT '',
	entity_type TEXT NOT NULL DEFAULT '',
	entity_id   TEXT NOT NULL DEFAULT '',
	metadata    TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_vendor_number ON invoice_runs(vendor, invoice_number);
CREATE INDEX IF NOT EXISTS idx_runs_invoice_id ON invoice_runs(invoice_id);
CREATE INDEX IF NOT EXISTS idx_vendor_memory_vendor ON vendor_memory(vendor);
CREATE INDEX IF NOT EXISTS idx_correction_memory_vendor ON correction_memory(vendor);
CREATE INDEX IF NOT EXISTS idx_duplicates_vendor_fp ON duplicate_records(vendor, fingerprint);
CREATE INDEX IF NOT EXISTS idx_audit_invoice_id ON audit_events(invoice_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Invoice runs ---

func (s *SQLiteStore) CreateRun(ctx context.Context, run model.InvoiceRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invoice_runs (id, invoice_id, vendor, dataset, invoice_number, fingerprint, is_duplicate, duplicate_of, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.InvoiceID, run.Vendor, run.Dataset, run.InvoiceNumber,
		run.Fingerprint, boolToInt(run.IsDuplicate), run.DuplicateOf, run.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: insert run")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.InvoiceRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, invoice_id, vendor, dataset, invoice_number, fingerprint, is_duplicate, duplicate_of, created_at
		 FROM invoice_runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.InvoiceRun, error) {
	query := `SELECT id, invoice_id, vendor, dataset, invoice_number, fingerprint, is_duplicate, duplicate_of, created_at
		 FROM invoice_runs WHERE 1=1`
	var args []any

	if filter.Vendor != "" {
		query += ` AND vendor = ?`
		args = append(args, filter.Vendor)
	}
	if filter.DuplicatesOnly {
		query += ` AND is_duplicate = 1`
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.InvoiceRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) ListRunsByInvoiceNumber(ctx context.Context, vendor, invoiceNumber string) ([]model.InvoiceRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, invoice_id, vendor, dataset, invoice_number, fingerprint, is_duplicate, duplicate_of, created_at
		 FROM invoice_runs WHERE vendor = ? AND invoice_number = ? ORDER BY created_at ASC`,
		vendor, invoiceNumber)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs by invoice number")
	}
	defer rows.Close()

	var runs []model.InvoiceRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs by invoice number iterate")
}

func (s *SQLiteStore) MarkRunDuplicate(ctx context.Context, runID, duplicateOf string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE invoice_runs SET is_duplicate = 1, duplicate_of = ? WHERE id = ?`,
		duplicateOf, runID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark run duplicate %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

// --- Vendor memory ---

func (s *SQLiteStore) GetVendorMemory(ctx context.Context, vendor, kind, pattern string) (*model.VendorMemoryEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT vendor, kind, pattern, confidence, support_count, reject_count, status, last_used_at
		 FROM vendor_memory WHERE vendor = ? AND kind = ? AND pattern = ?`,
		vendor, kind, pattern)

	e, err := scanVendorMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get vendor memory")
	}
	return e, nil
}

func (s *SQLiteStore) ListVendorMemory(ctx context.Context, vendor string) ([]model.VendorMemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT vendor, kind, pattern, confidence, support_count, reject_count, status, last_used_at
		 FROM vendor_memory WHERE vendor = ? ORDER BY kind, pattern`, vendor)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list vendor memory")
	}
	defer rows.Close()

	var entries []model.VendorMemoryEntry
	for rows.Next() {
		e, err := scanVendorMemory(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan vendor memory")
		}
		entries = append(entries, *e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list vendor memory iterate")
}

func (s *SQLiteStore) UpsertVendorMemory(ctx context.Context, e model.VendorMemoryEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO vendor_memory (vendor, kind, pattern, confidence, support_count, reject_count, status, last_used_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (vendor, kind, pattern) DO UPDATE SET
			confidence = excluded.confidence,
			support_count = excluded.support_count,
			reject_count = excluded.reject_count,
			status = excluded.status,
			last_used_at = excluded.last_used_at`,
		e.Vendor, e.Kind, e.Pattern, e.Confidence, e.SupportCount, e.RejectCount,
		string(e.Status), nullTime(e.LastUsedAt),
	)
	return eris.Wrap(err, "sqlite: upsert vendor memory")
}

// --- Correction memory ---

func (s *SQLiteStore) GetCorrectionMemory(ctx context.Context, vendor, fieldPath, patternType, patternValue string) (*model.CorrectionMemoryEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT vendor, field_path, pattern_type, pattern_value, value, confidence, support_count, reject_count, status, last_used_at
		 FROM correction_memory WHERE vendor = ? AND field_path = ? AND pattern_type = ? AND pattern_value = ?`,
		vendor, fieldPath, patternType, patternValue)

	e, err := scanCorrectionMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get correction memory")
	}
	return e, nil
}

func (s *SQLiteStore) ListCorrectionMemory(ctx context.Context, vendor string) ([]model.CorrectionMemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT vendor, field_path, pattern_type, pattern_value, value, confidence, support_count, reject_count, status, last_used_at
		 FROM correction_memory WHERE vendor = ? ORDER BY field_path, pattern_type, pattern_value`, vendor)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list correction memory")
	}
	defer rows.Close()

	var entries []model.CorrectionMemoryEntry
	for rows.Next() {
		e, err := scanCorrectionMemory(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan correction memory")
		}
		entries = append(entries, *e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list correction memory iterate")
}

func (s *SQLiteStore) UpsertCorrectionMemory(ctx context.Context, e model.CorrectionMemoryEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO correction_memory (vendor, field_path, pattern_type, pattern_value, value, confidence, support_count, reject_count, status, last_used_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (vendor, field_path, pattern_type, pattern_value) DO UPDATE SET
			value = excluded.value,
			confidence = excluded.confidence,
			support_count = excluded.support_count,
			reject_count = excluded.reject_count,
			status = excluded.status,
			last_used_at = excluded.last_used_at`,
		e.Vendor, e.FieldPath, e.PatternType, e.PatternValue, e.Value,
		e.Confidence, e.SupportCount, e.RejectCount, string(e.Status), nullTime(e.LastUsedAt),
	)
	return eris.Wrap(err, "sqlite: upsert correction memory")
}

// --- Resolution memory ---

func (s *SQLiteStore) GetResolutionMemory(ctx context.Context, vendor, strategyKey string) (*model.ResolutionMemoryEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT vendor, strategy_key, tally, confidence, reject_count, status, last_used_at
		 FROM resolution_memory WHERE vendor = ? AND strategy_key = ?`,
		vendor, strategyKey)

	var e model.ResolutionMemoryEntry
	var tallyJSON string
	var status string
	var lastUsed sql.NullTime
	err := row.Scan(&e.Vendor, &e.StrategyKey, &tallyJSON, &e.Confidence, &e.RejectCount, &status, &lastUsed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get resolution memory")
	}
	// A tally that fails to parse degrades to an empty tally, not an error.
	_ = json.Unmarshal([]byte(tallyJSON), &e.Tally)
	e.Status = model.MemoryStatus(status)
	if lastUsed.Valid {
		e.LastUsedAt = lastUsed.Time.UTC()
	}
	return &e, nil
}

func (s *SQLiteStore) UpsertResolutionMemory(ctx context.Context, e model.ResolutionMemoryEntry) error {
	tallyJSON, err := json.Marshal(e.Tally)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal resolution tally")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO resolution_memory (vendor, strategy_key, tally, confidence, reject_count, status, last_used_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (vendor, strategy_key) DO UPDATE SET
			tally = excluded.tally,
			confidence = excluded.confidence,
			reject_count = excluded.reject_count,
			status = excluded.status,
			last_used_at = excluded.last_used_at`,
		e.Vendor, e.StrategyKey, string(tallyJSON), e.Confidence, e.RejectCount,
		string(e.Status), nullTime(e.LastUsedAt),
	)
	return eris.Wrap(err, "sqlite: upsert resolution memory")
}

// --- Duplicate records ---

func (s *SQLiteStore) CreateDuplicateRecord(ctx context.Context, rec model.DuplicateRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO duplicate_records (id, invoice_id, vendor, fingerprint, duplicate_of, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.InvoiceID, rec.Vendor, rec.Fingerprint, rec.DuplicateOf, rec.Reason, rec.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: insert duplicate record")
}

func (s *SQLiteStore) ListDuplicateRecordsByFingerprint(ctx context.Context, vendor, fingerprint string) ([]model.DuplicateRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, invoice_id, vendor, fingerprint, duplicate_of, reason, created_at
		 FROM duplicate_records WHERE vendor = ? AND fingerprint = ? ORDER BY created_at ASC`,
		vendor, fingerprint)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list duplicate records")
	}
	defer rows.Close()

	var recs []model.DuplicateRecord
	for rows.Next() {
		var r model.DuplicateRecord
		var createdAt time.Time
		if err := rows.Scan(&r.ID, &r.InvoiceID, &r.Vendor, &r.Fingerprint, &r.DuplicateOf, &r.Reason, &createdAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan duplicate record")
		}
		r.CreatedAt = createdAt.UTC()
		recs = append(recs, r)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: list duplicate records iterate")
}

// --- Learning events ---

func (s *SQLiteStore) HasLearned(ctx context.Context, invoiceID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM learning_events WHERE invoice_id = ?`, invoiceID).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: has learned")
	}
	return n > 0, nil
}

func (s *SQLiteStore) MarkLearned(ctx context.Context, ev model.LearningEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO learning_events (invoice_id, decision, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (invoice_id) DO NOTHING`,
		ev.InvoiceID, ev.Decision, ev.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: mark learned")
}

// --- Audit ---

func (s *SQLiteStore) AppendAudit(ctx context.Context, ev model.AuditEvent) error {
	var metadata any
	if ev.Metadata != nil {
		b, err := json.Marshal(ev.Metadata)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal audit metadata")
		}
		metadata = string(b)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, ts, event_type, vendor, invoice_id, entity_type, entity_id, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Timestamp.UTC(), ev.EventType, ev.Vendor, ev.InvoiceID, ev.EntityType, ev.EntityID, metadata,
	)
	return eris.Wrap(err, "sqlite: insert audit event")
}

func (s *SQLiteStore) ListAudit(ctx context.Context, invoiceID string) ([]model.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, event_type, vendor, invoice_id, entity_type, entity_id, metadata
		 FROM audit_events WHERE invoice_id = ? ORDER BY ts ASC, id ASC`, invoiceID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audit events")
	}
	defer rows.Close()

	var events []model.AuditEvent
	for rows.Next() {
		var ev model.AuditEvent
		var ts time.Time
		var metadata sql.NullString
		if err := rows.Scan(&ev.ID, &ts, &ev.EventType, &ev.Vendor, &ev.InvoiceID, &ev.EntityType, &ev.EntityID, &metadata); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan audit event")
		}
		ev.Timestamp = ts.UTC()
		if metadata.Valid {
			_ = json.Unmarshal([]byte(metadata.String), &ev.Metadata)
		}
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: list audit events iterate")
}

// --- helpers ---

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullTime maps the zero time to NULL so "never used" survives a round trip.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.InvoiceRun, error) {
	var r model.InvoiceRun
	var isDup int
	var createdAt time.Time

	err := row.Scan(&r.ID, &r.InvoiceID, &r.Vendor, &r.Dataset, &r.InvoiceNumber,
		&r.Fingerprint, &isDup, &r.DuplicateOf, &createdAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.IsDuplicate = isDup != 0
	r.CreatedAt = createdAt.UTC()
	return &r, nil
}

func scanVendorMemory(row scannable) (*model.VendorMemoryEntry, error) {
	var e model.VendorMemoryEntry
	var status string
	var lastUsed sql.NullTime

	err := row.Scan(&e.Vendor, &e.Kind, &e.Pattern, &e.Confidence,
		&e.SupportCount, &e.RejectCount, &status, &lastUsed)
	if err != nil {
		return nil, err
	}
	e.Status = model.MemoryStatus(status)
	if lastUsed.Valid {
		e.LastUsedAt = lastUsed.Time.UTC()
	}
	return &e, nil
}

func scanCorrectionMemory(row scannable) (*model.CorrectionMemoryEntry, error) {
	var e model.CorrectionMemoryEntry
	var status string
	var lastUsed sql.NullTime

	err := row.Scan(&e.Vendor, &e.FieldPath, &e.PatternType, &e.PatternValue, &e.Value,
		&e.Confidence, &e.SupportCount, &e.RejectCount, &status, &lastUsed)
	if err != nil {
		return nil, err
	}
	e.Status = model.MemoryStatus(status)
	if lastUsed.Valid {
		e.LastUsedAt = lastUsed.Time.UTC()
	}
	return &e, nil
}
