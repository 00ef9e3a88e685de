package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-cli/internal/db"
	"github.com/sells-group/invoice-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot pipeline paths.
var preparedStatements = map[string]string{
	"get_vendor_memory":     `SELECT vendor, kind, pattern, confidence, support_count, reject_count, status, last_used_at FROM vendor_memory WHERE vendor = $1 AND kind = $2 AND pattern = $3`,
	"get_correction_memory": `SELECT vendor, field_path, pattern_type, pattern_value, value, confidence, support_count, reject_count, status, last_used_at FROM correction_memory WHERE vendor = $1 AND field_path = $2 AND pattern_type = $3 AND pattern_value = $4`,
	"get_resolution_memory": `SELECT vendor, strategy_key, tally, confidence, reject_count, status, last_used_at FROM resolution_memory WHERE vendor = $1 AND strategy_key = $2`,
	"has_learned":           `SELECT COUNT(*) FROM learning_events WHERE invoice_id = $1`,
	"insert_audit":          `INSERT INTO audit_events (id, ts, event_type, vendor, invoice_id, entity_type, entity_id, metadata) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS invoice_runs (
	id             TEXT PRIMARY KEY,
	invoice_id     TEXT NOT NULL,
	vendor         TEXT NOT NULL,
	dataset        TEXT NOT NULL DEFAULT '',
	invoice_number TEXT NOT NULL DEFAULT '',
	fingerprint    TEXT NOT NULL DEFAULT '',
	is_duplicate   BOOLEAN NOT NULL DEFAULT false,
	duplicate_of   TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS vendor_memory (
	vendor        TEXT NOT NULL,
	kind          TEXT NOT NULL,
	pattern       TEXT NOT NULL,
	confidence    DOUBLE PRECISION NOT NULL,
	support_count INTEGER NOT NULL DEFAULT 0,
	reject_count  INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL DEFAULT 'active',
	last_used_at  TIMESTAMPTZ,
	PRIMARY KEY (vendor, kind, pattern)
);

CREATE TABLE IF NOT EXISTS correction_memory (
	vendor        TEXT NOT NULL,
	field_path    TEXT NOT NULL,
	pattern_type  TEXT NOT NULL,
	pattern_value TEXT NOT NULL,
	value         TEXT NOT NULL DEFAULT '',
	confidence    DOUBLE PRECISION NOT NULL,
	support_count INTEGER NOT NULL DEFAULT 0,
	reject_count  INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL DEFAULT 'active',
	last_used_at  TIMESTAMPTZ,
	PRIMARY KEY (vendor, field_path, pattern_type, pattern_value)
);

CREATE TABLE IF NOT EXISTS resolution_memory (
	vendor       TEXT NOT NULL,
	strategy_key TEXT NOT NULL,
	tally        JSONB NOT NULL DEFAULT '{}',
	confidence   DOUBLE PRECISION NOT NULL,
	reject_count INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT 'active',
	last_used_at TIMESTAMPTZ,
	PRIMARY KEY (vendor, strategy_key)
);

CREATE TABLE IF NOT EXISTS duplicate_records (
	id           TEXT PRIMARY KEY,
	invoice_id   TEXT NOT NULL,
	vendor       TEXT NOT NULL,
	fingerprint  TEXT NOT NULL,
	duplicate_of TEXT NOT NULL,
	reason       TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS learning_events (
	invoice_id TEXT PRIMARY KEY,
	decision   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_events (
	id          TEXT PRIMARY KEY,
	ts          TIMESTAMPTZ NOT NULL,
	event_type  TEXT NOT NULL,
	vendor      TEXT NOT NULL DEFAULT '',
	invoice_id  TEXT NOT NULL DEFAULT '',
	entity_type TEXT NOT NULL DEFAULT '',
	entity_id   TEXT NOT NULL DEFAULT '',
	metadata    JSONB
);

CREATE INDEX IF NOT EXISTS idx_runs_vendor_number ON invoice_runs(vendor, invoice_number);
CREATE INDEX IF NOT EXISTS idx_runs_invoice_id ON invoice_runs(invoice_id);
CREATE INDEX IF NOT EXISTS idx_vendor_memory_vendor ON vendor_memory(vendor);
CREATE INDEX IF NOT EXISTS idx_correction_memory_vendor ON correction_memory(vendor);
CREATE INDEX IF NOT EXISTS idx_duplicates_vendor_fp ON duplicate_records(vendor, fingerprint);
CREATE INDEX IF NOT EXISTS idx_audit_invoice_id ON audit_events(invoice_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Invoice runs ---

func (s *PostgresStore) CreateRun(ctx context.Context, run model.InvoiceRun) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO invoice_runs (id, invoice_id, vendor, dataset, invoice_number, fingerprint, is_duplicate, duplicate_of, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, run.InvoiceID, run.Vendor, run.Dataset, run.InvoiceNumber,
		run.Fingerprint, run.IsDuplicate, run.DuplicateOf, run.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: insert run")
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.InvoiceRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, invoice_id, vendor, dataset, invoice_number, fingerprint, is_duplicate, duplicate_of, created_at
		 FROM invoice_runs WHERE id = $1`, runID)

	var r model.InvoiceRun
	err := row.Scan(&r.ID, &r.InvoiceID, &r.Vendor, &r.Dataset, &r.InvoiceNumber,
		&r.Fingerprint, &r.IsDuplicate, &r.DuplicateOf, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.InvoiceRun, error) {
	query := `SELECT id, invoice_id, vendor, dataset, invoice_number, fingerprint, is_duplicate, duplicate_of, created_at
		 FROM invoice_runs WHERE 1=1`
	var args []any

	if filter.Vendor != "" {
		args = append(args, filter.Vendor)
		query += ` AND vendor = $1`
	}
	if filter.DuplicatesOnly {
		query += ` AND is_duplicate`
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	return collectRuns(rows)
}

func (s *PostgresStore) ListRunsByInvoiceNumber(ctx context.Context, vendor, invoiceNumber string) ([]model.InvoiceRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, invoice_id, vendor, dataset, invoice_number, fingerprint, is_duplicate, duplicate_of, created_at
		 FROM invoice_runs WHERE vendor = $1 AND invoice_number = $2 ORDER BY created_at ASC`,
		vendor, invoiceNumber)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs by invoice number")
	}
	defer rows.Close()

	return collectRuns(rows)
}

func (s *PostgresStore) MarkRunDuplicate(ctx context.Context, runID, duplicateOf string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE invoice_runs SET is_duplicate = true, duplicate_of = $1 WHERE id = $2`,
		duplicateOf, runID)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark run duplicate %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

// --- Vendor memory ---

func (s *PostgresStore) GetVendorMemory(ctx context.Context, vendor, kind, pattern string) (*model.VendorMemoryEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT vendor, kind, pattern, confidence, support_count, reject_count, status, last_used_at
		 FROM vendor_memory WHERE vendor = $1 AND kind = $2 AND pattern = $3`,
		vendor, kind, pattern)

	var e model.VendorMemoryEntry
	var status string
	var lastUsed *time.Time
	err := row.Scan(&e.Vendor, &e.Kind, &e.Pattern, &e.Confidence,
		&e.SupportCount, &e.RejectCount, &status, &lastUsed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get vendor memory")
	}
	e.Status = model.MemoryStatus(status)
	if lastUsed != nil {
		e.LastUsedAt = lastUsed.UTC()
	}
	return &e, nil
}

func (s *PostgresStore) ListVendorMemory(ctx context.Context, vendor string) ([]model.VendorMemoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT vendor, kind, pattern, confidence, support_count, reject_count, status, last_used_at
		 FROM vendor_memory WHERE vendor = $1 ORDER BY kind, pattern`, vendor)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list vendor memory")
	}
	defer rows.Close()

	var entries []model.VendorMemoryEntry
	for rows.Next() {
		var e model.VendorMemoryEntry
		var status string
		var lastUsed *time.Time
		if err := rows.Scan(&e.Vendor, &e.Kind, &e.Pattern, &e.Confidence,
			&e.SupportCount, &e.RejectCount, &status, &lastUsed); err != nil {
			return nil, eris.Wrap(err, "postgres: scan vendor memory")
		}
		e.Status = model.MemoryStatus(status)
		if lastUsed != nil {
			e.LastUsedAt = lastUsed.UTC()
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list vendor memory iterate")
}

func (s *PostgresStore) UpsertVendorMemory(ctx context.Context, e model.VendorMemoryEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO vendor_memory (vendor, kind, pattern, confidence, support_count, reject_count, status, last_used_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (vendor, kind, pattern) DO UPDATE SET
			confidence = EXCLUDED.confidence,
			support_count = EXCLUDED.support_count,
			reject_count = EXCLUDED.reject_count,
			status = EXCLUDED.status,
			last_used_at = EXCLUDED.last_used_at`,
		e.Vendor, e.Kind, e.Pattern, e.Confidence, e.SupportCount, e.RejectCount,
		string(e.Status), pgNullTime(e.LastUsedAt),
	)
	return eris.Wrap(err, "postgres: upsert vendor memory")
}

// --- Correction memory ---

func (s *PostgresStore) GetCorrectionMemory(ctx context.Context, vendor, fieldPath, patternType, patternValue string) (*model.CorrectionMemoryEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT vendor, field_path, pattern_type, pattern_value, value, confidence, support_count, reject_count, status, last_used_at
		 FROM correction_memory WHERE vendor = $1 AND field_path = $2 AND pattern_type = $3 AND pattern_value = $4`,
		vendor, fieldPath, patternType, patternValue)

	var e model.CorrectionMemoryEntry
	var status string
	var lastUsed *time.Time
	err := row.Scan(&e.Vendor, &e.FieldPath, &e.PatternType, &e.PatternValue, &e.Value,
		&e.Confidence, &e.SupportCount, &e.RejectCount, &status, &lastUsed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get correction memory")
	}
	e.Status = model.MemoryStatus(status)
	if lastUsed != nil {
		e.LastUsedAt = lastUsed.UTC()
	}
	return &e, nil
}

func (s *PostgresStore) ListCorrectionMemory(ctx context.Context, vendor string) ([]model.CorrectionMemoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT vendor, field_path, pattern_type, pattern_value, value, confidence, support_count, reject_count, status, last_used_at
		 FROM correction_memory WHERE vendor = $1 ORDER BY field_path, pattern_type, pattern_value`, vendor)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list correction memory")
	}
	defer rows.Close()

	var entries []model.CorrectionMemoryEntry
	for rows.Next() {
		var e model.CorrectionMemoryEntry
		var status string
		var lastUsed *time.Time
		if err := rows.Scan(&e.Vendor, &e.FieldPath, &e.PatternType, &e.PatternValue, &e.Value,
			&e.Confidence, &e.SupportCount, &e.RejectCount, &status, &lastUsed); err != nil {
			return nil, eris.Wrap(err, "postgres: scan correction memory")
		}
		e.Status = model.MemoryStatus(status)
		if lastUsed != nil {
			e.LastUsedAt = lastUsed.UTC()
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list correction memory iterate")
}

func (s *PostgresStore) UpsertCorrectionMemory(ctx context.Context, e model.CorrectionMemoryEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO correction_memory (vendor, field_path, pattern_type, pattern_value, value, confidence, support_count, reject_count, status, last_used_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (vendor, field_path, pattern_type, pattern_value) DO UPDATE SET
			value = EXCLUDED.value,
			confidence = EXCLUDED.confidence,
			support_count = EXCLUDED.support_count,
			reject_count = EXCLUDED.reject_count,
			status = EXCLUDED.status,
			last_used_at = EXCLUDED.last_used_at`,
		e.Vendor, e.FieldPath, e.PatternType, e.PatternValue, e.Value,
		e.Confidence, e.SupportCount, e.RejectCount, string(e.Status), pgNullTime(e.LastUsedAt),
	)
	return eris.Wrap(err, "postgres: upsert correction memory")
}

// --- Resolution memory ---

func (s *PostgresStore) GetResolutionMemory(ctx context.Context, vendor, strategyKey string) (*model.ResolutionMemoryEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT vendor, strategy_key, tally, confidence, reject_count, status, last_used_at
		 FROM resolution_memory WHERE vendor = $1 AND strategy_key = $2`,
		vendor, strategyKey)

	var e model.ResolutionMemoryEntry
	var tallyJSON []byte
	var status string
	var lastUsed *time.Time
	err := row.Scan(&e.Vendor, &e.StrategyKey, &tallyJSON, &e.Confidence, &e.RejectCount, &status, &lastUsed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get resolution memory")
	}
	_ = json.Unmarshal(tallyJSON, &e.Tally)
	e.Status = model.MemoryStatus(status)
	if lastUsed != nil {
		e.LastUsedAt = lastUsed.UTC()
	}
	return &e, nil
}

func (s *PostgresStore) UpsertResolutionMemory(ctx context.Context, e model.ResolutionMemoryEntry) error {
	tallyJSON, err := json.Marshal(e.Tally)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal resolution tally")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO resolution_memory (vendor, strategy_key, tally, confidence, reject_count, status, last_used_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (vendor, strategy_key) DO UPDATE SET
			tally = EXCLUDED.tally,
			confidence = EXCLUDED.confidence,
			reject_count = EXCLUDED.reject_count,
			status = EXCLUDED.status,
			last_used_at = EXCLUDED.last_used_at`,
		e.Vendor, e.StrategyKey, tallyJSON, e.Confidence, e.RejectCount,
		string(e.Status), pgNullTime(e.LastUsedAt),
	)
	return eris.Wrap(err, "postgres: upsert resolution memory")
}

// --- Duplicate records ---

func (s *PostgresStore) CreateDuplicateRecord(ctx context.Context, rec model.DuplicateRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO duplicate_records (id, invoice_id, vendor, fingerprint, duplicate_of, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.InvoiceID, rec.Vendor, rec.Fingerprint, rec.DuplicateOf, rec.Reason, rec.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: insert duplicate record")
}

func (s *PostgresStore) ListDuplicateRecordsByFingerprint(ctx context.Context, vendor, fingerprint string) ([]model.DuplicateRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, invoice_id, vendor, fingerprint, duplicate_of, reason, created_at
		 FROM duplicate_records WHERE vendor = $1 AND fingerprint = $2 ORDER BY created_at ASC`,
		vendor, fingerprint)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list duplicate records")
	}
	defer rows.Close()

	var recs []model.DuplicateRecord
	for rows.Next() {
		var r model.DuplicateRecord
		if err := rows.Scan(&r.ID, &r.InvoiceID, &r.Vendor, &r.Fingerprint, &r.DuplicateOf, &r.Reason, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan duplicate record")
		}
		recs = append(recs, r)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: list duplicate records iterate")
}

// --- Learning events ---

func (s *PostgresStore) HasLearned(ctx context.Context, invoiceID string) (bool, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM learning_events WHERE invoice_id = $1`, invoiceID).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "postgres: has learned")
	}
	return n > 0, nil
}

func (s *PostgresStore) MarkLearned(ctx context.Context, ev model.LearningEvent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO learning_events (invoice_id, decision, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (invoice_id) DO NOTHING`,
		ev.InvoiceID, ev.Decision, ev.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: mark learned")
}

// --- Audit ---

func (s *PostgresStore) AppendAudit(ctx context.Context, ev model.AuditEvent) error {
	var metadata []byte
	if ev.Metadata != nil {
		b, err := json.Marshal(ev.Metadata)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal audit metadata")
		}
		metadata = b
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_events (id, ts, event_type, vendor, invoice_id, entity_type, entity_id, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, ev.Timestamp.UTC(), ev.EventType, ev.Vendor, ev.InvoiceID, ev.EntityType, ev.EntityID, metadata,
	)
	return eris.Wrap(err, "postgres: insert audit event")
}

func (s *PostgresStore) ListAudit(ctx context.Context, invoiceID string) ([]model.AuditEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, ts, event_type, vendor, invoice_id, entity_type, entity_id, metadata
		 FROM audit_events WHERE invoice_id = $1 ORDER BY ts ASC, id ASC`, invoiceID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audit events")
	}
	defer rows.Close()

	var events []model.AuditEvent
	for rows.Next() {
		var ev model.AuditEvent
		var metadata []byte
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.EventType, &ev.Vendor, &ev.InvoiceID, &ev.EntityType, &ev.EntityID, &metadata); err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit event")
		}
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &ev.Metadata)
		}
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "postgres: list audit events iterate")
}

// --- helpers ---

func collectRuns(rows pgx.Rows) ([]model.InvoiceRun, error) {
	var runs []model.InvoiceRun
	for rows.Next() {
		var r model.InvoiceRun
		if err := rows.Scan(&r.ID, &r.InvoiceID, &r.Vendor, &r.Dataset, &r.InvoiceNumber,
			&r.Fingerprint, &r.IsDuplicate, &r.DuplicateOf, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func pgNullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
