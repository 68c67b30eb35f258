package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jordanhubbard/benchhub/internal/modelname"
	"github.com/jordanhubbard/benchhub/internal/tokencheck"
)

// timeLayout is a fixed-width UTC timestamp so that string comparison in
// SQL matches chronological order, including sub-second ordering of queue
// rows created in one enqueue transaction.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// priceSuppressionWindow: a new price row within this window of the last
// one is a no-op, which bounds the prices table to one row per model per day.
const priceSuppressionWindow = 24 * time.Hour

// responsePreviewLen is how much of a successful response is kept.
const responsePreviewLen = 100

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens or creates a SQLite database at the given DSN.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Enable WAL mode and set busy timeout.
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite pragmas: %w", err)
	}
	// SQLite only supports one writer at a time. Limit connections to avoid
	// contention and keep a small idle pool for read concurrency.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			run_name TEXT NOT NULL,
			triggered_by TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS providers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			base_url TEXT NOT NULL DEFAULT '',
			logo_url TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS models (
			id TEXT PRIMARY KEY,
			provider_id TEXT NOT NULL,
			name TEXT NOT NULL,
			context_window INTEGER,
			active INTEGER NOT NULL DEFAULT 0,
			last_seen_at TEXT,
			UNIQUE(provider_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS prices (
			id TEXT PRIMARY KEY,
			provider_id TEXT NOT NULL,
			model_id TEXT NOT NULL,
			input_per_m REAL NOT NULL,
			output_per_m REAL NOT NULL,
			timestamp TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prices_model ON prices(provider_id, model_id, timestamp)`,
		`CREATE TABLE IF NOT EXISTS benchmark_results (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			provider_id TEXT,
			model_id TEXT,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			input_tokens INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			reasoning_tokens INTEGER,
			total_latency_ms REAL NOT NULL DEFAULT 0,
			ttft_ms REAL,
			tps REAL,
			cost_usd REAL NOT NULL DEFAULT 0,
			status_code INTEGER,
			success INTEGER NOT NULL DEFAULT 0,
			error_message TEXT,
			response_text TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run ON benchmark_results(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_results_created ON benchmark_results(created_at)`,
		`CREATE TABLE IF NOT EXISTS run_errors (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			provider_id TEXT,
			model_id TEXT,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			error_type TEXT NOT NULL,
			error_message TEXT NOT NULL,
			status_code INTEGER,
			timestamp TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_errors_run ON run_errors(run_id)`,
		`CREATE TABLE IF NOT EXISTS benchmark_queue (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			provider_key TEXT NOT NULL,
			model_name TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INTEGER NOT NULL DEFAULT 0,
			max_attempts INTEGER NOT NULL DEFAULT 3,
			started_at TEXT,
			completed_at TEXT,
			error_message TEXT,
			created_at TEXT NOT NULL,
			UNIQUE(run_id, provider_key, model_name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_queue_status ON benchmark_queue(status, created_at)`,
	}
	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) fmtNow() string {
	return s.now().UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, v)
	return t
}

func parseTimePtr(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	t := parseTime(v.String)
	return &t
}

// Runs

func (s *SQLiteStore) CreateRun(ctx context.Context, runName, triggeredBy string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, run_name, triggered_by, started_at) VALUES (?, ?, ?, ?)`,
		id, runName, triggeredBy, s.fmtNow())
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ? WHERE id = ? AND finished_at IS NULL`,
		s.fmtNow(), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: run %s not found or already finished", runID)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_name, triggered_by, started_at, finished_at FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var started string
		var finished sql.NullString
		if err := rows.Scan(&r.ID, &r.RunName, &r.TriggeredBy, &started, &finished); err != nil {
			return nil, err
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTimePtr(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Providers and models

func (s *SQLiteStore) GetOrCreateProvider(ctx context.Context, name, baseURL, logoURL string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM providers WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}
	id = uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO providers (id, name, base_url, logo_url) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		id, name, baseURL, logoURL)
	if err != nil {
		return "", fmt.Errorf("create provider: %w", err)
	}
	// Re-read: a concurrent insert may have won the conflict.
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM providers WHERE name = ?`, name).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteStore) GetOrCreateModel(ctx context.Context, rawName, providerID string, contextWindow *int) (string, error) {
	name := modelname.Normalize(rawName)
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM models WHERE provider_id = ? AND name = ?`, providerID, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}
	id = uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO models (id, provider_id, name, context_window, active, last_seen_at)
		 VALUES (?, ?, ?, ?, 0, ?)
		 ON CONFLICT(provider_id, name) DO NOTHING`,
		id, providerID, name, contextWindow, s.fmtNow())
	if err != nil {
		return "", fmt.Errorf("create model: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM models WHERE provider_id = ? AND name = ?`, providerID, name).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteStore) UpsertModelsFromDiscovery(ctx context.Context, providerName string, rawNames []string) error {
	providerID, err := s.GetOrCreateProvider(ctx, providerName, "", "")
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := s.fmtNow()
	for _, raw := range rawNames {
		name := modelname.Normalize(raw)
		res, err := tx.ExecContext(ctx,
			`UPDATE models SET last_seen_at = ? WHERE provider_id = ? AND name = ?`,
			now, providerID, name)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO models (id, provider_id, name, active, last_seen_at) VALUES (?, ?, ?, 0, ?)
				 ON CONFLICT(provider_id, name) DO UPDATE SET last_seen_at = excluded.last_seen_at`,
				uuid.NewString(), providerID, name, now); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// SetModelsActive clears the active flag for every model of the provider,
// then sets it for exactly the given names. The whole flip is one
// transaction so readers never observe a moment with no active models.
func (s *SQLiteStore) SetModelsActive(ctx context.Context, providerName string, names []string) error {
	providerID, err := s.GetOrCreateProvider(ctx, providerName, "", "")
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE models SET active = 0 WHERE provider_id = ?`, providerID); err != nil {
		return err
	}
	for _, raw := range names {
		name := modelname.Normalize(raw)
		res, err := tx.ExecContext(ctx,
			`UPDATE models SET active = 1 WHERE provider_id = ? AND name = ?`, providerID, name)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO models (id, provider_id, name, active, last_seen_at) VALUES (?, ?, ?, 1, ?)`,
				uuid.NewString(), providerID, name, s.fmtNow()); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListActiveModels(ctx context.Context) ([]ModelRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, provider_id, name, context_window, active, last_seen_at
		 FROM models WHERE active = 1 ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var models []ModelRecord
	for rows.Next() {
		var m ModelRecord
		var cw sql.NullInt64
		var activeInt int
		var lastSeen sql.NullString
		if err := rows.Scan(&m.ID, &m.ProviderID, &m.Name, &cw, &activeInt, &lastSeen); err != nil {
			return nil, err
		}
		if cw.Valid {
			v := int(cw.Int64)
			m.ContextWindow = &v
		}
		m.Active = activeInt != 0
		m.LastSeenAt = parseTimePtr(lastSeen)
		models = append(models, m)
	}
	return models, rows.Err()
}

// Pricing

func (s *SQLiteStore) GetModelPricing(ctx context.Context, providerName, modelName string) (*Pricing, error) {
	var p Pricing
	err := s.db.QueryRowContext(ctx,
		`SELECT pr.input_per_m, pr.output_per_m
		 FROM prices pr
		 JOIN providers p ON p.id = pr.provider_id
		 JOIN models m ON m.id = pr.model_id
		 WHERE p.name = ? AND m.name = ?
		 ORDER BY pr.timestamp DESC LIMIT 1`,
		providerName, modelname.Normalize(modelName)).Scan(&p.InputPerM, &p.OutputPerM)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePrice appends a price row unless the latest row for the pair is
// younger than 24 hours, in which case it returns "" with no error.
func (s *SQLiteStore) SavePrice(ctx context.Context, providerID, modelID string, inputPerM, outputPerM float64) (string, error) {
	if inputPerM < 0 || outputPerM < 0 {
		return "", fmt.Errorf("save price: negative rate")
	}
	var last sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(timestamp) FROM prices WHERE provider_id = ? AND model_id = ?`,
		providerID, modelID).Scan(&last)
	if err != nil && err != sql.ErrNoRows {
		return "", err
	}
	if last.Valid {
		if s.now().UTC().Sub(parseTime(last.String)) < priceSuppressionWindow {
			return "", nil
		}
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO prices (id, provider_id, model_id, input_per_m, output_per_m, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, providerID, modelID, inputPerM, outputPerM, s.fmtNow())
	if err != nil {
		return "", fmt.Errorf("save price: %w", err)
	}
	return id, nil
}

// Results

// SaveBenchmark persists one benchmark outcome. Token counts are validated
// (and estimated where the provider misreported them) before the insert;
// a validation failure rewrites the row to success=false. Successful
// response text is truncated to a preview, failed responses kept in full.
func (s *SQLiteStore) SaveBenchmark(ctx context.Context, rec ResultRecord) (string, error) {
	validation := tokencheck.Validate(&rec.InputTokens, &rec.OutputTokens, rec.Prompt, deref(rec.ResponseText))
	rec.InputTokens = validation.InputTokens
	rec.OutputTokens = validation.OutputTokens

	if tokencheck.ShouldFail(validation) {
		rec.Success = false
		msg := "Token validation failed: " + tokencheck.Summary(validation)
		rec.ErrorMessage = &msg
	}

	if rec.ResponseText != nil && rec.Success {
		t := truncateResponse(*rec.ResponseText)
		rec.ResponseText = &t
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO benchmark_results
		 (id, run_id, provider_id, model_id, provider, model,
		  input_tokens, output_tokens, reasoning_tokens,
		  total_latency_ms, ttft_ms, tps, cost_usd, status_code,
		  success, error_message, response_text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.RunID, rec.ProviderID, rec.ModelID, rec.Provider, modelname.Normalize(rec.Model),
		rec.InputTokens, rec.OutputTokens, rec.ReasoningTokens,
		rec.TotalLatencyMs, rec.TTFTMs, rec.TPS, rec.CostUSD, rec.StatusCode,
		boolInt(rec.Success), rec.ErrorMessage, rec.ResponseText, s.fmtNow())
	if err != nil {
		return "", fmt.Errorf("save benchmark: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) ResultsByRun(ctx context.Context, runID string) ([]ResultRecord, error) {
	return s.queryResults(ctx,
		`SELECT `+resultColumns+` FROM benchmark_results WHERE run_id = ? ORDER BY created_at`, runID)
}

func (s *SQLiteStore) RecentResults(ctx context.Context, hours int) ([]ResultRecord, error) {
	cutoff := s.now().UTC().Add(-time.Duration(hours) * time.Hour).Format(timeLayout)
	return s.queryResults(ctx,
		`SELECT `+resultColumns+` FROM benchmark_results WHERE created_at >= ? ORDER BY created_at`, cutoff)
}

const resultColumns = `id, run_id, provider_id, model_id, provider, model,
	input_tokens, output_tokens, reasoning_tokens, total_latency_ms, ttft_ms, tps,
	cost_usd, status_code, success, error_message, response_text, created_at`

func (s *SQLiteStore) queryResults(ctx context.Context, query string, args ...any) ([]ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []ResultRecord
	for rows.Next() {
		var r ResultRecord
		var providerID, modelID, errMsg, respText sql.NullString
		var reasoning, statusCode sql.NullInt64
		var ttft, tps sql.NullFloat64
		var successInt int
		var created string
		if err := rows.Scan(&r.ID, &r.RunID, &providerID, &modelID, &r.Provider, &r.Model,
			&r.InputTokens, &r.OutputTokens, &reasoning, &r.TotalLatencyMs, &ttft, &tps,
			&r.CostUSD, &statusCode, &successInt, &errMsg, &respText, &created); err != nil {
			return nil, err
		}
		r.ProviderID = strPtr(providerID)
		r.ModelID = strPtr(modelID)
		if reasoning.Valid {
			v := int(reasoning.Int64)
			r.ReasoningTokens = &v
		}
		if ttft.Valid {
			r.TTFTMs = &ttft.Float64
		}
		if tps.Valid {
			r.TPS = &tps.Float64
		}
		if statusCode.Valid {
			v := int(statusCode.Int64)
			r.StatusCode = &v
		}
		r.Success = successInt != 0
		r.ErrorMessage = strPtr(errMsg)
		r.ResponseText = strPtr(respText)
		r.CreatedAt = parseTime(created)
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) SaveRunError(ctx context.Context, rec ErrorRecord) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_errors
		 (id, run_id, provider_id, model_id, provider, model, error_type, error_message, status_code, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.RunID, rec.ProviderID, rec.ModelID, rec.Provider, rec.Model,
		rec.ErrorType, rec.ErrorMessage, rec.StatusCode, s.fmtNow())
	if err != nil {
		return "", fmt.Errorf("save run error: %w", err)
	}
	return id, nil
}

// Queue

// EnqueueBenchmarks inserts one pending item per (provider_key, model_name)
// pair. The unique constraint makes re-enqueue within a run a no-op.
func (s *SQLiteStore) EnqueueBenchmarks(ctx context.Context, runID string, pairs [][2]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, pair := range pairs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO benchmark_queue (id, run_id, provider_key, model_name, status, attempts, max_attempts, created_at)
			 VALUES (?, ?, ?, ?, 'pending', 0, ?, ?)
			 ON CONFLICT(run_id, provider_key, model_name) DO NOTHING`,
			uuid.NewString(), runID, pair[0], pair[1], DefaultMaxAttempts, s.fmtNow()); err != nil {
			return fmt.Errorf("enqueue: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetPendingQueueItems(ctx context.Context, limit int) ([]QueueItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+queueColumns+` FROM benchmark_queue
		 WHERE status = 'pending' ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanQueueItems(rows)
}

// MarkQueueItemProcessing claims a pending item. The conditional update is
// the serialization point between concurrent batch workers: exactly one
// caller observes RowsAffected == 1. The attempts counter is incremented
// here and nowhere else.
func (s *SQLiteStore) MarkQueueItemProcessing(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE benchmark_queue
		 SET status = 'processing', started_at = ?, attempts = attempts + 1
		 WHERE id = ? AND status = 'pending'`,
		s.fmtNow(), id)
	if err != nil {
		return false, fmt.Errorf("claim queue item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLiteStore) MarkQueueItemCompleted(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE benchmark_queue SET status = 'completed', completed_at = ? WHERE id = ?`,
		s.fmtNow(), id)
	if err != nil {
		return fmt.Errorf("complete queue item: %w", err)
	}
	return nil
}

// MarkQueueItemFailed records the error and either returns the item to the
// pending pool (attempts remain) or moves it to terminal failed. It never
// touches the attempts counter; that belongs to the claim.
func (s *SQLiteStore) MarkQueueItemFailed(ctx context.Context, id, errorMessage string) error {
	var attempts, maxAttempts int
	err := s.db.QueryRowContext(ctx,
		`SELECT attempts, max_attempts FROM benchmark_queue WHERE id = ?`, id).
		Scan(&attempts, &maxAttempts)
	if err != nil {
		return fmt.Errorf("fail queue item: %w", err)
	}
	if attempts < maxAttempts {
		_, err = s.db.ExecContext(ctx,
			`UPDATE benchmark_queue SET status = 'pending', error_message = ? WHERE id = ?`,
			errorMessage, id)
	} else {
		_, err = s.db.ExecContext(ctx,
			`UPDATE benchmark_queue SET status = 'failed', error_message = ?, completed_at = ? WHERE id = ?`,
			errorMessage, s.fmtNow(), id)
	}
	if err != nil {
		return fmt.Errorf("fail queue item: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetQueueItem(ctx context.Context, id string) (*QueueItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+queueColumns+` FROM benchmark_queue WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items, err := scanQueueItems(rows)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (s *SQLiteStore) GetQueueStats(ctx context.Context, runID string) (QueueStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM benchmark_queue WHERE run_id = ? GROUP BY status`, runID)
	if err != nil {
		return QueueStats{}, err
	}
	defer func() { _ = rows.Close() }()

	var stats QueueStats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return QueueStats{}, err
		}
		switch status {
		case StatusPending:
			stats.Pending = count
		case StatusProcessing:
			stats.Processing = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

const queueColumns = `id, run_id, provider_key, model_name, status, attempts, max_attempts,
	started_at, completed_at, error_message, created_at`

func scanQueueItems(rows *sql.Rows) ([]QueueItem, error) {
	var items []QueueItem
	for rows.Next() {
		var q QueueItem
		var started, completed, errMsg sql.NullString
		var created string
		if err := rows.Scan(&q.ID, &q.RunID, &q.ProviderKey, &q.ModelName, &q.Status,
			&q.Attempts, &q.MaxAttempts, &started, &completed, &errMsg, &created); err != nil {
			return nil, err
		}
		q.StartedAt = parseTimePtr(started)
		q.CompletedAt = parseTimePtr(completed)
		q.ErrorMessage = strPtr(errMsg)
		q.CreatedAt = parseTime(created)
		items = append(items, q)
	}
	return items, rows.Err()
}

// Spend

func (s *SQLiteStore) GetRecentSpending(ctx context.Context, hours int) (float64, error) {
	cutoff := s.now().UTC().Add(-time.Duration(hours) * time.Hour).Format(timeLayout)
	var total sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(cost_usd) FROM benchmark_results WHERE created_at >= ?`, cutoff).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("recent spending: %w", err)
	}
	return total.Float64, nil
}

// helpers

func truncateResponse(text string) string {
	runes := []rune(text)
	if len(runes) <= responsePreviewLen {
		return text
	}
	return string(runes[:responsePreviewLen]) + "..."
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
