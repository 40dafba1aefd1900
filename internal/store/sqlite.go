package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/market-insights/internal/model"
)

// SQLiteStore keeps runs in a local SQLite file. It is the default for the
// CLI and for single-node servers.
type SQLiteStore struct {
	db *sql.DB
}

var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
}

// NewSQLite opens the database at dsn in WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, p := range sqlitePragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: %s", p)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	request    TEXT NOT NULL,
	domain     TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'queued',
	error      TEXT,
	insights   TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_domain ON runs(domain);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Migrate creates the runs table if needed.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteSchema)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, req model.RunRequest) (*model.Run, error) {
	run, reqJSON, err := newRun(req)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create run")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, request, domain, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, string(reqJSON), req.Domain, string(run.Status), run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	return s.update(ctx, runID, `SET status = ?, updated_at = ?`, string(status), time.Now().UTC())
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, insights *model.TopicInsights) error {
	data, err := json.Marshal(insights)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal insights")
	}
	return s.update(ctx, runID, `SET insights = ?, status = ?, error = NULL, updated_at = ?`,
		string(data), string(model.RunStatusComplete), time.Now().UTC())
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, reason string) error {
	return s.update(ctx, runID, `SET error = ?, status = ?, updated_at = ?`,
		reason, string(model.RunStatusFailed), time.Now().UTC())
}

// update applies set to one run; args bind the set clause's placeholders.
func (s *SQLiteStore) update(ctx context.Context, runID, set string, args ...any) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs `+set+` WHERE id = ?`, append(args, runID)...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return notFound(runID)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanSQLiteRun(s.db.QueryRowContext(ctx, selectRun+` WHERE id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query, args := listQuery(filter, func(int) string { return "?" })
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func scanSQLiteRun(row interface{ Scan(...any) error }) (*model.Run, error) {
	var (
		r                    model.Run
		reqJSON              string
		errMsg, insightsJSON sql.NullString
	)
	if err := row.Scan(&r.ID, &reqJSON, &r.Status, &errMsg, &insightsJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	var insights []byte
	if insightsJSON.Valid {
		insights = []byte(insightsJSON.String)
	}
	if err := decodeRun(&r, []byte(reqJSON), errMsg.String, insights); err != nil {
		return nil, err
	}
	return &r, nil
}
