package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/market-insights/internal/model"
)

// Pool is the part of *pgxpool.Pool the store needs.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps runs in Postgres, for servers sharing one database.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig tunes the connection pool. Zero fields keep the defaults of
// 10 max and 2 min connections.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres connects to connString and pings the server.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns, pgxCfg.MinConns = 10, 2
	if poolCfg != nil && poolCfg.MaxConns > 0 {
		pgxCfg.MaxConns = poolCfg.MaxConns
	}
	if poolCfg != nil && poolCfg.MinConns > 0 {
		pgxCfg.MinConns = poolCfg.MinConns
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

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
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	request    JSONB NOT NULL,
	domain     TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'queued',
	error      TEXT,
	insights   JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_domain ON runs(domain);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, req model.RunRequest) (*model.Run, error) {
	run, reqJSON, err := newRun(req)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create run")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, request, domain, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, reqJSON, req.Domain, string(run.Status), run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	return s.update(ctx, runID, `SET status = $1, updated_at = $2`, string(status), time.Now().UTC())
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, insights *model.TopicInsights) error {
	data, err := json.Marshal(insights)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal insights")
	}
	return s.update(ctx, runID, `SET insights = $1, status = $2, error = NULL, updated_at = $3`,
		data, string(model.RunStatusComplete), time.Now().UTC())
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, reason string) error {
	return s.update(ctx, runID, `SET error = $1, status = $2, updated_at = $3`,
		reason, string(model.RunStatusFailed), time.Now().UTC())
}

// update applies set to one run. The run ID binds the placeholder after
// the set clause's args.
func (s *PostgresStore) update(ctx context.Context, runID, set string, args ...any) error {
	query := fmt.Sprintf(`UPDATE runs %s WHERE id = $%d`, set, len(args)+1)
	tag, err := s.pool.Exec(ctx, query, append(args, runID)...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return notFound(runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanPgRun(s.pool.QueryRow(ctx, selectRun+` WHERE id = $1`, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query, args := listQuery(filter, func(n int) string { return "$" + strconv.Itoa(n) })
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var (
		r                     model.Run
		reqJSON, insightsJSON []byte
		errMsg                *string
	)
	if err := row.Scan(&r.ID, &reqJSON, &r.Status, &errMsg, &insightsJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	var msg string
	if errMsg != nil {
		msg = *errMsg
	}
	if err := decodeRun(&r, reqJSON, msg, insightsJSON); err != nil {
		return nil, err
	}
	return &r, nil
}
