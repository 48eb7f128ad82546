package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/homework-assistant/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool. maxConns 0 uses
// the default of 5.
func NewPostgres(ctx context.Context, connString string, maxConns int32) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	if maxConns <= 0 {
		maxConns = 5
	}
	pgxCfg.MaxConns = maxConns
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
CREATE TABLE IF NOT EXISTS chat_history (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source            TEXT NOT NULL,
	seq               INTEGER NOT NULL,
	user_message      TEXT NOT NULL,
	assistant_message TEXT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_chat_history_source_seq ON chat_history(source, seq);
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

func (s *PostgresStore) Append(ctx context.Context, key string, ex model.Exchange) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_history (id, source, seq, user_message, assistant_message, created_at)
		 SELECT $1, $2, COALESCE(MAX(seq), 0) + 1, $3, $4, $5 FROM chat_history WHERE source = $2`,
		uuid.New().String(), key, ex.User, ex.Assistant, ex.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: insert exchange")
}

func (s *PostgresStore) List(ctx context.Context, key string) ([]model.Exchange, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_message, assistant_message, created_at FROM chat_history WHERE source = $1 ORDER BY seq`,
		key,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list exchanges")
	}
	defer rows.Close()

	var out []model.Exchange
	for rows.Next() {
		var ex model.Exchange
		if err := rows.Scan(&ex.User, &ex.Assistant, &ex.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan exchange")
		}
		out = append(out, ex)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate exchanges")
}

func (s *PostgresStore) Count(ctx context.Context, key string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chat_history WHERE source = $1`, key).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count exchanges")
	}
	return n, nil
}

func (s *PostgresStore) Clear(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM chat_history WHERE source = $1`, key)
	return eris.Wrap(err, "postgres: clear exchanges")
}
