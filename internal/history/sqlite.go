package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/homework-assistant/internal/model"
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
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS chat_history (
	id                TEXT PRIMARY KEY,
	source            TEXT NOT NULL,
	seq               INTEGER NOT NULL,
	user_message      TEXT NOT NULL,
	assistant_message TEXT NOT NULL,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_chat_history_source_seq ON chat_history(source, seq);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Append(ctx context.Context, key string, ex model.Exchange) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_history (id, source, seq, user_message, assistant_message, created_at)
		 SELECT ?, ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ? FROM chat_history WHERE source = ?`,
		uuid.New().String(), key, ex.User, ex.Assistant, ex.CreatedAt.UTC(), key,
	)
	return eris.Wrap(err, "sqlite: insert exchange")
}

func (s *SQLiteStore) List(ctx context.Context, key string) ([]model.Exchange, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_message, assistant_message, created_at FROM chat_history WHERE source = ? ORDER BY seq`,
		key,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list exchanges")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Exchange
	for rows.Next() {
		var ex model.Exchange
		var created time.Time
		if err := rows.Scan(&ex.User, &ex.Assistant, &created); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan exchange")
		}
		ex.CreatedAt = created.UTC()
		out = append(out, ex)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate exchanges")
}

func (s *SQLiteStore) Count(ctx context.Context, key string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_history WHERE source = ?`, key).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: count exchanges")
	}
	return n, nil
}

func (s *SQLiteStore) Clear(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chat_history WHERE source = ?`, key)
	return eris.Wrap(err, "sqlite: clear exchanges")
}
