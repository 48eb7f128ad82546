package history

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/homework-assistant/internal/config"
)

func TestService_AppendGetClear(t *testing.T) {
	ctx := context.Background()
	svc, err := New(ctx, config.HistoryConfig{Driver: "memory"})
	require.NoError(t, err)
	defer svc.Close() //nolint:errcheck

	got, err := svc.Get(ctx, "bio")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	n, err := svc.Append(ctx, "bio", "q1", "a1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = svc.Append(ctx, "bio", "q2", "a2")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = svc.Append(ctx, "chem", "q", "a")
	require.NoError(t, err)

	got, err = svc.Get(ctx, "bio")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "q1", got[0].User)
	assert.Equal(t, "a2", got[1].Assistant)
	assert.False(t, got[0].CreatedAt.IsZero())

	require.NoError(t, svc.Clear(ctx, "bio"))
	got, err = svc.Get(ctx, "bio")
	require.NoError(t, err)
	assert.Empty(t, got)

	other, err := svc.Get(ctx, "chem")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestService_ConcurrentAppendsSameKey(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemory())
	require.NoError(t, svc.Open(ctx))

	const writers = 50
	lengths := make([]int, writers)
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := svc.Append(ctx, "bio", fmt.Sprintf("q%d", i), "a")
			assert.NoError(t, err)
			lengths[i] = n
		}()
	}
	wg.Wait()

	got, err := svc.Get(ctx, "bio")
	require.NoError(t, err)
	assert.Len(t, got, writers)

	seen := make(map[int]bool)
	for _, n := range lengths {
		assert.False(t, seen[n], "length %d reported twice", n)
		seen[n] = true
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.HistoryConfig{Driver: "redis"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown driver "redis"`)

	_, err = New(context.Background(), config.HistoryConfig{Driver: "sqlite"})
	require.Error(t, err)
	_, err = New(context.Background(), config.HistoryConfig{Driver: "postgres"})
	require.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "history.db")
	svc, err := New(ctx, config.HistoryConfig{Driver: "sqlite", DatabaseURL: dsn})
	require.NoError(t, err)
	defer svc.Close() //nolint:errcheck

	for i := 1; i <= 3; i++ {
		n, err := svc.Append(ctx, "bio", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
	_, err = svc.Append(ctx, "chem", "x", "y")
	require.NoError(t, err)

	got, err := svc.Get(ctx, "bio")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "q1", got[0].User)
	assert.Equal(t, "q3", got[2].User)
	assert.WithinDuration(t, time.Now(), got[0].CreatedAt, time.Minute)

	require.NoError(t, svc.Clear(ctx, "bio"))
	got, err = svc.Get(ctx, "bio")
	require.NoError(t, err)
	assert.Empty(t, got)

	n, err := svc.Append(ctx, "bio", "again", "a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	chem, err := svc.Get(ctx, "chem")
	require.NoError(t, err)
	assert.Len(t, chem, 1)
}

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS chat_history`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendAndCount(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	svc := NewService(s)

	mock.ExpectExec(`INSERT INTO chat_history`).
		WithArgs(pgxmock.AnyArg(), "bio", "question", "answer", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM chat_history WHERE source = \$1`).
		WithArgs("bio").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(4))

	n, err := svc.Append(context.Background(), "bio", "question", "answer")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT user_message, assistant_message, created_at FROM chat_history`).
		WithArgs("bio").
		WillReturnRows(mock.NewRows([]string{"user_message", "assistant_message", "created_at"}).
			AddRow("q1", "a1", created).
			AddRow("q2", "a2", created.Add(time.Minute)))

	got, err := s.List(context.Background(), "bio")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "q2", got[1].User)
	assert.Equal(t, created, got[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ClearError(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`DELETE FROM chat_history WHERE source = \$1`).
		WithArgs("bio").
		WillReturnError(fmt.Errorf("connection refused"))

	err := NewService(s).Clear(context.Background(), "bio")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear exchanges")
	assert.NoError(t, mock.ExpectationsWereMet())
}
