// Package history records the user/assistant exchanges of each source.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/homework-assistant/internal/config"
	"github.com/sells-group/homework-assistant/internal/model"
)

// Store persists exchanges keyed by source name, in append order.
type Store interface {
	Append(ctx context.Context, key string, ex model.Exchange) error
	List(ctx context.Context, key string) ([]model.Exchange, error)
	Count(ctx context.Context, key string) (int, error)
	Clear(ctx context.Context, key string) error

	Migrate(ctx context.Context) error
	Close() error
}

// Service serializes appends per key over a Store. Different keys never
// block each other.
type Service struct {
	store Store
	now   func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService wraps store.
func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
}

// New opens the store selected by cfg.Driver ("memory", "sqlite" or
// "postgres") and prepares it for use.
func New(ctx context.Context, cfg config.HistoryConfig) (*Service, error) {
	var store Store
	switch cfg.Driver {
	case "memory", "":
		store = NewMemory()
	case "sqlite":
		if cfg.DatabaseURL == "" {
			return nil, eris.New("history: sqlite driver requires history.database_url")
		}
		s, err := NewSQLite(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store = s
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, eris.New("history: postgres driver requires history.database_url")
		}
		s, err := NewPostgres(ctx, cfg.DatabaseURL, cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, eris.Errorf("history: unknown driver %q", cfg.Driver)
	}

	svc := NewService(store)
	if err := svc.Open(ctx); err != nil {
		store.Close() //nolint:errcheck
		return nil, err
	}
	return svc, nil
}

// Open prepares the backing store (creating tables where needed).
func (s *Service) Open(ctx context.Context) error {
	return eris.Wrap(s.store.Migrate(ctx), "history: open")
}

// Close releases the backing store.
func (s *Service) Close() error {
	return s.store.Close()
}

func (s *Service) lock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Append records one exchange and returns the history length after it.
func (s *Service) Append(ctx context.Context, key, user, assistant string) (int, error) {
	l := s.lock(key)
	l.Lock()
	defer l.Unlock()

	ex := model.Exchange{User: user, Assistant: assistant, CreatedAt: s.now().UTC()}
	if err := s.store.Append(ctx, key, ex); err != nil {
		return 0, eris.Wrapf(err, "history: append %s", key)
	}
	n, err := s.store.Count(ctx, key)
	if err != nil {
		return 0, eris.Wrapf(err, "history: count %s", key)
	}
	return n, nil
}

// Get returns the exchanges for key, oldest first. Unknown keys have an
// empty history.
func (s *Service) Get(ctx context.Context, key string) ([]model.Exchange, error) {
	out, err := s.store.List(ctx, key)
	if err != nil {
		return nil, eris.Wrapf(err, "history: get %s", key)
	}
	if out == nil {
		out = []model.Exchange{}
	}
	return out, nil
}

// Clear drops every exchange for key.
func (s *Service) Clear(ctx context.Context, key string) error {
	l := s.lock(key)
	l.Lock()
	defer l.Unlock()
	return eris.Wrapf(s.store.Clear(ctx, key), "history: clear %s", key)
}
