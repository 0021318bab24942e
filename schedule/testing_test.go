package schedule

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quotron/quotron/errors"
	"github.com/quotron/quotron/kv"
	"github.com/quotron/quotron/marketdata"
)

// stubFetcher fails the items listed in fail (itemID -> error message)
// and returns one synthetic row for everything else.
type stubFetcher struct {
	mu    sync.Mutex
	fail  map[string]string
	calls []string
}

func (f *stubFetcher) Fetch(ctx context.Context, itemID, startDate, endDate string) ([]marketdata.Row, error) {
	f.mu.Lock()
	f.calls = append(f.calls, itemID)
	f.mu.Unlock()

	if msg, ok := f.fail[itemID]; ok {
		return nil, errors.New(msg)
	}
	return []marketdata.Row{
		{Date: endDate, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 1000},
	}, nil
}

// stubResultStore records stores and fails the items listed in fail.
type stubResultStore struct {
	mu     sync.Mutex
	fail   map[string]string
	stored []string
}

func (s *stubResultStore) Store(ctx context.Context, rows []marketdata.Row, namespace, itemID, startDate, endDate string) error {
	if msg, ok := s.fail[itemID]; ok {
		return errors.New(msg)
	}
	s.mu.Lock()
	s.stored = append(s.stored, itemID)
	s.mu.Unlock()
	return nil
}

// failingAdapter wraps a kv.Adapter and fails SaveWithTTL, to exercise
// history persistence failure paths.
type failingAdapter struct {
	kv.Adapter
}

func (f *failingAdapter) SaveWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("backend unavailable")
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func testJob(name string, items ...string) *Job {
	return NewJob(name, items)
}

// newTestExecutor builds an executor over stubs and a fresh in-memory
// history registry.
func newTestExecutor(fetcher *stubFetcher, store *stubResultStore) (*Executor, *HistoryRegistry) {
	history := NewHistoryRegistry(kv.NewMemory(), time.Hour, 10, testLogger())
	executor := NewExecutor(fetcher, store, history, DefaultLookbackDays, testLogger())
	return executor, history
}
