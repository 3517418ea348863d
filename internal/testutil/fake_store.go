package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kjannette/hype-stats-backend/internal/db"
	"github.com/kjannette/hype-stats-backend/internal/models"
)

// FakeStore is an in-memory db.Dialer that applies the same filter and
// ordering as the real backends and counts connection lifecycle events.
type FakeStore struct {
	mu      sync.Mutex
	records []models.StatsRecord

	DialErr  error
	QueryErr error
	PingErr  error

	dials  int
	closes int
}

func NewFakeStore(records ...models.StatsRecord) *FakeStore {
	return &FakeStore{records: records}
}

func (s *FakeStore) Dial(ctx context.Context) (db.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DialErr != nil {
		return nil, s.DialErr
	}
	s.dials++
	return &fakeConn{store: s}, nil
}

// Open reports connections dialed but not yet closed.
func (s *FakeStore) Open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials - s.closes
}

func (s *FakeStore) Dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

type fakeConn struct {
	store  *FakeStore
	closed bool
}

func (c *fakeConn) FindSince(ctx context.Context, since time.Time) ([]models.StatsRecord, error) {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.QueryErr != nil {
		return nil, s.QueryErr
	}

	out := []models.StatsRecord{}
	for _, r := range s.records {
		ts, ok := r.Timestamp()
		if ok && !ts.Before(since) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := out[i].Timestamp()
		b, _ := out[j].Timestamp()
		return a.Before(b)
	})
	return out, nil
}

func (c *fakeConn) Ping(ctx context.Context) error {
	return c.store.PingErr
}

func (c *fakeConn) Close(ctx context.Context) error {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if !c.closed {
		c.closed = true
		s.closes++
	}
	return nil
}
