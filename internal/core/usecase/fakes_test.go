package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type storeFake struct {
	mu      sync.Mutex
	data    map[string]string
	getErr  error
	setErr  error
	removed []string
}

func newStoreFake() *storeFake {
	return &storeFake{data: map[string]string{}}
}

func (s *storeFake) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", false, s.getErr
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *storeFake) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	return nil
}

func (s *storeFake) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	s.removed = append(s.removed, key)
	return nil
}

func (s *storeFake) ListKeys(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

var errStoreDown = errors.New("store down")

type clockFake struct {
	now time.Time
}

func (c *clockFake) Now() time.Time { return c.now }

func (c *clockFake) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *clockFake {
	return &clockFake{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}
