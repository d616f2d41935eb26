package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	values    map[string]string
	expiresAt time.Time
}

// MemoryStore 单实例部署与测试使用
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*memoryEntry
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]*memoryEntry),
		now:      time.Now,
	}
}

// lookup 调用方需持有锁
func (s *MemoryStore) lookup(token string) *memoryEntry {
	e, ok := s.sessions[token]
	if !ok {
		return nil
	}
	if s.ttl > 0 && s.now().After(e.expiresAt) {
		delete(s.sessions, token)
		return nil
	}
	return e
}

func (s *MemoryStore) Get(_ context.Context, token, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(token)
	if e == nil {
		return "", false, nil
	}
	v, ok := e.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, token, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(token)
	if e == nil {
		e = &memoryEntry{values: make(map[string]string)}
		s.sessions[token] = e
	}
	e.values[key] = value
	e.expiresAt = s.now().Add(s.ttl)
	return nil
}

func (s *MemoryStore) Pop(_ context.Context, token, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(token)
	if e == nil {
		return "", false, nil
	}
	v, ok := e.values[key]
	delete(e.values, key)
	return v, ok, nil
}

func (s *MemoryStore) Delete(_ context.Context, token, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.lookup(token); e != nil {
		delete(e.values, key)
	}
	return nil
}
