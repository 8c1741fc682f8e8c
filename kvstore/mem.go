package kvstore

import (
	"sort"
	"sync"
)

// Mem is a volatile Store. Its contents do not survive the process.
type Mem struct {
	mu     sync.RWMutex
	m      map[string][]byte
	closed bool
}

func NewMem() *Mem {
	return &Mem{m: map[string][]byte{}}
}

func (s *Mem) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	v, ok := s.m[key]
	return clone(v), ok, nil
}

func (s *Mem) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.m[key] = clone(value)
	return nil
}

func (s *Mem) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Mem) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
