package clientstore

import (
	"context"
	"sync"

	"cmsportal/pkg/platform/sentinel"
)

// InMemoryStore keeps values in process memory. Values survive for the life
// of the process, which is enough for single-instance and test deployments.
type InMemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{values: make(map[string]map[string]string)}
}

// Get returns sentinel.ErrNotFound when nothing is stored under key.
func (s *InMemoryStore) Get(_ context.Context, scope, key string) (string, error) {
	if err := validate(scope, key); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[scope][key]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return v, nil
}

// SetIfAbsent stores value unless key already holds one, and returns whatever
// is stored afterwards along with whether this call created it.
func (s *InMemoryStore) SetIfAbsent(_ context.Context, scope, key, value string) (string, bool, error) {
	if err := validate(scope, key); err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.bucket(scope)
	if existing, ok := bucket[key]; ok {
		return existing, false, nil
	}
	bucket[key] = value
	return value, true, nil
}

func (s *InMemoryStore) Set(_ context.Context, scope, key, value string) error {
	if err := validate(scope, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bucket(scope)[key] = value
	return nil
}

func (s *InMemoryStore) Clear(_ context.Context, scope, key string) error {
	if err := validate(scope, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values[scope], key)
	return nil
}

func (s *InMemoryStore) bucket(scope string) map[string]string {
	b, ok := s.values[scope]
	if !ok {
		b = make(map[string]string)
		s.values[scope] = b
	}
	return b
}
