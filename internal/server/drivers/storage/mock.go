package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MockStorage keeps objects in memory.
type MockStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMockStorage() *MockStorage {
	return &MockStorage{objects: map[string][]byte{}}
}

func (s *MockStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("storage: object %q not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MockStorage) Put(ctx context.Context, key, contentType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *MockStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *MockStorage) SignedUploadURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://storage.invalid/upload/" + key, nil
}
