package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/domain/interfaces"
)

// Memory is an in-process BlobStore for development and tests
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ interfaces.BlobStore = &Memory{}

func NewMemory() *Memory {
	return &Memory{
		objects: map[string][]byte{},
	}
}

func (s *Memory) Put(_ context.Context, name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := "mem://" + uuid.New().String() + "/" + name
	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[ref] = stored
	return ref, nil
}

func (s *Memory) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[ref]; !ok {
		return goerr.New("blob not found", goerr.V("ref", ref))
	}
	delete(s.objects, ref)
	return nil
}

// Get reads a stored blob back. Test helper, not part of the BlobStore
// interface.
func (s *Memory) Get(ref string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[ref]
	if !ok {
		return nil, false
	}
	cloned := make([]byte, len(data))
	copy(cloned, data)
	return cloned, true
}

// Len reports the number of stored blobs
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
