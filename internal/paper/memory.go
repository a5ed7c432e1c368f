package paper

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when a document id is unknown.
var ErrNotFound = eris.New("paper: document not found")

// MemoryStore is an in-process Store used by the run command and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]*Document
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[uuid.UUID]*Document)}
}

// Put inserts or replaces a document.
func (s *MemoryStore) Put(doc *Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	s.docs[doc.ID] = &cp
}

func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (s *MemoryStore) UpdateTextContent(_ context.Context, id uuid.UUID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return ErrNotFound
	}
	doc.TextContent = text
	return nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return ErrNotFound
	}
	if doc.Status != from {
		return eris.Errorf("paper: status is %s, expected %s", doc.Status, from)
	}
	doc.Status = to
	return nil
}

// FixedCredits grants or denies all credit checks; used by the run command
// and tests when no billing service is attached.
type FixedCredits struct {
	Balance int
}

func (f FixedCredits) HasEnoughCredits(_ context.Context, _ uuid.UUID, amount int) (bool, error) {
	return f.Balance >= amount, nil
}
