package docstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Compile-time assertion that the memory store satisfies the Store contract.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory Store implementation used for tests and
// ephemeral environments. All state lives behind one RWMutex; batches are
// validated up front and applied under a single write lock, which makes them
// all-or-nothing by construction.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Fields
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]Fields)}
}

func (s *MemoryStore) Put(ctx context.Context, collection, id string, fields Fields) (string, error) {
	normalized, err := normalizeFields(fields)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]Fields)
		s.collections[collection] = docs
	}
	docs[id] = normalized
	return id, nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields, ok := s.collections[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	clone, err := normalizeFields(fields)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Fields: clone}, nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.collections[collection]
	if !ok {
		return ErrNotFound
	}
	if _, ok := docs[id]; !ok {
		return ErrNotFound
	}
	delete(docs, id)
	if len(docs) == 0 {
		delete(s.collections, collection)
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	filters := make([]Filter, len(q.Filters))
	for i, f := range q.Filters {
		value, err := normalizeValue(f.Value)
		if err != nil {
			return nil, err
		}
		filters[i] = Filter{Field: f.Field, Value: value}
	}

	docs, err := s.snapshotCollection(collection)
	if err != nil {
		return nil, err
	}

	out := docs[:0]
	for _, doc := range docs {
		if matches(doc, filters) {
			out = append(out, doc)
		}
	}
	sortDocuments(out, q.OrderBy, q.Ascending)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) List(ctx context.Context, collection string) ([]Document, error) {
	docs, err := s.snapshotCollection(collection)
	if err != nil {
		return nil, err
	}
	sortDocuments(docs, "", true)
	return docs, nil
}

func (s *MemoryStore) ListCollections(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for name := range s.collections {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) Count(ctx context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection]), nil
}

func (s *MemoryStore) ApplyBatch(ctx context.Context, writes []Write) error {
	if len(writes) > MaxBatchOps {
		return ErrBatchTooLarge
	}

	// Normalize and validate everything before touching state so a bad
	// operation cannot leave a partial batch behind.
	normalized := make([]Write, len(writes))
	for i, w := range writes {
		nw := w
		if nw.Kind == WritePut {
			fields, err := normalizeFields(nw.Fields)
			if err != nil {
				return err
			}
			if nw.ID == "" {
				nw.ID = uuid.NewString()
			}
			nw.Fields = fields
		}
		normalized[i] = nw
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range normalized {
		if w.Kind == WriteDelete {
			if _, ok := s.collections[w.Collection][w.ID]; !ok {
				return ErrNotFound
			}
		}
	}
	for _, w := range normalized {
		switch w.Kind {
		case WritePut:
			docs, ok := s.collections[w.Collection]
			if !ok {
				docs = make(map[string]Fields)
				s.collections[w.Collection] = docs
			}
			docs[w.ID] = w.Fields
		case WriteDelete:
			delete(s.collections[w.Collection], w.ID)
			if len(s.collections[w.Collection]) == 0 {
				delete(s.collections, w.Collection)
			}
		}
	}
	return nil
}

func (s *MemoryStore) snapshotCollection(collection string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]Document, 0, len(s.collections[collection]))
	for id, fields := range s.collections[collection] {
		clone, err := normalizeFields(fields)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{ID: id, Fields: clone})
	}
	return docs, nil
}
