package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/richinex/abbot/internal/dsa"
)

// InMemoryStore implements Store on a radix tree keyed by organization and name.
// Data is lost when process terminates.
type InMemoryStore struct {
	mu    sync.RWMutex
	index *dsa.Trie[Entry]
	now   func() time.Time
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		index: dsa.NewTrie[Entry](),
		now:   time.Now,
	}
}

// indexKey scopes a name to its organization. The NUL separator keeps one
// organization's prefix from matching another's.
func indexKey(organization, name string) string {
	return organization + "\x00" + name
}

// Get returns the entry stored under key.
func (s *InMemoryStore) Get(ctx context.Context, key, organization string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.index.Get(indexKey(organization, key))
	if !ok {
		return nil, fmt.Errorf("%q: %w", key, ErrNotFound)
	}
	return &entry, nil
}

// Search returns entries matching any term in name order.
func (s *InMemoryStore) Search(ctx context.Context, terms []string, organization string) ([]Entry, error) {
	normalized := searchTerms(terms)
	if len(normalized) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []Entry
	s.index.WalkPrefix(indexKey(organization, ""), func(_ string, e Entry) bool {
		if matchesAny(e, normalized) {
			matches = append(matches, e)
		}
		return ctx.Err() == nil
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

// Set creates or replaces the entry under key. Rewriting identical content
// leaves the entry untouched.
func (s *InMemoryStore) Set(ctx context.Context, key, content, organization, createdBy string) (*Entry, error) {
	if key == "" {
		return nil, fmt.Errorf("memory key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := indexKey(organization, key)
	entry, ok := s.index.Get(k)
	switch {
	case !ok:
		entry = newEntry(key, content, organization, createdBy, s.now())
	case entry.ContentHash == contentHash(content):
		return &entry, nil
	default:
		entry.Content = content
		entry.ContentHash = contentHash(content)
		entry.UpdatedAt = s.now()
	}
	s.index.Put(k, entry)
	return &entry, nil
}

// Delete removes the entry under key.
func (s *InMemoryStore) Delete(ctx context.Context, key, organization string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.index.Delete(indexKey(organization, key)) {
		return fmt.Errorf("%q: %w", key, ErrNotFound)
	}
	return nil
}

// Verify InMemoryStore implements Store
var _ Store = (*InMemoryStore)(nil)
