// Package memory provides the organization-scoped key/value memory store
// consulted by the rem.* commands.
//
// Information Hiding:
// - Backend index and query strategy hidden behind Store
// - Match semantics for Search (case-insensitive substring on name or content)
// - Content hashing used to skip no-op writes
package memory

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no entry exists for a key.
var ErrNotFound = errors.New("memory not found")

// Entry is one remembered fact.
type Entry struct {
	ID           string    `json:"id"`
	Organization string    `json:"organization"`
	Name         string    `json:"name"`
	Content      string    `json:"content"`
	ContentHash  string    `json:"content_hash"`
	CreatedBy    string    `json:"created_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store is a memory store scoped by organization.
type Store interface {
	// Get returns the entry stored under the exact key, or ErrNotFound.
	Get(ctx context.Context, key, organization string) (*Entry, error)

	// Search returns entries matching any of the terms, ordered by name.
	Search(ctx context.Context, terms []string, organization string) ([]Entry, error)

	// Set creates or replaces the entry under key.
	Set(ctx context.Context, key, content, organization, createdBy string) (*Entry, error)

	// Delete removes the entry under key, or returns ErrNotFound.
	Delete(ctx context.Context, key, organization string) error
}

// newEntry builds a fresh entry stamped with now.
func newEntry(key, content, organization, createdBy string, now time.Time) Entry {
	return Entry{
		ID:           uuid.New().String(),
		Organization: organization,
		Name:         key,
		Content:      content,
		ContentHash:  contentHash(content),
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// contentHash computes a fast non-cryptographic hash for change detection.
// See: https://github.com/cespare/xxhash
func contentHash(content string) string {
	h := xxhash.Sum64String(content)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], h)
	return hex.EncodeToString(buf[:])
}

// searchTerms lowercases terms and drops blanks.
func searchTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			out = append(out, term)
		}
	}
	return out
}

// matchesAny reports whether any term is a substring of the entry's name or content.
func matchesAny(e Entry, terms []string) bool {
	name := strings.ToLower(e.Name)
	content := strings.ToLower(e.Content)
	for _, term := range terms {
		if strings.Contains(name, term) || strings.Contains(content, term) {
			return true
		}
	}
	return false
}
