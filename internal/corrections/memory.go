package corrections

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is an in-memory Store for tests and single-shot tooling.
// Same semantics as the SQLite store: last-write-wins per fingerprint,
// snapshot-consistent reads.
type InMemoryStore struct {
	mu       sync.RWMutex
	records  map[string]Correction // fingerprint -> correction
	keywords []string
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore(keywords []string) *InMemoryStore {
	return &InMemoryStore{
		records:  make(map[string]Correction),
		keywords: keywords,
	}
}

// Put stores a correction, replacing any prior record with the same
// fingerprint.
func (s *InMemoryStore) Put(ctx context.Context, rawTextSnippet string, correctJSON json.RawMessage, fullTextContext string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fp := Fingerprint(rawTextSnippet)
	s.records[fp] = Correction{
		ID:              uuid.NewString(),
		Fingerprint:     fp,
		RawTextSnippet:  strings.TrimSpace(rawTextSnippet),
		CorrectJSON:     append(json.RawMessage(nil), correctJSON...),
		FullTextContext: fullTextContext,
		Keywords:        KeywordPrints(fullTextContext, s.keywords),
		CreatedAt:       time.Now().UTC(),
	}
	return nil
}

// Matches returns corrections compatible with the document text.
func (s *InMemoryStore) Matches(ctx context.Context, documentText string) ([]Correction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prints := KeywordPrints(documentText, s.keywords)
	normalized := Normalize(documentText)

	var result []Correction
	for _, c := range s.records {
		if overlaps(c.Keywords, prints) ||
			(Normalize(c.RawTextSnippet) != "" && strings.Contains(normalized, Normalize(c.RawTextSnippet))) {
			result = append(result, c)
		}
	}
	sortNewestFirst(result)
	return result, nil
}

// All returns every stored correction, most recent first.
func (s *InMemoryStore) All(ctx context.Context) ([]Correction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Correction, 0, len(s.records))
	for _, c := range s.records {
		result = append(result, c)
	}
	sortNewestFirst(result)
	return result, nil
}

func overlaps(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func sortNewestFirst(cs []Correction) {
	sort.Slice(cs, func(i, j int) bool {
		return cs[i].CreatedAt.After(cs[j].CreatedAt)
	})
}

var _ Store = (*InMemoryStore)(nil)
