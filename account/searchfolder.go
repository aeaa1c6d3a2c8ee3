package account

import (
	"context"
	"sync"

	"github.com/gusrub/geary/mailbox"
)

// SearchFolder is the account-wide virtual folder the UI binds to search
// results. It owns the current query and the last result set.
type SearchFolder struct {
	store *Store

	mu      sync.Mutex
	query   *SearchQuery
	results []SearchResult
}

func newSearchFolder(store *Store) *SearchFolder {
	return &SearchFolder{store: store}
}

// Search compiles raw against the account owner's email and refreshes the
// folder contents.
func (f *SearchFolder) Search(ctx context.Context, raw string, limit, offset int, folderBlacklist []mailbox.Path) ([]SearchResult, error) {
	query := NewSearchQuery(raw, f.store.OwnerEmail())
	results, err := f.store.Search(ctx, query, limit, offset, folderBlacklist, nil)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.query = query
	f.results = results
	f.mu.Unlock()
	return results, nil
}

// Matches returns the highlight terms for the current result set.
func (f *SearchFolder) Matches(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	query := f.query
	results := f.results
	f.mu.Unlock()
	if query == nil || len(results) == 0 {
		return nil, nil
	}
	ids := make([]mailbox.EmailID, len(results))
	for i, result := range results {
		ids[i] = result.ID
	}
	return f.store.SearchMatches(ctx, query, ids)
}

// Results returns the last result set.
func (f *SearchFolder) Results() []SearchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	results := make([]SearchResult, len(f.results))
	copy(results, f.results)
	return results
}
