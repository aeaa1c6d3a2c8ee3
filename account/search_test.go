package account

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gusrub/geary/mailbox"
)

func storeSearchCorpus(t *testing.T, store *Store) (inbox, archive mailbox.Path, ids []mailbox.EmailID) {
	t.Helper()
	ctx := context.Background()
	inbox = mailbox.NewPath(mailbox.Inbox)
	archive = mailbox.NewPath("Archive")
	require.NoError(t, store.CloneFolder(ctx, inbox, mailbox.RemoteProperties{}))
	require.NoError(t, store.CloneFolder(ctx, archive, mailbox.RemoteProperties{}))

	emails := []*mailbox.Email{
		{
			MessageID:    "<taxes@example.org>",
			InternalDate: time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
			Subject:      "taxes for 2024",
			From:         "alice@example.com",
			Receivers:    "bob@x.org",
			Body:         "the 2024 numbers are attached",
			Fields:       mailbox.FieldAll,
		},
		{
			MessageID:    "<older@example.org>",
			InternalDate: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			Subject:      "taxes reminder",
			From:         "alice@example.com",
			Receivers:    "bob@x.org",
			Body:         "do not forget the 2024 deadline",
			Fields:       mailbox.FieldAll,
		},
		{
			MessageID:    "<noise@example.org>",
			InternalDate: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			Subject:      "lunch",
			From:         "carol@example.com",
			Receivers:    "bob@x.org",
			Body:         "pizza on friday",
			Fields:       mailbox.FieldAll,
		},
	}
	paths := []mailbox.Path{inbox, inbox, archive}
	for i, email := range emails {
		id, err := store.StoreMessage(ctx, email, paths[i])
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, store.PopulateSearchIndex(ctx, nil))
	return inbox, archive, ids
}

func TestSearchFieldTokens(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, _, ids := storeSearchCorpus(t, store)

	query := NewSearchQuery("from:alice@example.com subject:taxes 2024", testOwnerEmail)
	results, err := store.Search(ctx, query, 0, 0, nil, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// newest first
	assert.Equal(t, ids[0], results[0].ID)
	assert.Equal(t, ids[1], results[1].ID)
	assert.Greater(t, results[0].InternalDate, results[1].InternalDate)
}

func TestSearchNoResultsIsNil(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	storeSearchCorpus(t, store)

	query := NewSearchQuery("zebra", testOwnerEmail)
	results, err := store.Search(ctx, query, 0, 0, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestSearchStopTokenQueryIsNil(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	storeSearchCorpus(t, store)

	query := NewSearchQuery("and or not", testOwnerEmail)
	results, err := store.Search(ctx, query, 0, 0, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestSearchPagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, _, ids := storeSearchCorpus(t, store)

	query := NewSearchQuery("taxes", testOwnerEmail)
	first, err := store.Search(ctx, query, 1, 0, nil, nil)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, ids[0], first[0].ID)

	second, err := store.Search(ctx, query, 1, 1, nil, nil)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, ids[1], second[0].ID)
}

func TestSearchFolderBlacklist(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	inbox, _, _ := storeSearchCorpus(t, store)

	query := NewSearchQuery("bob", testOwnerEmail)
	results, err := store.Search(ctx, query, 0, 0, []mailbox.Path{inbox}, nil)
	require.NoError(t, err)
	// only the archived message is left
	require.Len(t, results, 1)
}

func TestSearchFolderlessBlacklist(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	inbox, _, ids := storeSearchCorpus(t, store)

	// orphan the first message
	require.NoError(t, store.MarkForRemoval(ctx, ids[0], inbox))

	query := NewSearchQuery("taxes", testOwnerEmail)
	results, err := store.Search(ctx, query, 0, 0, []mailbox.Path{nil}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ids[1], results[0].ID)
}

func TestSearchBlacklistCreatesFolderRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	storeSearchCorpus(t, store)

	// resolving a blacklisted path that does not exist yet creates the
	// row, keeping the exclusion stable across early startup
	missing := mailbox.NewPath("Not", "Yet", "Cloned")
	query := NewSearchQuery("taxes", testOwnerEmail)
	_, err := store.Search(ctx, query, 0, 0, []mailbox.Path{missing}, nil)
	require.NoError(t, err)

	folder, err := store.Folder(ctx, missing)
	require.NoError(t, err)
	folder.Release()
}

func TestSearchRestrictedToIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, _, ids := storeSearchCorpus(t, store)

	query := NewSearchQuery("taxes", testOwnerEmail)
	results, err := store.Search(ctx, query, 0, 0, nil, []mailbox.EmailID{ids[1]})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ids[1], results[0].ID)
}

func TestSearchMatches(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, _, ids := storeSearchCorpus(t, store)

	query := NewSearchQuery("taxes", testOwnerEmail)
	matches, err := store.SearchMatches(ctx, query, ids)
	require.NoError(t, err)
	assert.Contains(t, matches, "taxes")
}

func TestSearchMatchesSubsetOfSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, _, ids := storeSearchCorpus(t, store)

	query := NewSearchQuery("2024", testOwnerEmail)
	results, err := store.Search(ctx, query, 0, 0, nil, ids)
	require.NoError(t, err)
	require.NotNil(t, results)

	matches, err := store.SearchMatches(ctx, query, ids)
	require.NoError(t, err)
	assert.Contains(t, matches, "2024")
}

func TestSearchMatchesIncludeRawWords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, _, ids := storeSearchCorpus(t, store)

	// the FTS tokenizer splits the address, the raw word still comes back
	query := NewSearchQuery(`from:alice@example.com`, testOwnerEmail)
	matches, err := store.SearchMatches(ctx, query, ids)
	require.NoError(t, err)
	assert.Contains(t, matches, "from:alice@example.com")
}

func TestSearchFolderCollaborator(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	storeSearchCorpus(t, store)

	folder := store.SearchFolder()
	require.NotNil(t, folder)
	results, err := folder.Search(ctx, "taxes", 0, 0, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Len(t, folder.Results(), 2)

	matches, err := folder.Matches(ctx)
	require.NoError(t, err)
	assert.Contains(t, matches, "taxes")
}
