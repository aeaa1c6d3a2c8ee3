package account

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gusrub/geary/db"
	"github.com/gusrub/geary/mailbox"
)

func TestFolderPathRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	path := mailbox.NewPath("A", "B", "C")
	require.NoError(t, store.CloneFolder(ctx, path, mailbox.RemoteProperties{}))

	database, err := store.database()
	require.NoError(t, err)
	err = database.ReadOnly(ctx, func(tx *sql.Tx) error {
		id, err := store.fetchFolderID(ctx, tx, path, false)
		require.NoError(t, err)
		found, err := store.findFolderPath(ctx, tx, id)
		require.NoError(t, err)
		assert.True(t, path.Equal(found))
		return nil
	})
	require.NoError(t, err)
}

func TestSelfParentRowIsNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	inbox := mailbox.NewPath(mailbox.Inbox)
	require.NoError(t, store.CloneFolder(ctx, inbox, mailbox.RemoteProperties{}))
	id := storeTestMessage(t, store, "<corrupt@example.org>", "", inbox)

	database, err := store.database()
	require.NoError(t, err)

	// forge a self-parent folder row and park the message in it
	var evilID int64
	_, err = database.ReadWrite(ctx, func(tx *sql.Tx) (db.Outcome, error) {
		result, err := tx.Exec("INSERT INTO FolderTable (parent_id, name) VALUES (NULL, 'Evil')")
		if err != nil {
			return db.Rollback, err
		}
		if evilID, err = result.LastInsertId(); err != nil {
			return db.Rollback, err
		}
		if _, err = tx.Exec("UPDATE FolderTable SET parent_id = id WHERE id = ?", evilID); err != nil {
			return db.Rollback, err
		}
		if _, err = tx.Exec("INSERT INTO MessageLocationTable (message_id, folder_id) VALUES (?, ?)", int64(id), evilID); err != nil {
			return db.Rollback, err
		}
		return db.Commit, nil
	})
	require.NoError(t, err)

	// the corrupt row resolves to "not found", not a crash: the message
	// keeps its inbox mapping and loses the corrupt one
	matches, err := store.SearchMessageID(ctx, "<corrupt@example.org>", mailbox.FieldNone, true, nil, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Len(t, matches[0].Paths, 1)
	assert.True(t, matches[0].Paths[0].Equal(inbox))
}

func TestFetchFolderIDCreateOnDemand(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	path := mailbox.NewPath("X", "Y")

	database, err := store.database()
	require.NoError(t, err)
	_, err = database.ReadWrite(ctx, func(tx *sql.Tx) (db.Outcome, error) {
		_, err := store.fetchFolderID(ctx, tx, path, false)
		assert.Error(t, err)

		id, err := store.fetchFolderID(ctx, tx, path, true)
		require.NoError(t, err)
		again, err := store.fetchFolderID(ctx, tx, path, false)
		require.NoError(t, err)
		assert.Equal(t, id, again)
		return db.Commit, nil
	})
	require.NoError(t, err)
}
