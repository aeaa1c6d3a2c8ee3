package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gusrub/geary/mailbox"
)

func TestUnreadPropagatesToSharingFolders(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	inbox := mailbox.NewPath(mailbox.Inbox)
	all := mailbox.NewPath("All Mail")
	require.NoError(t, store.CloneFolder(ctx, inbox, mailbox.RemoteProperties{}))
	require.NoError(t, store.CloneFolder(ctx, all, mailbox.RemoteProperties{}))

	id := storeTestMessage(t, store, "<shared@example.org>", "", inbox)
	require.NoError(t, store.AddMessageLocation(ctx, id, all))

	inboxFolder, err := store.Folder(ctx, inbox)
	require.NoError(t, err)
	defer inboxFolder.Release()
	allFolder, err := store.Folder(ctx, all)
	require.NoError(t, err)
	defer allFolder.Release()

	// the source folder accounts for itself; only the sharing folder moves
	require.NoError(t, inboxFolder.ReportUnread(ctx, map[mailbox.EmailID]bool{id: true}))
	assert.Equal(t, 0, inboxFolder.Properties().UnreadCount)
	assert.Equal(t, 1, allFolder.Properties().UnreadCount)

	require.NoError(t, inboxFolder.ReportUnread(ctx, map[mailbox.EmailID]bool{id: false}))
	assert.Equal(t, 0, allFolder.Properties().UnreadCount)
}

func TestUnreadPropagationIncludesTombstones(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	inbox := mailbox.NewPath(mailbox.Inbox)
	trash := mailbox.NewPath("Trash")
	require.NoError(t, store.CloneFolder(ctx, inbox, mailbox.RemoteProperties{}))
	require.NoError(t, store.CloneFolder(ctx, trash, mailbox.RemoteProperties{}))

	id := storeTestMessage(t, store, "<doomed@example.org>", "", inbox)
	require.NoError(t, store.AddMessageLocation(ctx, id, trash))
	// marked for removal but not yet expunged: still counts
	require.NoError(t, store.MarkForRemoval(ctx, id, trash))

	trashFolder, err := store.Folder(ctx, trash)
	require.NoError(t, err)
	defer trashFolder.Release()

	inboxFolder, err := store.Folder(ctx, inbox)
	require.NoError(t, err)
	require.NoError(t, inboxFolder.ReportUnread(ctx, map[mailbox.EmailID]bool{id: true}))
	inboxFolder.Release()

	assert.Equal(t, 1, trashFolder.Properties().UnreadCount)
}

func TestUnreadPropagationWithoutLiveHandle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	inbox := mailbox.NewPath(mailbox.Inbox)
	all := mailbox.NewPath("All Mail")
	require.NoError(t, store.CloneFolder(ctx, inbox, mailbox.RemoteProperties{}))
	require.NoError(t, store.CloneFolder(ctx, all, mailbox.RemoteProperties{}))

	id := storeTestMessage(t, store, "<nohandle@example.org>", "", inbox)
	require.NoError(t, store.AddMessageLocation(ctx, id, all))

	inboxFolder, err := store.Folder(ctx, inbox)
	require.NoError(t, err)
	require.NoError(t, inboxFolder.ReportUnread(ctx, map[mailbox.EmailID]bool{id: true}))
	inboxFolder.Release()

	// the persisted count moved even though no handle was live
	allFolder, err := store.Folder(ctx, all)
	require.NoError(t, err)
	defer allFolder.Release()
	assert.Equal(t, 1, allFolder.Properties().UnreadCount)
}
