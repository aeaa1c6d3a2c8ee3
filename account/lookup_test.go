package account

import (
	"context"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gusrub/geary/mailbox"
)

func storeTestMessage(t *testing.T, store *Store, messageID, inReplyTo string, path mailbox.Path, flags ...string) mailbox.EmailID {
	t.Helper()
	email := &mailbox.Email{
		MessageID:    messageID,
		InReplyTo:    inReplyTo,
		InternalDate: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Subject:      "subject of " + messageID,
		From:         "alice@example.com",
		Receivers:    "bob@x.org",
		Body:         "body of " + messageID,
		Flags:        flags,
		Fields:       mailbox.FieldAll,
	}
	id, err := store.StoreMessage(context.Background(), email, path)
	require.NoError(t, err)
	return id
}

func TestSearchMessageIDFindsRepliesToo(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	inbox := mailbox.NewPath(mailbox.Inbox)
	require.NoError(t, store.CloneFolder(ctx, inbox, mailbox.RemoteProperties{}))

	storeTestMessage(t, store, "<root@example.org>", "", inbox)
	storeTestMessage(t, store, "<reply@example.org>", "<root@example.org>", inbox)

	matches, err := store.SearchMessageID(ctx, "<root@example.org>", mailbox.FieldNone, true, nil, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)
}

func TestSearchMessageIDFolderSet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	inbox := mailbox.NewPath(mailbox.Inbox)
	all := mailbox.NewPath("All Mail")
	require.NoError(t, store.CloneFolder(ctx, inbox, mailbox.RemoteProperties{}))
	require.NoError(t, store.CloneFolder(ctx, all, mailbox.RemoteProperties{}))

	id := storeTestMessage(t, store, "<multi@example.org>", "", inbox)
	require.NoError(t, store.AddMessageLocation(ctx, id, all))

	matches, err := store.SearchMessageID(ctx, "<multi@example.org>", mailbox.FieldNone, true, nil, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Len(t, matches[0].Paths, 2)
}

func TestSearchMessageIDFolderBlacklistSuppressesMessage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	inbox := mailbox.NewPath(mailbox.Inbox)
	spam := mailbox.NewPath("Spam")
	require.NoError(t, store.CloneFolder(ctx, inbox, mailbox.RemoteProperties{}))
	require.NoError(t, store.CloneFolder(ctx, spam, mailbox.RemoteProperties{}))

	id := storeTestMessage(t, store, "<both@example.org>", "", inbox)
	require.NoError(t, store.AddMessageLocation(ctx, id, spam))

	// one blacklisted folder removes the message entirely, the inbox
	// mapping included
	matches, err := store.SearchMessageID(ctx, "<both@example.org>", mailbox.FieldNone, true,
		[]mailbox.Path{spam}, nil)
	require.NoError(t, err)
	assert.Nil(t, matches)
}

func TestSearchMessageIDOrphan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	inbox := mailbox.NewPath(mailbox.Inbox)
	require.NoError(t, store.CloneFolder(ctx, inbox, mailbox.RemoteProperties{}))

	id := storeTestMessage(t, store, "<orphan@example.org>", "", inbox)
	require.NoError(t, store.MarkForRemoval(ctx, id, inbox))

	matches, err := store.SearchMessageID(ctx, "<orphan@example.org>", mailbox.FieldNone, true, nil, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Nil(t, matches[0].Paths)

	// a nil path in the blacklist excludes folderless messages
	matches, err = store.SearchMessageID(ctx, "<orphan@example.org>", mailbox.FieldNone, true,
		[]mailbox.Path{nil}, nil)
	require.NoError(t, err)
	assert.Nil(t, matches)
}

func TestSearchMessageIDFlagBlacklist(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	inbox := mailbox.NewPath(mailbox.Inbox)
	require.NoError(t, store.CloneFolder(ctx, inbox, mailbox.RemoteProperties{}))

	storeTestMessage(t, store, "<flagged@example.org>", "", inbox, imap.DeletedFlag)

	matches, err := store.SearchMessageID(ctx, "<flagged@example.org>", mailbox.FieldNone, true,
		nil, []string{imap.DeletedFlag})
	require.NoError(t, err)
	assert.Nil(t, matches)
}

func TestSearchMessageIDRequiredFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	inbox := mailbox.NewPath(mailbox.Inbox)
	require.NoError(t, store.CloneFolder(ctx, inbox, mailbox.RemoteProperties{}))

	email := &mailbox.Email{
		MessageID: "<partial@example.org>",
		Subject:   "headers only",
		Fields:    mailbox.FieldMessageID | mailbox.FieldSubject,
	}
	_, err := store.StoreMessage(ctx, email, inbox)
	require.NoError(t, err)

	// body was never fetched: the row does not satisfy the request
	matches, err := store.SearchMessageID(ctx, "<partial@example.org>", mailbox.FieldBody, false, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, matches)

	matches, err = store.SearchMessageID(ctx, "<partial@example.org>", mailbox.FieldBody, true, nil, nil)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestSearchMessageIDAttachments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	inbox := mailbox.NewPath(mailbox.Inbox)
	require.NoError(t, store.CloneFolder(ctx, inbox, mailbox.RemoteProperties{}))

	email := &mailbox.Email{
		MessageID: "<attached@example.org>",
		Subject:   "see attached",
		Fields:    mailbox.FieldMessageID | mailbox.FieldSubject,
		Attachments: []mailbox.Attachment{
			{Filename: "report.pdf", MimeType: "application/pdf", Filesize: 1024},
		},
	}
	_, err := store.StoreMessage(ctx, email, inbox)
	require.NoError(t, err)

	matches, err := store.SearchMessageID(ctx, "<attached@example.org>", mailbox.FieldNone, true, nil, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Len(t, matches[0].Email.Attachments, 1)
	assert.Equal(t, "report.pdf", matches[0].Email.Attachments[0].Filename)
}
