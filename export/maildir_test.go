package export

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gusrub/geary/account"
	"github.com/gusrub/geary/lib"
	"github.com/gusrub/geary/mailbox"
)

func TestExportFolder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("maildir is not supported on Windows")
	}
	ctx := context.Background()
	store := account.New("test", "bob@x.org", lib.NewTestLogger(t, "account"))
	require.NoError(t, store.Open(ctx, t.TempDir(), ""))
	defer store.Close()

	inbox := mailbox.NewPath(mailbox.Inbox)
	require.NoError(t, store.CloneFolder(ctx, inbox, mailbox.RemoteProperties{}))
	for _, subject := range []string{"first", "second"} {
		email := &mailbox.Email{
			MessageID:    "<" + subject + "@example.org>",
			InternalDate: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
			Subject:      subject,
			From:         "alice@example.com",
			Receivers:    "bob@x.org",
			Body:         "content of " + subject,
			Fields:       mailbox.FieldAll,
		}
		_, err := store.StoreMessage(ctx, email, inbox)
		require.NoError(t, err)
	}

	root := filepath.Join(t.TempDir(), "maildir")
	written, err := Folder(ctx, store, inbox, root, lib.NewTestLogger(t, "export"))
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	entries, err := os.ReadDir(filepath.Join(root, "cur"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestMaildirFlags(t *testing.T) {
	flags := MaildirFlags([]string{imap.SeenFlag, imap.FlaggedFlag, "\\Custom"})
	assert.Len(t, flags, 2)
}
