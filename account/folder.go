package account

import (
	"context"
	"database/sql"
	"sync"

	"github.com/gusrub/geary/db"
	"github.com/gusrub/geary/mailbox"
)

// Folder is a live, cached per-folder handle. Handles are unique per path
// while at least one caller retains them; see Store.Folder.
type Folder struct {
	store *Store
	id    int64
	path  mailbox.Path

	mu         sync.Mutex
	properties mailbox.FolderProperties
}

func newFolder(store *Store, id int64, path mailbox.Path, properties mailbox.FolderProperties) *Folder {
	return &Folder{
		store:      store,
		id:         id,
		path:       path,
		properties: properties,
	}
}

func (f *Folder) ID() int64 {
	return f.id
}

func (f *Folder) Path() mailbox.Path {
	return f.path
}

func (f *Folder) Properties() mailbox.FolderProperties {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.properties
}

// Release drops the caller's strong reference. After the last release the
// registry entry is reclaimed; the handle must not be used afterwards.
func (f *Folder) Release() {
	f.store.releaseFolder(f)
}

func (f *Folder) setProperties(properties mailbox.FolderProperties) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.properties = properties
}

func (f *Folder) applyStatus(remote mailbox.RemoteProperties, updateUIDInfo bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.properties.Attributes = remote.Attributes
	f.properties.UnreadCount = remote.EmailUnread
	f.properties.LastSeenStatusTotal = remote.StatusMessages
	if updateUIDInfo {
		f.properties.UIDValidity = remote.UIDValidity
		f.properties.UIDNext = remote.UIDNext
	}
}

func (f *Folder) applySelectExamine(remote mailbox.RemoteProperties) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.properties.UIDValidity = remote.UIDValidity
	f.properties.UIDNext = remote.UIDNext
	f.properties.LastSeenTotal = remote.SelectExamineMessages
}

// AddToUnreadCount shifts the persisted unread count by delta and keeps the
// in-memory property in step.
func (f *Folder) AddToUnreadCount(ctx context.Context, delta int) error {
	if delta == 0 {
		return nil
	}
	database, err := f.store.database()
	if err != nil {
		return err
	}
	_, err = database.ReadWrite(ctx, func(tx *sql.Tx) (db.Outcome, error) {
		_, err := tx.ExecContext(ctx, "UPDATE FolderTable SET unread_count = unread_count + ? WHERE id = ?", delta, f.id)
		if err != nil {
			return db.Rollback, err
		}
		return db.Commit, nil
	})
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.properties.UnreadCount += delta
	return nil
}

// ReportUnread is called by the session layer after this folder applied
// unread-status changes locally. The store spreads the deltas to every
// other folder sharing the affected messages.
func (f *Folder) ReportUnread(ctx context.Context, updates map[mailbox.EmailID]bool) error {
	return f.store.propagateUnread(ctx, f, updates)
}
