package account

import (
	"context"
	"database/sql"

	"github.com/gusrub/geary/mailbox"
)

// folderEntry is the registry's weak side of a live folder handle: the map
// owns the entry, callers own strong references counted in refs. The entry
// disappears when the last strong reference is released.
type folderEntry struct {
	folder *Folder
	refs   int
}

// Folder returns a live handle for path, creating one on first request and
// reusing it afterwards so that two concurrent requests for the same path
// observe the same handle. The caller owns a strong reference and must
// Release it.
func (s *Store) Folder(ctx context.Context, path mailbox.Path) (*Folder, error) {
	database, err := s.database()
	if err != nil {
		return nil, err
	}
	var folderID int64
	var properties mailbox.FolderProperties
	err = database.ReadOnly(ctx, func(tx *sql.Tx) error {
		folderID, err = s.fetchFolderID(ctx, tx, path, false)
		if err != nil {
			return err
		}
		properties, err = loadFolderProperties(ctx, tx, folderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.createLocalFolder(path, folderID, properties), nil
}

// liveFolder returns the live handle for path without retaining it, nil
// when no caller currently holds one.
func (s *Store) liveFolder(path mailbox.Path) *Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.registry[path.Key()]
	if !ok {
		return nil
	}
	return entry.folder
}

// createLocalFolder installs or reuses the registry entry for path. On
// reuse the handle's properties are refreshed in place, so the reuse path
// and the create path leave the handle in the same state.
func (s *Store) createLocalFolder(path mailbox.Path, folderID int64, properties mailbox.FolderProperties) *Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.registry[path.Key()]; ok {
		entry.refs++
		entry.folder.setProperties(properties)
		return entry.folder
	}
	folder := newFolder(s, folderID, path, properties)
	s.registry[path.Key()] = &folderEntry{folder: folder, refs: 1}
	return folder
}

// releaseFolder drops one strong reference; the last one evicts the entry.
func (s *Store) releaseFolder(folder *Folder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := folder.path.Key()
	entry, ok := s.registry[key]
	if !ok || entry.folder != folder {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(s.registry, key)
	}
}
