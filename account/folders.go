package account

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gusrub/geary/db"
	"github.com/gusrub/geary/lib"
	"github.com/gusrub/geary/mailbox"
)

// FolderInfo is a folder row snapshot for listings.
type FolderInfo struct {
	Path       mailbox.Path
	ID         int64
	Properties mailbox.FolderProperties
}

// nullableUID maps the zero "unknown" sentinel to NULL.
func nullableUID(value uint32) any {
	if value == 0 {
		return nil
	}
	return int64(value)
}

// CloneFolder mirrors a folder discovered on the server into the local
// tree. Missing ancestors are created with null counts; creating them
// again later collapses onto the existing rows.
func (s *Store) CloneFolder(ctx context.Context, path mailbox.Path, properties mailbox.RemoteProperties) error {
	database, err := s.database()
	if err != nil {
		return err
	}
	_, err = database.ReadWrite(ctx, func(tx *sql.Tx) (db.Outcome, error) {
		parentID, err := s.fetchParentID(ctx, tx, path, true)
		if err != nil {
			return db.Rollback, err
		}
		_, err = lookupChildID(ctx, tx, parentID, path.Name())
		if err == nil {
			// already cloned: refresh the remote-supplied properties
			return s.applyStatusUpdate(ctx, tx, path, properties, true)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return db.Rollback, err
		}

		var parent any
		if parentID != invalidRowID {
			parent = parentID
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO FolderTable
			(parent_id, name, attributes, last_seen_status_total, uid_validity, uid_next, unread_count)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			parent, path.Name(), lib.JoinFlags(properties.Attributes), properties.StatusMessages,
			nullableUID(properties.UIDValidity), nullableUID(properties.UIDNext), properties.EmailUnread)
		if err != nil {
			return db.Rollback, err
		}
		return db.Commit, nil
	})
	return err
}

// DeleteFolder removes the folder row and its message locations. A folder
// with children is left alone: the transaction rolls back and the returned
// flag is false. Messages orphaned by the deletion stay in MessageTable --
// other folders may still reference them, a later GC pass collects the rest.
func (s *Store) DeleteFolder(ctx context.Context, path mailbox.Path) (bool, error) {
	database, err := s.database()
	if err != nil {
		return false, err
	}
	outcome, err := database.ReadWrite(ctx, func(tx *sql.Tx) (db.Outcome, error) {
		folderID, err := s.fetchFolderID(ctx, tx, path, false)
		if err != nil {
			return db.Rollback, err
		}
		var children int
		if err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM FolderTable WHERE parent_id = ?", folderID).Scan(&children); err != nil {
			return db.Rollback, err
		}
		if children > 0 {
			s.log.Printf("not deleting folder %q: %d children", path, children)
			return db.Rollback, nil
		}
		if _, err = tx.ExecContext(ctx, "DELETE FROM MessageLocationTable WHERE folder_id = ?", folderID); err != nil {
			return db.Rollback, err
		}
		if _, err = tx.ExecContext(ctx, "DELETE FROM FolderTable WHERE id = ?", folderID); err != nil {
			return db.Rollback, err
		}
		return db.Commit, nil
	})
	return outcome == db.Commit, err
}

// UpdateFolderStatus reconciles folder state from an IMAP STATUS response:
// attributes, unread count and the STATUS message count. UID markers are
// only touched when updateUIDInfo is set. The SELECT/EXAMINE count is never
// touched here: a passive STATUS must not clobber fresh SELECT data.
func (s *Store) UpdateFolderStatus(ctx context.Context, path mailbox.Path, properties mailbox.RemoteProperties, updateUIDInfo bool) error {
	database, err := s.database()
	if err != nil {
		return err
	}
	_, err = database.ReadWrite(ctx, func(tx *sql.Tx) (db.Outcome, error) {
		return s.applyStatusUpdate(ctx, tx, path, properties, updateUIDInfo)
	})
	if err != nil {
		return err
	}

	if folder := s.liveFolder(path); folder != nil {
		folder.applyStatus(properties, updateUIDInfo)
	}
	return nil
}

func (s *Store) applyStatusUpdate(ctx context.Context, tx *sql.Tx, path mailbox.Path, properties mailbox.RemoteProperties, updateUIDInfo bool) (db.Outcome, error) {
	folderID, err := s.fetchFolderID(ctx, tx, path, false)
	if err != nil {
		return db.Rollback, err
	}
	_, err = tx.ExecContext(ctx, "UPDATE FolderTable SET attributes = ?, unread_count = ?, last_seen_status_total = ? WHERE id = ?",
		lib.JoinFlags(properties.Attributes), properties.EmailUnread, properties.StatusMessages, folderID)
	if err != nil {
		return db.Rollback, err
	}
	if updateUIDInfo {
		_, err = tx.ExecContext(ctx, "UPDATE FolderTable SET uid_validity = ?, uid_next = ? WHERE id = ?",
			nullableUID(properties.UIDValidity), nullableUID(properties.UIDNext), folderID)
		if err != nil {
			return db.Rollback, err
		}
	}
	return db.Commit, nil
}

// UpdateFolderSelectExamine reconciles folder state from an IMAP SELECT or
// EXAMINE response: UID markers and the selected message count. The STATUS
// count is never touched here.
func (s *Store) UpdateFolderSelectExamine(ctx context.Context, path mailbox.Path, properties mailbox.RemoteProperties) error {
	database, err := s.database()
	if err != nil {
		return err
	}
	_, err = database.ReadWrite(ctx, func(tx *sql.Tx) (db.Outcome, error) {
		folderID, err := s.fetchFolderID(ctx, tx, path, false)
		if err != nil {
			return db.Rollback, err
		}
		_, err = tx.ExecContext(ctx, "UPDATE FolderTable SET uid_validity = ?, uid_next = ?, last_seen_total = ? WHERE id = ?",
			nullableUID(properties.UIDValidity), nullableUID(properties.UIDNext), properties.SelectExamineMessages, folderID)
		if err != nil {
			return db.Rollback, err
		}
		return db.Commit, nil
	})
	if err != nil {
		return err
	}

	if folder := s.liveFolder(path); folder != nil {
		folder.applySelectExamine(properties)
	}
	return nil
}

// ListFolders returns the children of parent, the root folders for a nil
// parent.
func (s *Store) ListFolders(ctx context.Context, parent mailbox.Path) ([]FolderInfo, error) {
	database, err := s.database()
	if err != nil {
		return nil, err
	}
	var folders []FolderInfo
	err = database.ReadOnly(ctx, func(tx *sql.Tx) error {
		var rows *sql.Rows
		query := "SELECT id, name, attributes, last_seen_total, last_seen_status_total, uid_validity, uid_next, unread_count FROM FolderTable WHERE "
		if parent == nil {
			rows, err = tx.QueryContext(ctx, query+"parent_id IS NULL ORDER BY name")
		} else {
			var parentID int64
			parentID, err = s.fetchFolderID(ctx, tx, parent, false)
			if err != nil {
				return err
			}
			rows, err = tx.QueryContext(ctx, query+"parent_id = ? ORDER BY name", parentID)
		}
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			var name string
			properties, err := scanFolderProperties(rows, &id, &name)
			if err != nil {
				return err
			}
			folders = append(folders, FolderInfo{Path: parent.Child(name), ID: id, Properties: properties})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return folders, nil
}

func scanFolderProperties(rows *sql.Rows, id *int64, name *string) (mailbox.FolderProperties, error) {
	var properties mailbox.FolderProperties
	var attributes sql.NullString
	var lastSeenTotal, lastSeenStatusTotal, uidValidity, uidNext, unread sql.NullInt64
	err := rows.Scan(id, name, &attributes, &lastSeenTotal, &lastSeenStatusTotal, &uidValidity, &uidNext, &unread)
	if err != nil {
		return properties, err
	}
	properties.Attributes = lib.SplitFlags(attributes.String)
	properties.LastSeenTotal = int(lastSeenTotal.Int64)
	properties.LastSeenStatusTotal = int(lastSeenStatusTotal.Int64)
	properties.UIDValidity = uint32(uidValidity.Int64)
	properties.UIDNext = uint32(uidNext.Int64)
	properties.UnreadCount = int(unread.Int64)
	return properties, nil
}

// loadFolderProperties reads the persisted properties of a single folder row.
func loadFolderProperties(ctx context.Context, tx *sql.Tx, folderID int64) (mailbox.FolderProperties, error) {
	var properties mailbox.FolderProperties
	var attributes sql.NullString
	var lastSeenTotal, lastSeenStatusTotal, uidValidity, uidNext, unread sql.NullInt64
	err := tx.QueryRowContext(ctx,
		"SELECT attributes, last_seen_total, last_seen_status_total, uid_validity, uid_next, unread_count FROM FolderTable WHERE id = ?",
		folderID).Scan(&attributes, &lastSeenTotal, &lastSeenStatusTotal, &uidValidity, &uidNext, &unread)
	if errors.Is(err, sql.ErrNoRows) {
		return properties, lib.ErrFolderNotFound
	}
	if err != nil {
		return properties, err
	}
	properties.Attributes = lib.SplitFlags(attributes.String)
	properties.LastSeenTotal = int(lastSeenTotal.Int64)
	properties.LastSeenStatusTotal = int(lastSeenStatusTotal.Int64)
	properties.UIDValidity = uint32(uidValidity.Int64)
	properties.UIDNext = uint32(uidNext.Int64)
	properties.UnreadCount = int(unread.Int64)
	return properties, nil
}
