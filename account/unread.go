package account

import (
	"context"
	"database/sql"

	"github.com/gusrub/geary/db"
	"github.com/gusrub/geary/mailbox"
)

// propagateUnread spreads unread-status deltas from source to every other
// folder containing the affected messages. Tombstoned locations are
// included: a message just marked for removal still affects unread
// arithmetic until the removal commits. The source folder has already
// accounted for itself.
func (s *Store) propagateUnread(ctx context.Context, source *Folder, updates map[mailbox.EmailID]bool) error {
	database, err := s.database()
	if err != nil {
		return err
	}

	deltas := make(map[int64]int)
	paths := make(map[int64]mailbox.Path)
	err = database.ReadOnly(ctx, func(tx *sql.Tx) error {
		for id, unread := range updates {
			delta := -1
			if unread {
				delta = 1
			}
			rows, err := tx.QueryContext(ctx, "SELECT folder_id FROM MessageLocationTable WHERE message_id = ?", int64(id))
			if err != nil {
				return err
			}
			for rows.Next() {
				var folderID int64
				if err = rows.Scan(&folderID); err != nil {
					rows.Close()
					return err
				}
				if folderID == source.id {
					continue
				}
				deltas[folderID] += delta
			}
			if err = rows.Err(); err != nil {
				rows.Close()
				return err
			}
			rows.Close()
		}
		for folderID := range deltas {
			path, err := s.findFolderPath(ctx, tx, folderID)
			if err != nil {
				// a corrupt row loses this one folder, not the batch
				s.log.Printf("cannot resolve folder %d for unread update: %v", folderID, err)
				delete(deltas, folderID)
				continue
			}
			paths[folderID] = path
		}
		return nil
	})
	if err != nil {
		return err
	}

	for folderID, delta := range deltas {
		if delta == 0 {
			continue
		}
		if folder := s.liveFolder(paths[folderID]); folder != nil {
			if err = folder.AddToUnreadCount(ctx, delta); err != nil {
				return err
			}
			continue
		}
		_, err = database.ReadWrite(ctx, func(tx *sql.Tx) (db.Outcome, error) {
			if _, err := tx.ExecContext(ctx, "UPDATE FolderTable SET unread_count = unread_count + ? WHERE id = ?", delta, folderID); err != nil {
				return db.Rollback, err
			}
			return db.Commit, nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
