package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gusrub/geary/lib"
	"github.com/gusrub/geary/mailbox"
)

// invalidRowID denotes "no row", used for the parent of root folders.
const invalidRowID int64 = -1

// fetchFolderID walks path from the root, one (parent_id, name) lookup per
// segment. Missing segments are created when create is set, with null
// counts. A row whose id equals its parent id is corruption: it is logged
// and reported as not found rather than crashing the account.
func (s *Store) fetchFolderID(ctx context.Context, tx *sql.Tx, path mailbox.Path, create bool) (int64, error) {
	if len(path) == 0 {
		return invalidRowID, fmt.Errorf("%w: empty folder path", lib.ErrBadParameters)
	}
	parentID := invalidRowID
	for _, name := range path {
		id, err := lookupChildID(ctx, tx, parentID, name)
		if errors.Is(err, sql.ErrNoRows) {
			if !create {
				return invalidRowID, lib.ErrFolderNotFound
			}
			id, err = insertFolderRow(ctx, tx, parentID, name)
		}
		if err != nil {
			return invalidRowID, err
		}
		if id == parentID {
			s.log.Printf("loop in database: folder %d is its own parent", id)
			return invalidRowID, lib.ErrFolderNotFound
		}
		parentID = id
	}
	return parentID, nil
}

// fetchParentID resolves the parent of path, invalidRowID when path is a
// root folder.
func (s *Store) fetchParentID(ctx context.Context, tx *sql.Tx, path mailbox.Path, create bool) (int64, error) {
	if path.IsRoot() {
		return invalidRowID, nil
	}
	return s.fetchFolderID(ctx, tx, path.Parent(), create)
}

func lookupChildID(ctx context.Context, tx *sql.Tx, parentID int64, name string) (int64, error) {
	var id int64
	var err error
	if parentID == invalidRowID {
		err = tx.QueryRowContext(ctx, "SELECT id FROM FolderTable WHERE parent_id IS NULL AND name = ?", name).Scan(&id)
	} else {
		err = tx.QueryRowContext(ctx, "SELECT id FROM FolderTable WHERE parent_id = ? AND name = ?", parentID, name).Scan(&id)
	}
	return id, err
}

func insertFolderRow(ctx context.Context, tx *sql.Tx, parentID int64, name string) (int64, error) {
	var parent any
	if parentID != invalidRowID {
		parent = parentID
	}
	result, err := tx.ExecContext(ctx, "INSERT INTO FolderTable (parent_id, name) VALUES (?, ?)", parent, name)
	if err != nil {
		return invalidRowID, err
	}
	return result.LastInsertId()
}

// findFolderPath reconstructs a path by walking parent pointers upward,
// with the same self-parent loop detection as fetchFolderID.
func (s *Store) findFolderPath(ctx context.Context, tx *sql.Tx, folderID int64) (mailbox.Path, error) {
	var segments []string
	id := folderID
	for {
		var name string
		var parent sql.NullInt64
		err := tx.QueryRowContext(ctx, "SELECT name, parent_id FROM FolderTable WHERE id = ?", id).Scan(&name, &parent)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, lib.ErrFolderNotFound
		}
		if err != nil {
			return nil, err
		}
		segments = append(segments, name)
		if !parent.Valid {
			break
		}
		if parent.Int64 == id {
			s.log.Printf("loop in database: folder %d is its own parent", id)
			return nil, lib.ErrFolderNotFound
		}
		id = parent.Int64
	}
	// collected leaf-first
	path := make(mailbox.Path, len(segments))
	for i, segment := range segments {
		path[len(segments)-1-i] = segment
	}
	return path, nil
}
