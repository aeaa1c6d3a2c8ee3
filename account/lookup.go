package account

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gusrub/geary/lib"
	"github.com/gusrub/geary/mailbox"
)

// MessageIDMatch maps one matching message to the folders containing it.
// Paths is nil for an orphan message (no non-tombstoned location).
type MessageIDMatch struct {
	Email *mailbox.Email
	Paths []mailbox.Path
}

// SearchMessageID finds every cached message whose Message-ID or
// In-Reply-To header equals messageID, typically to stitch conversations
// together.
//
// A message is dropped entirely when it does not satisfy the required
// fields (unless partialOK), when any of its folders is blacklisted, or
// when its flags intersect flagBlacklist. A nil entry in folderBlacklist
// stands for "folderless" and suppresses orphan messages. Returns nil when
// nothing matches.
func (s *Store) SearchMessageID(ctx context.Context, messageID string, required mailbox.Fields, partialOK bool,
	folderBlacklist []mailbox.Path, flagBlacklist []string) ([]MessageIDMatch, error) {
	database, err := s.database()
	if err != nil {
		return nil, err
	}

	blacklistFolderless := false
	for _, path := range folderBlacklist {
		if path == nil {
			blacklistFolderless = true
		}
	}

	var matches []MessageIDMatch
	err = database.ReadOnly(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, message_id, in_reply_to, internaldate_time_t,
				subject, from_field, receivers, cc, bcc, body, flags, fields
			FROM MessageTable WHERE message_id = ? OR in_reply_to = ?`, messageID, messageID)
		if err != nil {
			return err
		}
		var emails []*mailbox.Email
		for rows.Next() {
			email, err := scanEmail(rows)
			if err != nil {
				rows.Close()
				return err
			}
			emails = append(emails, email)
		}
		if err = rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for _, email := range emails {
			if !partialOK && !email.Fields.Satisfies(required) {
				continue
			}
			if email.Attachments, err = loadAttachments(ctx, tx, email.ID); err != nil {
				return err
			}
			paths, err := s.messageFolders(ctx, tx, email.ID)
			if err != nil {
				return err
			}
			if lib.IntersectFlags(email.Flags, flagBlacklist) {
				continue
			}
			if len(paths) == 0 {
				if !blacklistFolderless {
					matches = append(matches, MessageIDMatch{Email: email})
				}
				continue
			}
			blocked := false
			for _, path := range paths {
				if pathInList(path, folderBlacklist) {
					// one blacklisted folder suppresses the whole message,
					// mappings from its other folders included
					blocked = true
					break
				}
			}
			if blocked {
				continue
			}
			matches = append(matches, MessageIDMatch{Email: email, Paths: paths})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return matches, nil
}

// messageFolders resolves the non-tombstoned locations of a message into
// folder paths.
func (s *Store) messageFolders(ctx context.Context, tx *sql.Tx, id mailbox.EmailID) ([]mailbox.Path, error) {
	rows, err := tx.QueryContext(ctx, "SELECT folder_id FROM MessageLocationTable WHERE message_id = ? AND remove_marker = 0", int64(id))
	if err != nil {
		return nil, err
	}
	var folderIDs []int64
	for rows.Next() {
		var folderID int64
		if err = rows.Scan(&folderID); err != nil {
			rows.Close()
			return nil, err
		}
		folderIDs = append(folderIDs, folderID)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	var paths []mailbox.Path
	for _, folderID := range folderIDs {
		path, err := s.findFolderPath(ctx, tx, folderID)
		if err != nil {
			if errors.Is(err, lib.ErrFolderNotFound) {
				continue
			}
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func pathInList(path mailbox.Path, list []mailbox.Path) bool {
	for _, candidate := range list {
		if candidate != nil && path.Equal(candidate) {
			return true
		}
	}
	return false
}
