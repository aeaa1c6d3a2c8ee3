package account

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/gusrub/geary/db"
	"github.com/gusrub/geary/lib"
	"github.com/gusrub/geary/mailbox"
)

// StoreMessage persists a message fetched by the session layer and places
// it in the folder at path. The folder must already exist (CloneFolder runs
// before any fetch).
func (s *Store) StoreMessage(ctx context.Context, email *mailbox.Email, path mailbox.Path) (mailbox.EmailID, error) {
	database, err := s.database()
	if err != nil {
		return 0, err
	}
	var id mailbox.EmailID
	_, err = database.ReadWrite(ctx, func(tx *sql.Tx) (db.Outcome, error) {
		folderID, err := s.fetchFolderID(ctx, tx, path, false)
		if err != nil {
			return db.Rollback, err
		}
		var date any
		if email.Fields.Satisfies(mailbox.FieldDate) {
			date = email.InternalDate.Unix()
		}
		result, err := tx.ExecContext(ctx, `INSERT INTO MessageTable
			(message_id, in_reply_to, internaldate_time_t, subject, from_field, receivers, cc, bcc, body, attachment, flags, fields)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			email.MessageID, email.InReplyTo, date, email.Subject, email.From, email.Receivers,
			email.CC, email.BCC, email.Body, attachmentColumn(email.Attachments),
			lib.JoinFlags(lib.StripRecentFlag(email.Flags)), int64(email.Fields))
		if err != nil {
			return db.Rollback, err
		}
		rowID, err := result.LastInsertId()
		if err != nil {
			return db.Rollback, err
		}
		id = mailbox.EmailID(rowID)
		for _, attachment := range email.Attachments {
			_, err = tx.ExecContext(ctx, "INSERT INTO MessageAttachmentTable (message_id, filename, mime_type, filesize) VALUES (?, ?, ?, ?)",
				rowID, attachment.Filename, attachment.MimeType, attachment.Filesize)
			if err != nil {
				return db.Rollback, err
			}
		}
		if _, err = tx.ExecContext(ctx, "INSERT INTO MessageLocationTable (message_id, folder_id) VALUES (?, ?)", rowID, folderID); err != nil {
			return db.Rollback, err
		}
		return db.Commit, nil
	})
	if err != nil {
		return 0, err
	}
	email.ID = id
	return id, nil
}

// AddMessageLocation places an already stored message in another folder.
func (s *Store) AddMessageLocation(ctx context.Context, id mailbox.EmailID, path mailbox.Path) error {
	database, err := s.database()
	if err != nil {
		return err
	}
	_, err = database.ReadWrite(ctx, func(tx *sql.Tx) (db.Outcome, error) {
		folderID, err := s.fetchFolderID(ctx, tx, path, false)
		if err != nil {
			return db.Rollback, err
		}
		var exists int64
		err = tx.QueryRowContext(ctx, "SELECT id FROM MessageTable WHERE id = ?", int64(id)).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return db.Rollback, lib.ErrMessageNotFound
		}
		if err != nil {
			return db.Rollback, err
		}
		if _, err = tx.ExecContext(ctx, "INSERT INTO MessageLocationTable (message_id, folder_id) VALUES (?, ?)", int64(id), folderID); err != nil {
			return db.Rollback, err
		}
		return db.Commit, nil
	})
	return err
}

// MarkForRemoval tombstones the location of a message in a folder. The row
// stays behind (and keeps counting toward unread arithmetic) until the
// removal is expunged.
func (s *Store) MarkForRemoval(ctx context.Context, id mailbox.EmailID, path mailbox.Path) error {
	return s.setRemoveMarker(ctx, id, path, 1)
}

// UnmarkForRemoval clears a tombstone, e.g. when an expunge fails remotely.
func (s *Store) UnmarkForRemoval(ctx context.Context, id mailbox.EmailID, path mailbox.Path) error {
	return s.setRemoveMarker(ctx, id, path, 0)
}

func (s *Store) setRemoveMarker(ctx context.Context, id mailbox.EmailID, path mailbox.Path, marker int) error {
	database, err := s.database()
	if err != nil {
		return err
	}
	_, err = database.ReadWrite(ctx, func(tx *sql.Tx) (db.Outcome, error) {
		folderID, err := s.fetchFolderID(ctx, tx, path, false)
		if err != nil {
			return db.Rollback, err
		}
		result, err := tx.ExecContext(ctx, "UPDATE MessageLocationTable SET remove_marker = ? WHERE message_id = ? AND folder_id = ?",
			marker, int64(id), folderID)
		if err != nil {
			return db.Rollback, err
		}
		if changed, err := result.RowsAffected(); err == nil && changed == 0 {
			return db.Rollback, lib.ErrMessageNotFound
		}
		return db.Commit, nil
	})
	return err
}

// FolderMessages returns every non-tombstoned message of a folder, oldest
// first.
func (s *Store) FolderMessages(ctx context.Context, path mailbox.Path) ([]*mailbox.Email, error) {
	database, err := s.database()
	if err != nil {
		return nil, err
	}
	var emails []*mailbox.Email
	err = database.ReadOnly(ctx, func(tx *sql.Tx) error {
		folderID, err := s.fetchFolderID(ctx, tx, path, false)
		if err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, `SELECT m.id, m.message_id, m.in_reply_to, m.internaldate_time_t,
				m.subject, m.from_field, m.receivers, m.cc, m.bcc, m.body, m.flags, m.fields
			FROM MessageTable m
			JOIN MessageLocationTable l ON l.message_id = m.id
			WHERE l.folder_id = ? AND l.remove_marker = 0
			ORDER BY m.internaldate_time_t`, folderID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			email, err := scanEmail(rows)
			if err != nil {
				return err
			}
			emails = append(emails, email)
		}
		if err = rows.Err(); err != nil {
			return err
		}
		for _, email := range emails {
			if email.Attachments, err = loadAttachments(ctx, tx, email.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return emails, nil
}

// attachmentColumn is the FTS-indexable rendition of the attachment set.
func attachmentColumn(attachments []mailbox.Attachment) string {
	if len(attachments) == 0 {
		return ""
	}
	names := make([]string, len(attachments))
	for i, attachment := range attachments {
		names[i] = attachment.Filename
	}
	return strings.Join(names, " ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmail(row rowScanner) (*mailbox.Email, error) {
	email := &mailbox.Email{}
	var id, fields int64
	var messageID, inReplyTo, subject, from, receivers, cc, bcc, body, flags sql.NullString
	var date sql.NullInt64
	err := row.Scan(&id, &messageID, &inReplyTo, &date, &subject, &from, &receivers, &cc, &bcc, &body, &flags, &fields)
	if err != nil {
		return nil, err
	}
	email.ID = mailbox.EmailID(id)
	email.MessageID = messageID.String
	email.InReplyTo = inReplyTo.String
	if date.Valid {
		email.InternalDate = time.Unix(date.Int64, 0).UTC()
	}
	email.Subject = subject.String
	email.From = from.String
	email.Receivers = receivers.String
	email.CC = cc.String
	email.BCC = bcc.String
	email.Body = body.String
	email.Flags = lib.SplitFlags(flags.String)
	email.Fields = mailbox.Fields(fields)
	return email, nil
}

func loadAttachments(ctx context.Context, tx *sql.Tx, id mailbox.EmailID) ([]mailbox.Attachment, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id, filename, mime_type, filesize FROM MessageAttachmentTable WHERE message_id = ?", int64(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var attachments []mailbox.Attachment
	for rows.Next() {
		var attachment mailbox.Attachment
		var filename, mimeType sql.NullString
		var filesize sql.NullInt64
		if err = rows.Scan(&attachment.ID, &filename, &mimeType, &filesize); err != nil {
			return nil, err
		}
		attachment.Filename = filename.String
		attachment.MimeType = mimeType.String
		attachment.Filesize = filesize.Int64
		attachments = append(attachments, attachment)
	}
	return attachments, rows.Err()
}
