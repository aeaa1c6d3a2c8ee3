package account

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/gusrub/geary/db"
	"github.com/gusrub/geary/mailbox"
)

const (
	// indexerStartDelay keeps the backfill out of the way of the first
	// interactive operations after open.
	indexerStartDelay = 30 * time.Second
	indexerBatchSize  = 100
	// indexerBatchInterval shapes load between batches so interactive
	// work does not starve.
	indexerBatchInterval = 50 * time.Millisecond
)

// runIndexer waits out the start delay, then backfills the search index.
// Canceled promptly when the store closes.
func (s *Store) runIndexer(ctx context.Context) {
	timer := time.NewTimer(indexerStartDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	err := s.PopulateSearchIndex(ctx, nil)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Printf("search index population failed: %v", err)
	}
}

// PopulateSearchIndex indexes every message missing from the search table,
// in bounded batches, yielding between batches. The progress monitor is
// finished on every exit path, cancellation included.
func (s *Store) PopulateSearchIndex(ctx context.Context, progress db.ProgressMonitor) error {
	if progress == nil {
		progress = db.NopProgress{}
	}
	defer progress.Finish()

	database, err := s.database()
	if err != nil {
		return err
	}

	var total int64
	err = database.ReadOnly(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM MessageTable").Scan(&total)
	})
	if err != nil {
		return err
	}
	progress.Start(total)

	limiter := rate.NewLimiter(rate.Every(indexerBatchInterval), 1)
	for {
		processed, err := s.populateBatch(ctx, database, indexerBatchSize)
		if err != nil {
			return err
		}
		progress.Advance(int64(processed))
		if processed < indexerBatchSize {
			return nil
		}
		if err = limiter.Wait(ctx); err != nil {
			return err
		}
	}
}

// populateBatch indexes up to limit unindexed messages in one write
// transaction. A row that cannot be loaded or inserted is logged and
// skipped: an index gap is tolerable, losing the batch is not.
func (s *Store) populateBatch(ctx context.Context, database *db.Database, limit int) (int, error) {
	processed := 0
	_, err := database.ReadWrite(ctx, func(tx *sql.Tx) (db.Outcome, error) {
		rows, err := tx.QueryContext(ctx,
			"SELECT id FROM MessageTable WHERE id NOT IN (SELECT docid FROM MessageSearchTable) LIMIT ?", limit)
		if err != nil {
			return db.Rollback, err
		}
		var ids []mailbox.EmailID
		for rows.Next() {
			var id int64
			if err = rows.Scan(&id); err != nil {
				rows.Close()
				return db.Rollback, err
			}
			ids = append(ids, mailbox.EmailID(id))
		}
		if err = rows.Err(); err != nil {
			rows.Close()
			return db.Rollback, err
		}
		rows.Close()

		for _, id := range ids {
			if err = s.indexMessage(ctx, tx, id); err != nil {
				s.log.Printf("cannot index message %d: %v", id, err)
			}
		}
		processed = len(ids)
		return db.Commit, nil
	})
	return processed, err
}

func (s *Store) indexMessage(ctx context.Context, tx *sql.Tx, id mailbox.EmailID) error {
	row := tx.QueryRowContext(ctx, `SELECT id, message_id, in_reply_to, internaldate_time_t,
			subject, from_field, receivers, cc, bcc, body, flags, fields
		FROM MessageTable WHERE id = ?`, int64(id))
	email, err := scanEmail(row)
	if err != nil {
		return err
	}
	if email.Attachments, err = loadAttachments(ctx, tx, id); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO MessageSearchTable
		(docid, body, attachment, subject, from_field, receivers, cc, bcc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(id), email.Body, attachmentColumn(email.Attachments), email.Subject,
		email.From, email.Receivers, email.CC, email.BCC)
	return err
}
