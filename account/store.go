package account

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/gusrub/geary/db"
	"github.com/gusrub/geary/lib"
	"github.com/gusrub/geary/mailbox"
	"github.com/gusrub/geary/outbox"
)

// Store is the per-account mail store: the system of record for every read
// the client issues. The IMAP session layer writes folder and message state
// through it, the UI reads from it.
type Store struct {
	name       string
	ownerEmail string
	log        lib.Logger

	mu           sync.Mutex
	db           *db.Database
	registry     map[string]*folderEntry
	contacts     []mailbox.Contact
	outbox       *outbox.Outbox
	searchFolder *SearchFolder
	cancel       context.CancelFunc

	// OnEmailSent receives the id of every message the outbox reports as
	// sent. Set it before Open.
	OnEmailSent func(id uint64)
}

func New(name, ownerEmail string, logger lib.Logger) *Store {
	return &Store{
		name:       name,
		ownerEmail: ownerEmail,
		log:        lib.DefaultLogger(logger),
		registry:   make(map[string]*folderEntry),
	}
}

func (s *Store) Name() string {
	return s.name
}

func (s *Store) OwnerEmail() string {
	return s.ownerEmail
}

// Open opens the account database in dataDir, upgrading the schema as
// needed, and starts the background search indexer. Opening an already
// open store fails with ErrAlreadyOpen.
func (s *Store) Open(ctx context.Context, dataDir, schemaDir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return lib.ErrAlreadyOpen
	}

	database, err := db.Open(ctx, dataDir, schemaDir, db.Options{
		CreateDirectory: true,
		CreateFile:      true,
		CheckCorruption: true,
		Log:             s.log,
	})
	if err != nil {
		return err
	}

	// the IMAP Inbox predicate is case-insensitive, so a server rename or an
	// old bug can leave several case-variant roots behind; only the
	// canonical one survives
	_, err = database.ReadWrite(ctx, s.deleteDuplicateInboxes)
	if err != nil {
		database.Close()
		return err
	}

	contacts, err := loadContacts(ctx, database, s.log)
	if err != nil {
		database.Close()
		return err
	}

	sent, err := outbox.Open(filepath.Join(dataDir, outbox.Filename), s.log)
	if err != nil {
		database.Close()
		return err
	}
	sent.OnSent(func(message outbox.Message) {
		if s.OnEmailSent != nil {
			s.OnEmailSent(message.ID)
		}
	})

	s.db = database
	s.contacts = contacts
	s.outbox = sent
	s.searchFolder = newSearchFolder(s)

	indexerCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.runIndexer(indexerCtx)
	return nil
}

// Close is idempotent. The database handle is dropped even when closing it
// errors, the background indexer is canceled and the collaborators released.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil

	s.cancel()
	s.cancel = nil

	s.outbox.OnSent(nil)
	if closeErr := s.outbox.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	s.outbox = nil
	s.searchFolder = nil
	s.registry = make(map[string]*folderEntry)
	s.contacts = nil
	return err
}

// database returns the gateway, or ErrNotOpen.
func (s *Store) database() (*db.Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, lib.ErrNotOpen
	}
	return s.db, nil
}

// Outbox is the queued-send collaborator, nil when the store is closed.
func (s *Store) Outbox() *outbox.Outbox {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outbox
}

// SearchFolder is the virtual folder view over account-wide search
// results, nil when the store is closed.
func (s *Store) SearchFolder() *SearchFolder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchFolder
}

func (s *Store) deleteDuplicateInboxes(tx *sql.Tx) (db.Outcome, error) {
	rows, err := tx.Query("SELECT id, name FROM FolderTable WHERE parent_id IS NULL")
	if err != nil {
		return db.Rollback, err
	}
	defer rows.Close()

	var duplicates []int64
	for rows.Next() {
		var id int64
		var name string
		if err = rows.Scan(&id, &name); err != nil {
			return db.Rollback, err
		}
		if mailbox.IsInboxName(name) && name != mailbox.Inbox {
			duplicates = append(duplicates, id)
		}
	}
	if err = rows.Err(); err != nil {
		return db.Rollback, err
	}

	for _, id := range duplicates {
		s.log.Printf("deleting duplicate inbox folder id %d", id)
		if _, err = tx.Exec("DELETE FROM MessageLocationTable WHERE folder_id = ?", id); err != nil {
			return db.Rollback, err
		}
		if _, err = tx.Exec("DELETE FROM FolderTable WHERE id = ?", id); err != nil {
			return db.Rollback, err
		}
	}
	return db.Commit, nil
}

func loadContacts(ctx context.Context, database *db.Database, log lib.Logger) ([]mailbox.Contact, error) {
	var contacts []mailbox.Contact
	err := database.ReadOnly(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, "SELECT email, real_name, highest_importance, normalized_email, flags FROM ContactTable")
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var contact mailbox.Contact
			var realName, normalized, flags sql.NullString
			if err = rows.Scan(&contact.Email, &realName, &contact.HighestImportance, &normalized, &flags); err != nil {
				// one damaged row is not worth losing the whole address book
				log.Printf("skipping unreadable contact row: %v", err)
				continue
			}
			contact.RealName = realName.String
			contact.NormalizedEmail = normalized.String
			contact.Flags = lib.SplitFlags(flags.String)
			contacts = append(contacts, contact)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("cannot load contacts: %w", err)
	}
	return contacts, nil
}

// Contacts returns the address book loaded when the account was opened.
func (s *Store) Contacts() []mailbox.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	contacts := make([]mailbox.Contact, len(s.contacts))
	copy(contacts, s.contacts)
	return contacts
}

// UpdateContact inserts or refreshes a single address-book row.
func (s *Store) UpdateContact(ctx context.Context, contact mailbox.Contact) error {
	database, err := s.database()
	if err != nil {
		return err
	}
	_, err = database.ReadWrite(ctx, func(tx *sql.Tx) (db.Outcome, error) {
		_, err := tx.ExecContext(ctx, `INSERT INTO ContactTable (email, real_name, highest_importance, normalized_email, flags)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (email) DO UPDATE SET real_name = ?, highest_importance = ?, normalized_email = ?, flags = ?`,
			contact.Email, contact.RealName, contact.HighestImportance, mailbox.NormalizeEmail(contact.Email), lib.JoinFlags(contact.Flags),
			contact.RealName, contact.HighestImportance, mailbox.NormalizeEmail(contact.Email), lib.JoinFlags(contact.Flags))
		if err != nil {
			return db.Rollback, err
		}
		return db.Commit, nil
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.contacts {
		if s.contacts[i].Email == contact.Email {
			s.contacts[i] = contact
			return nil
		}
	}
	s.contacts = append(s.contacts, contact)
	return nil
}
