package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gusrub/geary/lib"
	_ "github.com/mattn/go-sqlite3"
)

// Filename is the account database file inside the data directory.
const Filename = "geary.db"

// Outcome is returned by a transaction callback to decide the fate of the
// transaction.
type Outcome int

const (
	// Commit makes the writes of the callback permanent.
	Commit Outcome = iota
	// Rollback discards the writes of the callback. Rolling back is not an
	// error: logical precondition failures report it through the outcome.
	Rollback
	// Done reports a callback that made no changes. ReadWrite rolls the
	// transaction back and returns Done; ReadOnly callbacks return only an
	// error and do not use an Outcome.
	Done
)

type Options struct {
	// CreateDirectory creates the data directory when missing.
	CreateDirectory bool
	// CreateFile creates the database file when missing.
	CreateFile bool
	// CheckCorruption runs an integrity check right after opening.
	CheckCorruption bool
	Log             lib.Logger
}

// Database serializes all access to the single account database file.
// It is the sole writer: read-write transactions queue on an internal
// mutex. The pool holds a single connection, so read-only transactions
// also wait for the transaction in progress.
type Database struct {
	path    string
	db      *sql.DB
	writeMu sync.Mutex
	log     lib.Logger
}

// Open opens (or creates) the account database in dataDir and upgrades the
// schema. Extra upgrade scripts are picked up from schemaDir when it exists.
func Open(ctx context.Context, dataDir, schemaDir string, options Options) (*Database, error) {
	if options.CreateDirectory {
		if err := os.MkdirAll(dataDir, 0700); err != nil {
			return nil, fmt.Errorf("cannot create data directory %q: %w", dataDir, err)
		}
	}
	path := filepath.Join(dataDir, Filename)
	if !options.CreateFile {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("cannot open %q: %w", path, err)
		}
	}

	sqlite, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=10000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("cannot open %q: %w", path, err)
	}
	// a single connection keeps every transaction, read-only ones
	// included, strictly serialized
	sqlite.SetMaxOpenConns(1)

	database := &Database{
		path: path,
		db:   sqlite,
		log:  lib.DefaultLogger(options.Log),
	}

	if err = sqlite.PingContext(ctx); err != nil {
		sqlite.Close()
		return nil, fmt.Errorf("cannot open %q: %w", path, err)
	}

	if options.CheckCorruption {
		if err = database.integrityCheck(ctx); err != nil {
			sqlite.Close()
			return nil, err
		}
	}

	if err = database.upgrade(ctx, schemaDir); err != nil {
		sqlite.Close()
		return nil, err
	}
	return database, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) Path() string {
	return d.path
}

func (d *Database) integrityCheck(ctx context.Context) error {
	var result string
	err := d.db.QueryRowContext(ctx, "PRAGMA integrity_check(1)").Scan(&result)
	if err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("%w: %s", lib.ErrDatabaseCorrupt, result)
	}
	return nil
}

// ReadOnly runs fn inside a transaction that observes a consistent
// snapshot. The transaction is committed on success: a handful of read
// paths create folder rows on demand, and those must survive.
func (d *Database) ReadOnly(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ReadWrite runs fn inside a write transaction. The returned outcome is
// Commit or Rollback as decided by the callback; a Rollback outcome leaves
// no persistent state changed and is not an error.
func (d *Database) ReadWrite(ctx context.Context, fn func(tx *sql.Tx) (Outcome, error)) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Rollback, err
	}
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return Rollback, err
	}
	outcome, err := fn(tx)
	if err != nil {
		_ = tx.Rollback()
		return Rollback, err
	}
	if outcome == Commit {
		return outcome, tx.Commit()
	}
	return outcome, tx.Rollback()
}
