package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// The built-in schema, one script per version. The script at index i
// upgrades to schema version i+1, tracked in PRAGMA user_version.
var migrations = []string{
	`
CREATE TABLE FolderTable (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	parent_id INTEGER REFERENCES FolderTable(id),
	name TEXT NOT NULL,
	attributes TEXT,
	last_seen_total INTEGER,
	last_seen_status_total INTEGER,
	uid_validity INTEGER,
	uid_next INTEGER,
	unread_count INTEGER NOT NULL DEFAULT 0,
	UNIQUE (parent_id, name)
);

CREATE TABLE MessageTable (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id TEXT,
	in_reply_to TEXT,
	internaldate_time_t INTEGER,
	subject TEXT,
	from_field TEXT,
	receivers TEXT,
	cc TEXT,
	bcc TEXT,
	body TEXT,
	attachment TEXT,
	flags TEXT,
	fields INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX MessageTableInternalDateTimeTIndex ON MessageTable(internaldate_time_t);
CREATE INDEX MessageTableMessageIDIndex ON MessageTable(message_id);

CREATE TABLE MessageLocationTable (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id INTEGER NOT NULL REFERENCES MessageTable(id),
	folder_id INTEGER NOT NULL REFERENCES FolderTable(id),
	remove_marker INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX MessageLocationTableMessageIDIndex ON MessageLocationTable(message_id);
CREATE INDEX MessageLocationTableFolderIDIndex ON MessageLocationTable(folder_id);

CREATE TABLE MessageAttachmentTable (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id INTEGER NOT NULL REFERENCES MessageTable(id),
	filename TEXT,
	mime_type TEXT,
	filesize INTEGER
);

CREATE INDEX MessageAttachmentTableMessageIDIndex ON MessageAttachmentTable(message_id);

CREATE VIRTUAL TABLE MessageSearchTable USING fts4(
	body,
	attachment,
	subject,
	from_field,
	receivers,
	cc,
	bcc
);

CREATE TABLE ContactTable (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	real_name TEXT,
	highest_importance INTEGER NOT NULL DEFAULT 0,
	normalized_email TEXT,
	flags TEXT
);

CREATE INDEX ContactTableNormalizedEmailIndex ON ContactTable(normalized_email);
`,
}

// SearchColumns is the MessageSearchTable column order. The offsets()
// output indexes columns by this position.
var SearchColumns = []string{"body", "attachment", "subject", "from_field", "receivers", "cc", "bcc"}

func (d *Database) upgrade(ctx context.Context, schemaDir string) error {
	scripts := make([]string, len(migrations))
	copy(scripts, migrations)

	extra, err := loadSchemaDir(schemaDir)
	if err != nil {
		return err
	}
	scripts = append(scripts, extra...)

	var version int
	if err = d.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("cannot read schema version: %w", err)
	}
	if version > len(scripts) {
		return fmt.Errorf("schema version %d is newer than this build understands", version)
	}

	for ; version < len(scripts); version++ {
		d.log.Printf("upgrading schema to version %d", version+1)
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, scripts[version]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("schema upgrade to version %d failed: %w", version+1, err)
		}
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version+1)); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err = tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// loadSchemaDir returns the numbered upgrade scripts from dir, sorted by
// file name. A missing directory is fine: the built-in schema is enough
// for a fresh account.
func loadSchemaDir(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot read schema directory %q: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	scripts := make([]string, 0, len(names))
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("cannot read schema script %q: %w", name, err)
		}
		scripts = append(scripts, string(content))
	}
	return scripts, nil
}
