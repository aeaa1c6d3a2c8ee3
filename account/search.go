package account

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gusrub/geary/mailbox"
)

// SearchResult identifies one search hit. The (row id, internal date) pair
// is what callers hold onto for stable pagination.
type SearchResult struct {
	ID           mailbox.EmailID
	InternalDate int64
}

// Search runs the compiled query against the FTS index and returns hits
// ordered by internal date, newest first. A zero limit means no limit and
// drops the pagination binds. folderBlacklist excludes messages contained
// in the named folders (a nil entry excludes folderless messages);
// searchIDs, when non-empty, restricts hits to that id set. Returns nil
// when nothing matches.
func (s *Store) Search(ctx context.Context, query *SearchQuery, limit, offset int,
	folderBlacklist []mailbox.Path, searchIDs []mailbox.EmailID) ([]SearchResult, error) {
	database, err := s.database()
	if err != nil {
		return nil, err
	}
	phrases := query.Phrases()
	if len(phrases) == 0 {
		return nil, nil
	}

	var results []SearchResult
	err = database.ReadOnly(ctx, func(tx *sql.Tx) error {
		blacklist, err := s.blacklistSubSelect(ctx, tx, folderBlacklist)
		if err != nil {
			return err
		}

		// without the forced index the planner scans the whole message
		// table to satisfy the ORDER BY, which is hopeless on large
		// mailboxes
		var b strings.Builder
		b.WriteString("SELECT id, internaldate_time_t FROM MessageTable INDEXED BY MessageTableInternalDateTimeTIndex WHERE 1 = 1")
		var args []any
		for _, field := range sortedFields(phrases) {
			if field == anyField {
				b.WriteString(" AND id IN (SELECT docid FROM MessageSearchTable WHERE MessageSearchTable MATCH ?)")
			} else {
				fmt.Fprintf(&b, " AND id IN (SELECT docid FROM MessageSearchTable WHERE %s MATCH ?)", field)
			}
			args = append(args, phrases[field])
		}
		if blacklist != "" {
			b.WriteString(" AND id NOT IN (" + blacklist + ")")
		}
		if len(searchIDs) > 0 {
			b.WriteString(" AND id IN (" + idList(searchIDs) + ")")
		}
		b.WriteString(" ORDER BY internaldate_time_t DESC")
		if limit > 0 {
			b.WriteString(" LIMIT ? OFFSET ?")
			args = append(args, limit, offset)
		}

		rows, err := tx.QueryContext(ctx, b.String(), args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var result SearchResult
			var date sql.NullInt64
			if err = rows.Scan(&result.ID, &date); err != nil {
				return err
			}
			result.InternalDate = date.Int64
			results = append(results, result)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results, nil
}

// blacklistSubSelect builds the sub-select excluding blacklisted folders.
// Paths are resolved with creation on demand so the exclusion stays stable
// across early startup, before the session layer has cloned the folder.
func (s *Store) blacklistSubSelect(ctx context.Context, tx *sql.Tx, folderBlacklist []mailbox.Path) (string, error) {
	var folderIDs []int64
	folderless := false
	for _, path := range folderBlacklist {
		if path == nil {
			folderless = true
			continue
		}
		id, err := s.fetchFolderID(ctx, tx, path, true)
		if err != nil {
			return "", err
		}
		folderIDs = append(folderIDs, id)
	}

	var clauses []string
	if len(folderIDs) > 0 {
		ids := make([]string, len(folderIDs))
		for i, id := range folderIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		clauses = append(clauses,
			"SELECT message_id FROM MessageLocationTable WHERE remove_marker = 0 AND folder_id IN ("+strings.Join(ids, ", ")+")")
	}
	if folderless {
		clauses = append(clauses,
			"SELECT id FROM MessageTable WHERE id NOT IN (SELECT message_id FROM MessageLocationTable WHERE remove_marker = 0)")
	}
	return strings.Join(clauses, " UNION "), nil
}

// SearchMatches returns the literal substrings that caused ids to match
// the query, lowercased, for result highlighting.
func (s *Store) SearchMatches(ctx context.Context, query *SearchQuery, ids []mailbox.EmailID) ([]string, error) {
	database, err := s.database()
	if err != nil {
		return nil, err
	}
	phrases := query.Phrases()
	if len(phrases) == 0 || len(ids) == 0 {
		return nil, nil
	}

	matches := make(map[string]struct{})
	err = database.ReadOnly(ctx, func(tx *sql.Tx) error {
		for _, field := range sortedFields(phrases) {
			scope := field
			if scope == anyField {
				scope = "MessageSearchTable"
			}
			rows, err := tx.QueryContext(ctx,
				"SELECT offsets(MessageSearchTable), body, attachment, subject, from_field, receivers, cc, bcc"+
					" FROM MessageSearchTable WHERE docid IN ("+idList(ids)+") AND "+scope+" MATCH ?",
				phrases[field])
			if err != nil {
				return err
			}
			for rows.Next() {
				var offsets string
				columns := make([]sql.NullString, 7)
				if err = rows.Scan(&offsets, &columns[0], &columns[1], &columns[2], &columns[3], &columns[4], &columns[5], &columns[6]); err != nil {
					rows.Close()
					return err
				}
				collectOffsetMatches(offsets, columns, matches)
			}
			if err = rows.Err(); err != nil {
				rows.Close()
				return err
			}
			rows.Close()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// the FTS tokenizer drops pieces like the local part of an email
	// address; the raw words paper over that for highlighting
	for _, word := range strings.Fields(query.Raw()) {
		word = strings.Trim(word, `"`)
		if word != "" {
			matches[strings.ToLower(word)] = struct{}{}
		}
	}

	if len(matches) == 0 {
		return nil, nil
	}
	list := make([]string, 0, len(matches))
	for match := range matches {
		list = append(list, match)
	}
	sort.Strings(list)
	return list, nil
}

// collectOffsetMatches parses the FTS offsets() output: whitespace-joined
// quadruples of (column, term, byte offset, size). A malformed value means
// no matches for the row, not a failure.
func collectOffsetMatches(offsets string, columns []sql.NullString, matches map[string]struct{}) {
	fields := strings.Fields(offsets)
	if len(fields)%4 != 0 {
		return
	}
	for i := 0; i+3 < len(fields); i += 4 {
		column, err1 := strconv.Atoi(fields[i])
		offset, err2 := strconv.Atoi(fields[i+2])
		size, err3 := strconv.Atoi(fields[i+3])
		if err1 != nil || err2 != nil || err3 != nil {
			return
		}
		if column < 0 || column >= len(columns) {
			continue
		}
		text := columns[column].String
		if offset < 0 || size < 0 || offset+size > len(text) {
			continue
		}
		matches[strings.ToLower(text[offset:offset+size])] = struct{}{}
	}
}

func sortedFields(phrases map[string]string) []string {
	fields := make([]string, 0, len(phrases))
	for field := range phrases {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

func idList(ids []mailbox.EmailID) string {
	list := make([]string, len(ids))
	for i, id := range ids {
		list[i] = strconv.FormatInt(int64(id), 10)
	}
	return strings.Join(list, ", ")
}
