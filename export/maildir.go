package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-maildir"

	"github.com/gusrub/geary/account"
	"github.com/gusrub/geary/lib"
	"github.com/gusrub/geary/mailbox"
)

// Folder dumps every cached message of a folder into a local maildir,
// creating it when needed. Returns the number of messages written.
func Folder(ctx context.Context, store *account.Store, path mailbox.Path, root string, logger lib.Logger) (int, error) {
	if runtime.GOOS == "windows" {
		return 0, errors.New("maildir is not supported on Windows")
	}
	log := lib.DefaultLogger(logger)

	emails, err := store.FolderMessages(ctx, path)
	if err != nil {
		return 0, err
	}

	if err = os.MkdirAll(root, 0700); err != nil {
		return 0, err
	}
	dir := maildir.Dir(root)
	if err = dir.Init(); err != nil {
		return 0, fmt.Errorf("cannot initialize maildir %q: %w", root, err)
	}

	written := 0
	for _, email := range emails {
		if err = ctx.Err(); err != nil {
			return written, err
		}
		_, writer, err := dir.Create(MaildirFlags(email.Flags))
		if err != nil {
			return written, err
		}
		if _, err = writer.Write([]byte(renderMessage(email))); err != nil {
			_ = writer.Close()
			return written, err
		}
		if err = writer.Close(); err != nil {
			return written, err
		}
		written++
		log.Printf("exported message %d (%s)", email.ID, email.Subject)
	}
	return written, nil
}

// renderMessage rebuilds an RFC 822 rendition from the cached fields. Only
// the fields the store carries survive the round trip; raw bodies live
// outside the account database.
func renderMessage(email *mailbox.Email) string {
	var b strings.Builder
	writeHeader := func(name, value string) {
		if value != "" {
			b.WriteString(name + ": " + value + "\r\n")
		}
	}
	writeHeader("Message-ID", email.MessageID)
	writeHeader("In-Reply-To", email.InReplyTo)
	writeHeader("From", email.From)
	writeHeader("To", email.Receivers)
	writeHeader("Cc", email.CC)
	writeHeader("Subject", email.Subject)
	if email.Fields.Satisfies(mailbox.FieldDate) {
		writeHeader("Date", email.InternalDate.Format("Mon, 02 Jan 2006 15:04:05 -0700"))
	}
	b.WriteString("\r\n")
	b.WriteString(email.Body)
	return b.String()
}

// MaildirFlags converts stored IMAP flags to maildir flags, the subset
// maildir can represent.
func MaildirFlags(flags []string) []maildir.Flag {
	output := make([]maildir.Flag, 0, len(flags))
	for _, flag := range flags {
		switch flag {
		case imap.SeenFlag:
			output = append(output, maildir.FlagSeen)
		case imap.AnsweredFlag:
			output = append(output, maildir.FlagReplied)
		case imap.FlaggedFlag:
			output = append(output, maildir.FlagFlagged)
		case imap.DraftFlag:
			output = append(output, maildir.FlagDraft)
		case imap.DeletedFlag:
			output = append(output, maildir.FlagTrashed)
		}
	}
	return output
}
