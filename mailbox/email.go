package mailbox

import "time"

// EmailID is the message row id, also the FTS docid.
type EmailID int64

// Fields records which logical parts of a message row have been populated.
// A row fetched from the server in pieces accumulates bits as headers,
// originators and body arrive.
type Fields uint16

const (
	FieldMessageID Fields = 1 << iota
	FieldInReplyTo
	FieldDate
	FieldOriginators
	FieldReceivers
	FieldSubject
	FieldBody
	FieldFlags
)

const FieldNone Fields = 0

const FieldAll = FieldMessageID | FieldInReplyTo | FieldDate | FieldOriginators |
	FieldReceivers | FieldSubject | FieldBody | FieldFlags

// RequiredForIndexing is the set of fields that fills every column of an
// FTS row. The search indexer does not check it: it indexes whatever fields
// a row has.
const RequiredForIndexing = FieldOriginators | FieldReceivers | FieldSubject | FieldBody

// Satisfies reports whether every bit of required is populated.
func (f Fields) Satisfies(required Fields) bool {
	return f&required == required
}

type Attachment struct {
	ID       int64
	Filename string
	MimeType string
	Filesize int64
}

// Email is a message row. Zero-valued fields are only meaningful when the
// corresponding Fields bit is set.
type Email struct {
	ID           EmailID
	MessageID    string
	InReplyTo    string
	InternalDate time.Time
	Subject      string
	From         string
	Receivers    string
	CC           string
	BCC          string
	Body         string
	Flags        []string
	Attachments  []Attachment
	Fields       Fields
}
