package account

import (
	"strings"
	"unicode"
)

// anyField is the phrase-map key meaning "match any indexed field".
const anyField = ""

// searchFields maps the user-facing (localized) field names to the FTS
// columns they scope.
var searchFields = map[string]string{
	"attachment": "attachment",
	"bcc":        "bcc",
	"body":       "body",
	"cc":         "cc",
	"from":       "from_field",
	"subject":    "subject",
	"to":         "receivers",
}

// meKeyword is the localized word users type to mean themselves, as in
// "from:me".
const meKeyword = "me"

// SearchQuery compiles a human-typed query string into field-scoped FTS
// phrases. Compilation happens once; a second call is a no-op.
type SearchQuery struct {
	raw        string
	ownerEmail string
	compiled   bool
	phrases    map[string]string
}

func NewSearchQuery(raw, ownerEmail string) *SearchQuery {
	return &SearchQuery{
		raw:        raw,
		ownerEmail: ownerEmail,
	}
}

func (q *SearchQuery) Raw() string {
	return q.raw
}

// Phrases returns the compiled mapping from FTS column (anyField for
// unscoped tokens) to match phrase. An empty map means the query held
// nothing searchable.
func (q *SearchQuery) Phrases() map[string]string {
	q.compile()
	return q.phrases
}

func (q *SearchQuery) compile() {
	if q.compiled {
		return
	}
	q.compiled = true
	q.phrases = make(map[string]string)

	raw := q.raw
	// an unbalanced trailing quote would make the FTS parser choke
	if strings.Count(raw, `"`)%2 != 0 {
		last := strings.LastIndex(raw, `"`)
		raw = raw[:last] + " " + raw[last+1:]
	}

	for _, token := range tokenizeQuery(raw) {
		if token.quoted {
			// TODO: drop the colon workaround once quoted field scoping
			// is supported
			q.appendToken(anyField, strings.ReplaceAll(token.text, ":", " "))
			continue
		}
		text := token.text
		lower := strings.ToLower(text)
		if lower == "" || lower == "and" || lower == "or" || lower == "not" || lower == "near" ||
			strings.HasPrefix(lower, "near/") {
			continue
		}
		text = strings.TrimPrefix(text, "-")
		if text == "" {
			continue
		}
		field := anyField
		if colon := strings.Index(text, ":"); colon >= 0 {
			key, value := text[:colon], text[colon+1:]
			if strings.TrimSpace(value) == "" {
				text = key
			} else if column, ok := searchFields[strings.ToLower(key)]; ok {
				field = column
				text = value
				switch column {
				case "bcc", "cc", "from_field", "receivers":
					if strings.ToLower(value) == meKeyword {
						text = q.ownerEmail
					}
				}
			}
		}
		if text == "" {
			continue
		}
		q.appendToken(field, text)
	}
}

// appendToken adds a quoted prefix match for the token under field.
func (q *SearchQuery) appendToken(field, token string) {
	wrapped := `"` + token + `*"`
	if phrase, ok := q.phrases[field]; ok {
		q.phrases[field] = phrase + " " + wrapped
	} else {
		q.phrases[field] = wrapped
	}
}

type queryToken struct {
	text   string
	quoted bool
}

// tokenizeQuery splits on whitespace and the FTS delimiter set ()%*\ while
// tracking quoted state. Order is preserved.
func tokenizeQuery(raw string) []queryToken {
	var tokens []queryToken
	var current strings.Builder
	quoted := false

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, queryToken{text: current.String(), quoted: quoted})
			current.Reset()
		}
	}

	for _, r := range raw {
		switch {
		case r == '"':
			flush()
			quoted = !quoted
		case unicode.IsSpace(r), r == '(', r == ')', r == '%', r == '*', r == '\\':
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return tokens
}
