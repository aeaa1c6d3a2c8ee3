package mailbox

import "errors"

var ErrEmptyPath = errors.New("empty folder path")
