package edit

import "errors"

// ErrNoEditsFound is returned when none of the three parsing strategies
// recognize anything in the input blob.
var ErrNoEditsFound = errors.New("no edits found in output")
