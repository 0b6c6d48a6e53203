package apply

import (
	"fmt"

	"github.com/ducks/llmux/core"
)

// AmbiguousMatchError is returned when a literal OldNewPair.Old appears
// more than once in the target file.
type AmbiguousMatchError struct {
	Path  string
	Count int
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("%s: old text matches %d times, expected exactly one", e.Path, e.Count)
}

func (e *AmbiguousMatchError) ErrorKind() core.Kind { return core.KindApply }

// OldTextNotFoundError is returned when neither a literal nor a
// line-aligned fuzzy match of OldNewPair.Old can be located.
type OldTextNotFoundError struct {
	Path string
}

func (e *OldTextNotFoundError) Error() string {
	return fmt.Sprintf("%s: old text not found", e.Path)
}

func (e *OldTextNotFoundError) ErrorKind() core.Kind { return core.KindApply }

// HunkContextNotFoundError is returned when a unified-diff hunk's
// context/removed lines cannot be anchored anywhere in the file.
type HunkContextNotFoundError struct {
	Path     string
	OldStart int
}

func (e *HunkContextNotFoundError) Error() string {
	return fmt.Sprintf("%s: hunk context not found near line %d", e.Path, e.OldStart)
}

func (e *HunkContextNotFoundError) ErrorKind() core.Kind { return core.KindApply }
