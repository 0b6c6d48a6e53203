// Package apply mutates a working tree from a stream of edit.Operation
// values, taking per-file backups so a failed verification can be
// undone (spec component C).
package apply

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ducks/llmux/core"
	"github.com/ducks/llmux/edit"
)

// MaxLineDrift bounds how far from a hunk's declared old_start the
// applier searches for an anchor before falling back to a full scan.
const MaxLineDrift = 3

// FileChange records one modified file's backup, so it can be restored.
type FileChange struct {
	Path       string
	BackupPath string
}

// Manifest is the result of one ApplyEdits call: every file that was
// backed up and modified, and every file that was newly created (which
// has no backup — rollback removes it instead).
type Manifest struct {
	Changed []FileChange
	Created []string
}

// Applier applies edit operations under a fixed working directory.
type Applier struct {
	WorkingDir string
	Logger     core.Logger
}

// New returns an Applier rooted at workingDir.
func New(workingDir string) *Applier {
	return &Applier{WorkingDir: workingDir, Logger: core.NoOpLogger{}}
}

func (a *Applier) logger() core.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return core.NoOpLogger{}
}

// ApplyEdits applies ops in order, returning the manifest of files
// touched. On the first error it returns immediately; files already
// written remain modified (the caller, i.e. the apply-verify loop, owns
// deciding whether to roll back).
func (a *Applier) ApplyEdits(ops []edit.Operation) (*Manifest, error) {
	m := &Manifest{}
	for _, op := range ops {
		var err error
		switch op.Kind {
		case edit.KindWholeFile:
			err = a.applyWholeFile(op, m)
		case edit.KindOldNewPair:
			err = a.applyOldNewPair(op, m)
		case edit.KindUnifiedDiff:
			err = a.applyUnifiedDiff(op, m)
		default:
			err = fmt.Errorf("apply: unknown operation kind %d", op.Kind)
		}
		if err != nil {
			a.logger().Warn("edit application failed", map[string]interface{}{
				"path": op.Path, "kind": op.Kind, "error": err.Error(),
			})
			return m, err
		}
	}
	return m, nil
}

func (a *Applier) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.WorkingDir, path)
}

func (a *Applier) applyWholeFile(op edit.Operation, m *Manifest) error {
	full := a.abs(op.Path)
	if _, err := os.Stat(full); err == nil {
		backup, err := a.backupFile(full)
		if err != nil {
			return err
		}
		m.Changed = append(m.Changed, FileChange{Path: full, BackupPath: backup})
	} else {
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return fmt.Errorf("apply: creating parent dirs for %s: %w", op.Path, err)
		}
		m.Created = append(m.Created, full)
	}
	return os.WriteFile(full, []byte(op.Content), 0o644)
}

func (a *Applier) applyOldNewPair(op edit.Operation, m *Manifest) error {
	full := a.abs(op.Path)
	raw, err := os.ReadFile(full)
	if err != nil {
		return fmt.Errorf("apply: reading %s: %w", op.Path, err)
	}
	content := string(raw)

	count := strings.Count(content, op.Old)
	switch {
	case count == 1:
		newContent := strings.Replace(content, op.Old, op.New, 1)
		if err := a.backupAndWrite(full, newContent, m); err != nil {
			return err
		}
		return nil
	case count > 1:
		return &AmbiguousMatchError{Path: op.Path, Count: count}
	}

	newContent, ok := fuzzyReplace(content, op.Old, op.New)
	if !ok {
		return &OldTextNotFoundError{Path: op.Path}
	}
	return a.backupAndWrite(full, newContent, m)
}

// fuzzyReplace finds a contiguous window of content's lines whose
// normalize_whitespace matches oldText's lines pairwise, and splices
// newText's lines in place of it.
func fuzzyReplace(content, oldText, newText string) (string, bool) {
	hadTrailingNewline := strings.HasSuffix(content, "\n")
	lines := splitLines(content)
	oldLines := splitLines(oldText)
	newLines := splitLines(newText)

	if len(oldLines) == 0 {
		return content, false
	}

	idx := findWindow(lines, oldLines, -1)
	if idx < 0 {
		return content, false
	}

	spliced := make([]string, 0, len(lines)-len(oldLines)+len(newLines))
	spliced = append(spliced, lines[:idx]...)
	spliced = append(spliced, newLines...)
	spliced = append(spliced, lines[idx+len(oldLines):]...)

	return joinLines(spliced, hadTrailingNewline), true
}

// findWindow returns the index of the first contiguous run in lines
// whose normalized text equals needle's, preferring a hit near
// preferredIdx (within MaxLineDrift) before scanning the whole slice.
// preferredIdx < 0 disables the localized search.
func findWindow(lines, needle []string, preferredIdx int) int {
	if len(needle) == 0 || len(needle) > len(lines) {
		return -1
	}

	matches := func(at int) bool {
		for i, n := range needle {
			if edit.NormalizeWhitespace(lines[at+i]) != edit.NormalizeWhitespace(n) {
				return false
			}
		}
		return true
	}

	if preferredIdx >= 0 {
		lo := preferredIdx - MaxLineDrift
		hi := preferredIdx + MaxLineDrift
		if lo < 0 {
			lo = 0
		}
		if hi > len(lines)-len(needle) {
			hi = len(lines) - len(needle)
		}
		for i := lo; i <= hi; i++ {
			if matches(i) {
				return i
			}
		}
	}

	for i := 0; i <= len(lines)-len(needle); i++ {
		if matches(i) {
			return i
		}
	}
	return -1
}

func (a *Applier) applyUnifiedDiff(op edit.Operation, m *Manifest) error {
	full := a.abs(op.Path)
	raw, err := os.ReadFile(full)
	if err != nil {
		return fmt.Errorf("apply: reading %s: %w", op.Path, err)
	}
	content := string(raw)
	hadTrailingNewline := strings.HasSuffix(content, "\n")
	lines := splitLines(content)

	hunks := make([]edit.Hunk, len(op.Hunks))
	copy(hunks, op.Hunks)
	sort.Slice(hunks, func(i, j int) bool { return hunks[i].OldStart > hunks[j].OldStart })

	for _, h := range hunks {
		oldLines, newLines := hunkSides(h)
		preferred := h.OldStart - 1
		idx := findWindow(lines, oldLines, preferred)
		if idx < 0 {
			return &HunkContextNotFoundError{Path: op.Path, OldStart: h.OldStart}
		}

		removeCount := len(oldLines)
		end := idx + removeCount
		if end > len(lines) {
			end = len(lines)
		}

		spliced := make([]string, 0, len(lines)-removeCount+len(newLines))
		spliced = append(spliced, lines[:idx]...)
		spliced = append(spliced, newLines...)
		spliced = append(spliced, lines[end:]...)
		lines = spliced
	}

	newContent := joinLines(lines, hadTrailingNewline)
	return a.backupAndWrite(full, newContent, m)
}

// hunkSides splits one hunk's lines into the pre-image (Context+Remove,
// in order) searched for in the file, and the post-image
// (Context+Add, in order) spliced in its place.
func hunkSides(h edit.Hunk) (oldLines, newLines []string) {
	for _, l := range h.Lines {
		switch l.Kind {
		case edit.Context:
			oldLines = append(oldLines, l.Text)
			newLines = append(newLines, l.Text)
		case edit.Remove:
			oldLines = append(oldLines, l.Text)
		case edit.Add:
			newLines = append(newLines, l.Text)
		}
	}
	return oldLines, newLines
}

func (a *Applier) backupAndWrite(full, newContent string, m *Manifest) error {
	backup, err := a.backupFile(full)
	if err != nil {
		return err
	}
	if err := os.WriteFile(full, []byte(newContent), 0o644); err != nil {
		return fmt.Errorf("apply: writing %s: %w", full, err)
	}
	m.Changed = append(m.Changed, FileChange{Path: full, BackupPath: backup})
	return nil
}

// backupFile copies full's current content to
// <working_dir>/.llmux/backups/<filename>.<unix_millis>.
func (a *Applier) backupFile(full string) (string, error) {
	raw, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("apply: backing up %s: %w", full, err)
	}
	backupDir := filepath.Join(a.WorkingDir, ".llmux", "backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", fmt.Errorf("apply: creating backup dir: %w", err)
	}
	backupPath := filepath.Join(backupDir, fmt.Sprintf("%s.%d", filepath.Base(full), time.Now().UnixMilli()))
	if err := os.WriteFile(backupPath, raw, 0o644); err != nil {
		return "", fmt.Errorf("apply: writing backup %s: %w", backupPath, err)
	}
	return backupPath, nil
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

func joinLines(lines []string, trailingNewline bool) string {
	var b bytes.Buffer
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l)
	}
	if trailingNewline && b.Len() > 0 {
		b.WriteByte('\n')
	}
	return b.String()
}
