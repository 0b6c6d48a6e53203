package apply

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/ducks/llmux/edit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	full := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	return full
}

func TestApplyWholeFileCreatesNewFile(t *testing.T) {
	dir := t.TempDir()
	a := New(dir)
	m, err := a.ApplyEdits([]edit.Operation{
		{Kind: edit.KindWholeFile, Path: "new.txt", Content: "hello\n"},
	})
	require.NoError(t, err)
	assert.Empty(t, m.Changed)
	require.Len(t, m.Created, 1)

	got, err := os.ReadFile(filepath.Join(dir, "new.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(got))
}

func TestApplyWholeFileBacksUpExisting(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.txt", "old content\n")
	a := New(dir)
	m, err := a.ApplyEdits([]edit.Operation{
		{Kind: edit.KindWholeFile, Path: "x.txt", Content: "new content\n"},
	})
	require.NoError(t, err)
	require.Len(t, m.Changed, 1)
	backup, err := os.ReadFile(m.Changed[0].BackupPath)
	require.NoError(t, err)
	assert.Equal(t, "old content\n", string(backup))

	got, err := os.ReadFile(filepath.Join(dir, "x.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new content\n", string(got))
}

func TestApplyOldNewPairLiteralReplace(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "func old() {}\n")
	a := New(dir)
	_, err := a.ApplyEdits([]edit.Operation{
		{Kind: edit.KindOldNewPair, Path: "main.go", Old: "func old() {}", New: "func renewed() {}"},
	})
	require.NoError(t, err)
	got, _ := os.ReadFile(filepath.Join(dir, "main.go"))
	assert.Equal(t, "func renewed() {}\n", string(got))
}

// S2 from spec §8: trailing whitespace drift on the target line must
// not defeat the match.
func TestApplyOldNewPairFuzzyWhitespaceDrift(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.rs", "fn foo()   \nfn bar()\n")
	a := New(dir)
	_, err := a.ApplyEdits([]edit.Operation{
		{Kind: edit.KindOldNewPair, Path: "main.rs", Old: "fn foo()", New: "fn new()"},
	})
	require.NoError(t, err)
	got, _ := os.ReadFile(filepath.Join(dir, "main.rs"))
	lines := splitLines(string(got))
	assert.Equal(t, "fn new()", lines[0])
	assert.Equal(t, "fn bar()", lines[1])
}

func TestApplyOldNewPairAmbiguousMatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dup.txt", "x\nx\n")
	a := New(dir)
	_, err := a.ApplyEdits([]edit.Operation{
		{Kind: edit.KindOldNewPair, Path: "dup.txt", Old: "x", New: "y"},
	})
	var ambErr *AmbiguousMatchError
	require.ErrorAs(t, err, &ambErr)
	assert.Equal(t, 2, ambErr.Count)
}

func TestApplyOldNewPairNotFound(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "f.txt", "hello\n")
	a := New(dir)
	_, err := a.ApplyEdits([]edit.Operation{
		{Kind: edit.KindOldNewPair, Path: "f.txt", Old: "nope", New: "y"},
	})
	var nfErr *OldTextNotFoundError
	require.ErrorAs(t, err, &nfErr)
}

// S3 from spec §8: two hunks applied in reverse old_start order must
// both land correctly against the original line numbers.
func TestApplyUnifiedDiffReverseOrderHunks(t *testing.T) {
	dir := t.TempDir()
	var lines []string
	for i := 1; i <= 20; i++ {
		lines = append(lines, "line"+strconv.Itoa(i))
	}
	content := joinLines(lines, true)
	writeFile(t, dir, "big.txt", content)

	a := New(dir)
	_, err := a.ApplyEdits([]edit.Operation{
		{
			Kind: edit.KindUnifiedDiff,
			Path: "big.txt",
			Hunks: []edit.Hunk{
				{OldStart: 2, OldCount: 1, NewStart: 2, NewCount: 0, Lines: []edit.HunkLine{
					{Kind: edit.Remove, Text: "line2"},
				}},
				{OldStart: 15, OldCount: 1, NewStart: 14, NewCount: 0, Lines: []edit.HunkLine{
					{Kind: edit.Remove, Text: "line15"},
				}},
			},
		},
	})
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "big.txt"))
	require.NoError(t, err)
	gotLines := splitLines(string(got))
	assert.Len(t, gotLines, 18)
	assert.NotContains(t, gotLines, "line2")
	assert.NotContains(t, gotLines, "line15")
}

func TestApplyUnifiedDiffContextNotFound(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "f.txt", "a\nb\nc\n")
	a := New(dir)
	_, err := a.ApplyEdits([]edit.Operation{
		{
			Kind: edit.KindUnifiedDiff,
			Path: "f.txt",
			Hunks: []edit.Hunk{
				{OldStart: 1, OldCount: 1, NewStart: 1, NewCount: 1, Lines: []edit.HunkLine{
					{Kind: edit.Remove, Text: "zzz-not-present"},
				}},
			},
		},
	})
	var hcErr *HunkContextNotFoundError
	require.ErrorAs(t, err, &hcErr)
}

func TestApplyUnifiedDiffToleratesWhitespaceDrift(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "f.txt", "alpha  \nbeta\ngamma\n")
	a := New(dir)
	_, err := a.ApplyEdits([]edit.Operation{
		{
			Kind: edit.KindUnifiedDiff,
			Path: "f.txt",
			Hunks: []edit.Hunk{
				{OldStart: 1, OldCount: 1, NewStart: 1, NewCount: 1, Lines: []edit.HunkLine{
					{Kind: edit.Remove, Text: "alpha"},
					{Kind: edit.Add, Text: "ALPHA"},
				}},
			},
		},
	})
	require.NoError(t, err)
	got, _ := os.ReadFile(filepath.Join(dir, "f.txt"))
	lines := splitLines(string(got))
	assert.Equal(t, "ALPHA", lines[0])
}
