package edit

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	diffHeaderRe = regexp.MustCompile(`^(?:---|\+\+\+)\s+[ab]/(.+)$`)
	hunkHeaderRe = regexp.MustCompile(`^@@\s+-(\d+)(?:,(\d+))?\s+\+(\d+)(?:,(\d+))?\s+@@`)
	jsonBlockRe  = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n```")
)

// ParseEdits decodes one LLM output blob into an ordered list of edit
// operations, trying unified diff, then direct JSON, then JSON inside a
// fenced code block. The first strategy to yield a non-empty result
// wins; if none do, ErrNoEditsFound.
func ParseEdits(output string) ([]Operation, error) {
	if edits := parseUnifiedDiff(output); len(edits) > 0 {
		return edits, nil
	}
	if edits := parseJSONEdits(output); len(edits) > 0 {
		return edits, nil
	}
	if block, ok := ExtractJSONBlock(output); ok {
		if edits := parseJSONEdits(block); len(edits) > 0 {
			return edits, nil
		}
	}
	return nil, ErrNoEditsFound
}

var backendHeaderRe = regexp.MustCompile(`(?m)^=== .+ ===\n?`)

// StripBackendHeaders removes "=== name ===" section headers the role
// executor's Parallel mode prepends to each backend's contribution,
// leaving the concatenated bodies. Used by callers that need to treat a
// multi-backend response as a single JSON-bearing blob.
func StripBackendHeaders(s string) string {
	return backendHeaderRe.ReplaceAllString(s, "")
}

// parseUnifiedDiff recognizes --- a/<p> / +++ b/<p> headers (the +++
// path is canonical) and @@ -o[,c] +n[,c] @@ hunk headers. A hunk line
// lacking any +/-/space prefix is treated as Context, tolerating lossy
// LLM reproductions of diffs.
func parseUnifiedDiff(input string) []Operation {
	var edits []Operation
	var currentPath string
	var haveCurrentPath bool
	var currentHunks []Hunk

	flush := func() {
		if haveCurrentPath && len(currentHunks) > 0 {
			edits = append(edits, Operation{Kind: KindUnifiedDiff, Path: currentPath, Hunks: currentHunks})
		}
		currentHunks = nil
		haveCurrentPath = false
	}

	lines := strings.Split(input, "\n")
	i := 0
	for i < len(lines) {
		line := lines[i]

		if m := diffHeaderRe.FindStringSubmatch(line); m != nil {
			if strings.HasPrefix(line, "+++") {
				flush()
				currentPath = m[1]
				haveCurrentPath = true
			}
			i++
			continue
		}

		if m := hunkHeaderRe.FindStringSubmatch(line); m != nil {
			oldStart := atoiOr(m[1], 1)
			oldCount := atoiOr(m[2], 1)
			newStart := atoiOr(m[3], 1)
			newCount := atoiOr(m[4], 1)
			i++

			var hunkLines []HunkLine
			for i < len(lines) {
				hl := lines[i]
				if strings.HasPrefix(hl, "@@") || strings.HasPrefix(hl, "---") ||
					strings.HasPrefix(hl, "+++") || strings.HasPrefix(hl, "diff ") {
					break
				}
				switch {
				case strings.HasPrefix(hl, "+"):
					hunkLines = append(hunkLines, HunkLine{Kind: Add, Text: hl[1:]})
				case strings.HasPrefix(hl, "-"):
					hunkLines = append(hunkLines, HunkLine{Kind: Remove, Text: hl[1:]})
				case strings.HasPrefix(hl, " "):
					hunkLines = append(hunkLines, HunkLine{Kind: Context, Text: hl[1:]})
				case hl == "" || hl == `\ No newline at end of file`:
					// skip
				default:
					hunkLines = append(hunkLines, HunkLine{Kind: Context, Text: hl})
				}
				i++
			}

			currentHunks = append(currentHunks, Hunk{
				OldStart: oldStart, OldCount: oldCount,
				NewStart: newStart, NewCount: newCount,
				Lines: hunkLines,
			})
			continue
		}

		i++
	}
	flush()
	return edits
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

// jsonEditDoc is the union of shapes recognized by parseJSONEdits:
// {path, old, new}, {path, content}, an array of either, or
// {edits: [...]}.
type jsonEditDoc struct {
	Path    string        `json:"path"`
	Old     string        `json:"old"`
	New     string        `json:"new"`
	Content string        `json:"content"`
	Edits   []jsonEditDoc `json:"edits"`
}

func (d jsonEditDoc) isOldNew() bool { return d.Old != "" || d.New != "" }

func (d jsonEditDoc) toOperation() Operation {
	if d.isOldNew() {
		return Operation{Kind: KindOldNewPair, Path: d.Path, Old: d.Old, New: d.New}
	}
	return Operation{Kind: KindWholeFile, Path: d.Path, Content: d.Content}
}

// parseJSONEdits requires the trimmed input to be valid JSON as a whole
// (gjson.Valid; trailing text makes it fail), uses gjson to sniff the
// top-level shape, and then decodes with encoding/json.
func parseJSONEdits(input string) []Operation {
	trimmed := strings.TrimSpace(input)
	if !gjson.Valid(trimmed) {
		return nil
	}

	if gjson.Get(trimmed, "edits").IsArray() {
		var doc jsonEditDoc
		if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
			return nil
		}
		edits := make([]Operation, 0, len(doc.Edits))
		for _, e := range doc.Edits {
			edits = append(edits, e.toOperation())
		}
		return edits
	}

	if gjson.Get(trimmed, "@this").IsArray() {
		var docs []jsonEditDoc
		if err := json.Unmarshal([]byte(trimmed), &docs); err != nil {
			return nil
		}
		edits := make([]Operation, 0, len(docs))
		for _, d := range docs {
			edits = append(edits, d.toOperation())
		}
		return edits
	}

	var doc jsonEditDoc
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return nil
	}
	if doc.Path == "" {
		return nil
	}
	return []Operation{doc.toOperation()}
}

// ExtractJSONBlock finds the first fenced code block (```json or plain
// ```) whose trimmed content looks like JSON (starts with { or [).
func ExtractJSONBlock(input string) (string, bool) {
	for _, m := range jsonBlockRe.FindAllStringSubmatch(input, -1) {
		content := strings.TrimSpace(m[1])
		if strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[") {
			return content, true
		}
	}
	return "", false
}

// NormalizeWhitespace strips trailing whitespace from each line while
// preserving leading indentation, the equivalence relation fuzzy
// matching in the diff applier is built on.
func NormalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Join(lines, "\n")
}
