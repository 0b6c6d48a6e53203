package tmpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellEscapeSafeString(t *testing.T) {
	out, err := Render(baseCtx(), "{{ args.name | shell_escape }}")
	require.NoError(t, err)
	assert.Equal(t, "world", out)
}

func TestShellEscapeSpaces(t *testing.T) {
	ctx := baseCtx()
	ctx.Args["raw"] = "hello world"
	out, err := Render(ctx, "{{ args.raw | shell_escape }}")
	require.NoError(t, err)
	assert.Equal(t, "'hello world'", out)
}

func TestShellEscapeEmbeddedQuote(t *testing.T) {
	ctx := baseCtx()
	ctx.Args["raw"] = "it's a test"
	out, err := Render(ctx, "{{ args.raw | shell_escape }}")
	require.NoError(t, err)
	assert.Equal(t, `'it'\''s a test'`, out)
}

func TestFirstLastOnSequence(t *testing.T) {
	ctx := baseCtx()
	ctx.Args["items"] = []interface{}{"x", "y", "z"}
	out, err := Render(ctx, "{{ args.items | first }}-{{ args.items | last }}")
	require.NoError(t, err)
	assert.Equal(t, "x-z", out)
}

func TestFirstOnEmptySequenceIsUndefinedNotError(t *testing.T) {
	ctx := baseCtx()
	ctx.Args["items"] = []interface{}{}
	out, err := Render(ctx, "{{ args.items | first | default('none') }}")
	require.NoError(t, err)
	assert.Equal(t, "none", out)

	_, err = Render(ctx, "{{ args.items | first }}")
	require.Error(t, err)
}

func TestJoinFilterWithSeparator(t *testing.T) {
	ctx := baseCtx()
	ctx.Args["items"] = []interface{}{"a", "b", "c"}
	out, err := Render(ctx, "{{ args.items | join(' | ') }}")
	require.NoError(t, err)
	assert.Equal(t, "a | b | c", out)
}

func TestJoinFilterDefaultSeparator(t *testing.T) {
	ctx := baseCtx()
	ctx.Args["items"] = []interface{}{"a", "b"}
	out, err := Render(ctx, "{{ args.items | join }}")
	require.NoError(t, err)
	assert.Equal(t, "a, b", out)
}

func TestInOperatorOnSequence(t *testing.T) {
	ctx := baseCtx()
	ctx.Args["items"] = []interface{}{"a", "b"}
	ok, err := EvaluateCondition(ctx, "'a' in args.items")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestArithmeticOperators(t *testing.T) {
	ctx := baseCtx()
	out, err := Render(ctx, "{{ args.count * 2 + 1 }}")
	require.NoError(t, err)
	assert.Equal(t, "7", out)
}

func TestUnknownFilterErrors(t *testing.T) {
	_, err := Render(baseCtx(), "{{ args.name | notarealfilter }}")
	require.Error(t, err)
	var ferr *FilterError
	require.ErrorAs(t, err, &ferr)
}

func TestLinesFilter(t *testing.T) {
	ctx := baseCtx()
	ctx.Args["text"] = "line1\nline2\nline3"
	out, err := Render(ctx, "{{ args.text | lines | first }}")
	require.NoError(t, err)
	assert.Equal(t, "line1", out)
}

func TestStrftimeNow(t *testing.T) {
	out, err := Render(baseCtx(), `{{ "now" | strftime('%Y') }}`)
	require.NoError(t, err)
	assert.Len(t, out, 4)
}

func TestStrftimeRFC3339(t *testing.T) {
	ctx := baseCtx()
	ctx.Args["ts"] = "2026-02-14T12:34:56Z"
	out, err := Render(ctx, `{{ args.ts | strftime('%Y-%m-%d') }}`)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-14", out)
}

func TestTrimFilter(t *testing.T) {
	ctx := baseCtx()
	ctx.Args["raw"] = "  hello  "
	out, err := Render(ctx, "{{ args.raw | trim }}")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}
