package transforms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcortega/webcrack/internal/jsast"
	"github.com/tcortega/webcrack/internal/transformer"
)

func applyOne(t *testing.T, tr *transformer.Transform, source string) (string, int) {
	t.Helper()
	p, err := jsast.Parse(source)
	require.NoError(t, err)
	st := &transformer.State{}
	changes, err := transformer.Apply(p, tr, st)
	require.NoError(t, err)
	out := jsast.Generate(p)
	_, err = jsast.Parse(out)
	require.NoError(t, err, "output must reparse: %q", out)
	return out, changes
}

func TestMergeStringsPair(t *testing.T) {
	out, changes := applyOne(t, MergeStrings(), `var s = "hello" + " world";`)
	assert.Contains(t, out, `"hello world"`)
	assert.Equal(t, 1, changes)
}

func TestMergeStringsChain(t *testing.T) {
	out, changes := applyOne(t, MergeStrings(), `console.log("hello" + " " + "world");`)
	assert.Contains(t, out, `"hello world"`)
	assert.Equal(t, 2, changes)
}

func TestMergeStringsLeavesMixed(t *testing.T) {
	out, changes := applyOne(t, MergeStrings(), `var s = "a" + b;`)
	assert.Contains(t, out, `"a" + b`)
	assert.Zero(t, changes)
}

func TestMergeStringsLeavesNumbers(t *testing.T) {
	_, changes := applyOne(t, MergeStrings(), `var s = 1 + 2;`)
	assert.Zero(t, changes)
}

func TestMergeStringsIdempotent(t *testing.T) {
	p, err := jsast.Parse(`var s = "a" + "b" + "c";`)
	require.NoError(t, err)
	st := &transformer.State{}
	_, err = transformer.Apply(p, MergeStrings(), st)
	require.NoError(t, err)
	again := &transformer.State{}
	changes, err := transformer.Apply(p, MergeStrings(), again)
	require.NoError(t, err)
	assert.Zero(t, changes)
}
