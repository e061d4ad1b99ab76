package obfuscatorio

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/deob"
	"github.com/tcortega/webcrack/internal/jsast"
	"github.com/tcortega/webcrack/internal/sandbox"
	"github.com/tcortega/webcrack/internal/transformer"
)

func runTarget(t *testing.T, p *ast.Program, eval sandbox.Evaluator) *transformer.State {
	t.Helper()
	target := NewTarget(Options{})
	c := &deob.Context{
		Tree:      p,
		State:     &transformer.State{},
		Evaluator: eval,
		Log:       slog.Default(),
		Debug:     slog.Default(),
	}
	require.NoError(t, target.Run(context.Background(), c))
	return c.State
}

func newEval(t *testing.T) sandbox.Evaluator {
	t.Helper()
	eval, err := sandbox.NewGoja()
	require.NoError(t, err)
	return eval
}

func TestDetectScoresStringArray(t *testing.T) {
	target := NewTarget(Options{})

	p := mustParse(t, `var _0x1 = ["a", "b", "c"];`)
	detection, err := target.Detect(p)
	require.NoError(t, err)
	assert.Equal(t, 0.5, detection.Confidence)

	plain := mustParse(t, `console.log("nothing to see");`)
	detection, err = target.Detect(plain)
	require.NoError(t, err)
	assert.Zero(t, detection.Confidence)
}

func TestHappyPath(t *testing.T) {
	// The canonical shape: IIFE-wrapped array, a decoder closing over it,
	// call sites feeding console.log.
	p := mustParse(t, `
		var f = (function () { var A = ["hello", "world"]; return function (i) { return A[i]; }; })();
		console.log(f(0) + " " + f(1));
	`)
	st := runTarget(t, p, newEval(t))

	out := jsast.Generate(p)
	assert.Contains(t, out, `"hello world"`)
	assert.NotContains(t, out, "var f")
	assert.NotContains(t, out, "var A")
	assert.Greater(t, st.Changes, 0)

	_, err := jsast.Parse(out)
	require.NoError(t, err, "output must reparse")
}

func TestRotatedArray(t *testing.T) {
	p := mustParse(t, `
		var words = ["gamma", "alpha", "beta"];
		(function (a, n) { while (n--) { a.push(a.shift()); } })(words, 0x1);
		function pick(i) { return words[i]; }
		console.log(pick(0x0));
	`)
	st := runTarget(t, p, newEval(t))

	out := jsast.Generate(p)
	assert.Contains(t, out, `"alpha"`, "rotation must run inside the sandbox")
	assert.NotContains(t, out, "push")
	assert.Greater(t, st.Changes, 0)
}

func TestBoundedStrings(t *testing.T) {
	// Property: every inlined literal equals, byte for byte, what the
	// decoder returns. The decoder output is "X".repeat(i), reproduced here
	// without the sandbox for comparison.
	source := `
		var parts = ["", "X", "XX", "XXX", "XXXX"];
		function rep(i) { return parts[i]; }
		log(rep(0), rep(1), rep(2), rep(3), rep(4));
	`
	p := mustParse(t, source)
	runTarget(t, p, newEval(t))

	out := jsast.Generate(p)
	for i := 0; i <= 4; i++ {
		want := fmt.Sprintf("%q", stringRepeat("X", i))
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "rep(")
}

func stringRepeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}

func TestNoEvaluatorIsNoOp(t *testing.T) {
	source := `var t = ["a", "b"]; function d(i) { return t[i]; } log(d(0));`
	p := mustParse(t, source)
	st := runTarget(t, p, nil)
	assert.Zero(t, st.Changes)

	roundTrip := mustParse(t, jsast.Generate(p))
	assert.NotNil(t, FindStringArray(roundTrip), "tree must be untouched")
}

func TestNoStringArrayIsNoOp(t *testing.T) {
	p := mustParse(t, `console.log("already readable");`)
	st := runTarget(t, p, newEval(t))
	assert.Zero(t, st.Changes)
}

func TestFailedCallLeftInPlace(t *testing.T) {
	// An out-of-range index makes the decoder return undefined, which is not
	// a string; that call survives while the in-range one is inlined. The
	// decoder infrastructure is still credited and removed.
	p := mustParse(t, `
		var t = ["a", "b"];
		function d(i) { return t[i]; }
		log(d(0), d(99));
	`)
	runTarget(t, p, newEval(t))

	out := jsast.Generate(p)
	assert.Contains(t, out, `"a"`)
	assert.Contains(t, out, "d(99)")
}

func TestChangeCreditForInfrastructure(t *testing.T) {
	p := mustParse(t, `
		var t = ["a", "b"];
		function d(i) { return t[i]; }
		log(d(0));
	`)
	st := runTarget(t, p, newEval(t))
	// One inlined string + the 2+|decoders| infrastructure credit, plus
	// whatever cleanup removes; the credit is a floor.
	assert.GreaterOrEqual(t, st.Changes, 1+2+1)
}

func TestPipelineIdempotent(t *testing.T) {
	p := mustParse(t, `
		var f = (function () { var A = ["hello", "world"]; return function (i) { return A[i]; }; })();
		console.log(f(0) + " " + f(1));
	`)
	runTarget(t, p, newEval(t))

	again := mustParse(t, jsast.Generate(p))
	st := runTarget(t, again, newEval(t))
	assert.Zero(t, st.Changes, "a second run must be a no-op")
}
