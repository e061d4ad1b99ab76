package transforms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestControlFlowObjectInlinesCalls(t *testing.T) {
	source := `
		var helper = {
			add: function (a, b) { return a + b; },
			txt: "value"
		};
		use(helper.add(x, y));
	`
	out, changes := applyOne(t, ControlFlowObject(), source)
	assert.Contains(t, out, "use(x + y)")
	assert.NotContains(t, out, "helper")
	assert.GreaterOrEqual(t, changes, 1)
}

func TestControlFlowObjectInlinesStringReads(t *testing.T) {
	source := `
		var table = { KEY: "payload", OTHER: "rest" };
		use(table.KEY, table["OTHER"]);
	`
	out, _ := applyOne(t, ControlFlowObject(), source)
	assert.Contains(t, out, `"payload"`)
	assert.Contains(t, out, `"rest"`)
	assert.NotContains(t, out, "table")
}

func TestControlFlowObjectLeavesComplexFunctions(t *testing.T) {
	source := `
		var keep = {
			f: function (a) { log(a); return a; }
		};
		keep.f(1);
	`
	out, changes := applyOne(t, ControlFlowObject(), source)
	assert.Contains(t, out, "keep.f(1)")
	assert.Zero(t, changes)
}

func TestControlFlowObjectLeavesPartialMatches(t *testing.T) {
	// A property that is not a literal or simple function disqualifies the
	// whole object.
	source := `
		var mixed = { a: "x", b: compute() };
		use(mixed.a);
	`
	out, changes := applyOne(t, ControlFlowObject(), source)
	assert.Contains(t, out, "mixed.a")
	assert.Zero(t, changes)
}

func TestControlFlowObjectKeepsUsedDeclaration(t *testing.T) {
	// One remaining dynamic use keeps the declaration alive.
	source := `
		var half = { a: "x", b: "y" };
		use(half.a);
		dynamic(half);
	`
	out, _ := applyOne(t, ControlFlowObject(), source)
	assert.Contains(t, out, `"x"`)
	assert.Contains(t, out, "var half")
}
