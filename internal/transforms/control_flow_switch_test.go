package transforms

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlFlowSwitchUnrolls(t *testing.T) {
	source := `
		var seq = "2|0|1".split("|"), step = 0;
		while (true) {
			switch (seq[step++]) {
				case "0": second(); continue;
				case "1": third(); continue;
				case "2": first(); continue;
			}
			break;
		}
	`
	out, changes := applyOne(t, ControlFlowSwitch(), source)
	assert.GreaterOrEqual(t, changes, 1)
	assert.NotContains(t, out, "switch")
	assert.NotContains(t, out, "seq")

	// Dispatch order 2, 0, 1 means first, second, third.
	posFirst := strings.Index(out, "first()")
	posSecond := strings.Index(out, "second()")
	posThird := strings.Index(out, "third()")
	require.True(t, posFirst >= 0 && posSecond >= 0 && posThird >= 0, "all bodies present: %q", out)
	assert.Less(t, posFirst, posSecond)
	assert.Less(t, posSecond, posThird)
}

func TestControlFlowSwitchBangBangLoop(t *testing.T) {
	source := `
		var seq = "1|0".split("|"), step = 0;
		while (!![]) {
			switch (seq[step++]) {
				case "0": b(); continue;
				case "1": a(); continue;
			}
			break;
		}
	`
	out, _ := applyOne(t, ControlFlowSwitch(), source)
	assert.NotContains(t, out, "switch")
	assert.Less(t, strings.Index(out, "a()"), strings.Index(out, "b()"))
}

func TestControlFlowSwitchLeavesRealLoops(t *testing.T) {
	source := `
		while (true) {
			switch (pick()) {
				case "0": a(); continue;
			}
			break;
		}
	`
	out, changes := applyOne(t, ControlFlowSwitch(), source)
	assert.Contains(t, out, "switch")
	assert.Zero(t, changes)
}

func TestControlFlowSwitchLeavesUnknownKeys(t *testing.T) {
	// A dispatch key with no matching case means the pattern is not the
	// flattener; leave it alone.
	source := `
		var seq = "0|9".split("|"), step = 0;
		while (true) {
			switch (seq[step++]) {
				case "0": a(); continue;
			}
			break;
		}
	`
	out, changes := applyOne(t, ControlFlowSwitch(), source)
	assert.Contains(t, out, "switch")
	assert.Zero(t, changes)
}
