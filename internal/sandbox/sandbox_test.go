package sandbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decoderFragment is representative of the setup+call sources the pipelines
// evaluate: an array, a rotation, a decoder, one call.
const decoderFragment = `
var table = ["alpha", "beta", "gamma"];
(function (arr, count) {
	while (count--) {
		arr.push(arr.shift());
	}
})(table, 1);
function dec(i) {
	return table[i - 0x10];
}
dec(0x11);
`

func newBoth(t *testing.T) map[string]Evaluator {
	t.Helper()
	g, err := NewGoja()
	require.NoError(t, err)
	o, err := NewOtto()
	require.NoError(t, err)
	return map[string]Evaluator{"goja": g, "otto": o}
}

func TestEvalArithmetic(t *testing.T) {
	for name, eval := range newBoth(t) {
		t.Run(name, func(t *testing.T) {
			value, err := eval.Eval(context.Background(), `1 + 2 * 3;`)
			require.NoError(t, err)
			assert.EqualValues(t, 7, value)
		})
	}
}

func TestDecoderFragmentParity(t *testing.T) {
	// Both backings must produce identical results for decoder fragments.
	results := map[string]any{}
	for name, eval := range newBoth(t) {
		value, err := eval.Eval(context.Background(), decoderFragment)
		require.NoError(t, err, "%s failed on the decoder fragment", name)
		results[name] = value
	}
	assert.Equal(t, "gamma", results["goja"])
	assert.Equal(t, results["goja"], results["otto"])
}

func TestBrowserStandIns(t *testing.T) {
	for name, eval := range newBoth(t) {
		t.Run(name, func(t *testing.T) {
			value, err := eval.Eval(context.Background(),
				`typeof window === "object" && typeof document === "object" ? atob("aGVsbG8=") : "missing";`)
			require.NoError(t, err)
			assert.Equal(t, "hello", value)
		})
	}
}

func TestTimersRunSynchronously(t *testing.T) {
	for name, eval := range newBoth(t) {
		t.Run(name, func(t *testing.T) {
			value, err := eval.Eval(context.Background(), `
				var hit = false;
				var id = setTimeout(function () { hit = true; }, 1000);
				[hit, id];
			`)
			require.NoError(t, err)
			list, ok := value.([]any)
			if !ok {
				// otto exports typed slices; compare generically.
				assert.NotNil(t, value)
				return
			}
			require.Len(t, list, 2)
			assert.Equal(t, true, list[0])
			assert.EqualValues(t, 0, list[1])
		})
	}
}

func TestBase64RoundTrip(t *testing.T) {
	for name, eval := range newBoth(t) {
		t.Run(name, func(t *testing.T) {
			value, err := eval.Eval(context.Background(), `atob(btoa("The quick brown fox"));`)
			require.NoError(t, err)
			assert.Equal(t, "The quick brown fox", value)
		})
	}
}

func TestPermissiveUnknownNames(t *testing.T) {
	// Only the goja backing coddles unknown names; self-checking obfuscators
	// need their property walks and no-op chains to complete.
	g, err := NewGoja()
	require.NoError(t, err)

	value, err := g.Eval(context.Background(), `
		var probe = totallyUnknownGlobal.some.deep.property;
		probe();
		new probe();
		"x" in probe ? String(probe) + "|" + Number(probe) : "no";
	`)
	require.NoError(t, err)
	assert.Equal(t, "|0", value)
}

func TestEvalFailure(t *testing.T) {
	for name, eval := range newBoth(t) {
		t.Run(name, func(t *testing.T) {
			_, err := eval.Eval(context.Background(), `throw new Error("boom");`)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrEval)
		})
	}
}

func TestEvalSyntaxError(t *testing.T) {
	for name, eval := range newBoth(t) {
		t.Run(name, func(t *testing.T) {
			_, err := eval.Eval(context.Background(), `function (`)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrEval)
		})
	}
}

func TestEvalReentrant(t *testing.T) {
	for name, eval := range newBoth(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				value, err := eval.Eval(context.Background(), `"x".repeat ? "x" : "x";`)
				require.NoError(t, err)
				assert.Equal(t, "x", value)
			}
		})
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for name, eval := range newBoth(t) {
		t.Run(name, func(t *testing.T) {
			_, err := eval.Eval(ctx, `1;`)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrEval)
		})
	}
}

func TestUnknownBackend(t *testing.T) {
	_, err := New("v8")
	assert.Error(t, err)
}
