package obfuscatorio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/jsast"
)

func mustParse(t *testing.T, source string) *ast.Program {
	t.Helper()
	p, err := jsast.Parse(source)
	require.NoError(t, err)
	return p
}

func TestFindStringArrayPlain(t *testing.T) {
	p := mustParse(t, `var _0x1a = ["alpha", "beta", "gamma"]; use(_0x1a);`)
	arr := FindStringArray(p)
	require.NotNil(t, arr)
	assert.Equal(t, "_0x1a", arr.Name)
	assert.Equal(t, 3, arr.Length)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, arr.Strings)
}

func TestFindStringArrayNested(t *testing.T) {
	p := mustParse(t, `var f = (function () { var A = ["hello", "world"]; return function (i) { return A[i]; }; })();`)
	arr := FindStringArray(p)
	require.NotNil(t, arr)
	assert.Equal(t, "A", arr.Name)
	assert.Equal(t, 2, arr.Length)
}

func TestFindStringArrayMemoized(t *testing.T) {
	p := mustParse(t, `
		function words() {
			var list = ["one", "two", "three"];
			words = function () { return list; };
			return words();
		}
	`)
	arr := FindStringArray(p)
	require.NotNil(t, arr)
	assert.Equal(t, "words", arr.Name)
	assert.Equal(t, 3, arr.Length)
}

func TestFindStringArrayPrefersLongest(t *testing.T) {
	p := mustParse(t, `
		var small = ["a", "b"];
		var big = ["a", "b", "c", "d"];
	`)
	arr := FindStringArray(p)
	require.NotNil(t, arr)
	assert.Equal(t, "big", arr.Name)
}

func TestFindStringArrayRejectsMixed(t *testing.T) {
	p := mustParse(t, `var nope = ["a", 1, "b"]; var single = ["only"];`)
	assert.Nil(t, FindStringArray(p))
}

func TestFindArrayRotator(t *testing.T) {
	p := mustParse(t, `
		var arr = ["x", "y", "z"];
		(function (a, n) { while (n--) { a.push(a.shift()); } })(arr, 0x2);
	`)
	sa := FindStringArray(p)
	require.NotNil(t, sa)
	rot := FindArrayRotator(p, sa)
	require.NotNil(t, rot)
	assert.Equal(t, 2, rot.Count)
}

func TestFindArrayRotatorAbsent(t *testing.T) {
	p := mustParse(t, `var arr = ["x", "y"]; use(arr);`)
	sa := FindStringArray(p)
	require.NotNil(t, sa)
	assert.Nil(t, FindArrayRotator(p, sa))
}
