package jsast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrawlProgramBindings(t *testing.T) {
	p := mustParse(t, `
		var a = 1;
		function f(x) { return a + x; }
		f(a);
	`)
	info := Crawl(p)

	a := info.Program.Lookup("a")
	require.NotNil(t, a)
	assert.Equal(t, BindVar, a.Kind)
	assert.Equal(t, 2, a.LiveRefs(), "a is read inside f and as an argument")

	f := info.Program.Lookup("f")
	require.NotNil(t, f)
	assert.Equal(t, BindFunction, f.Kind)
	assert.Equal(t, 1, f.LiveRefs())
}

func TestCrawlShadowing(t *testing.T) {
	p := mustParse(t, `
		var a = 1;
		function f(a) { return a; }
	`)
	info := Crawl(p)
	outer := info.Program.Lookup("a")
	require.NotNil(t, outer)
	assert.Zero(t, outer.LiveRefs(), "the parameter shadows the outer a")
}

func TestCrawlHoistedUse(t *testing.T) {
	p := mustParse(t, `g(); function g() {}`)
	info := Crawl(p)
	g := info.Program.Lookup("g")
	require.NotNil(t, g)
	assert.Equal(t, 1, g.LiveRefs(), "use-before-declaration resolves through hoisting")
}

func TestCrawlConstantViolations(t *testing.T) {
	p := mustParse(t, `var a = 1; a = 2; a++;`)
	info := Crawl(p)
	a := info.Program.Lookup("a")
	require.NotNil(t, a)
	assert.Zero(t, a.LiveRefs())
	assert.Equal(t, 2, a.LiveViolations())
}

func TestCrawlGhostFiltering(t *testing.T) {
	p := mustParse(t, `var a = 1; f(a);`)
	info := Crawl(p)
	a := info.Program.Lookup("a")
	require.NotNil(t, a)
	require.Equal(t, 1, a.LiveRefs())

	// Removing the statement holding the reference does not touch the scope
	// cache, but the ghost must no longer be counted.
	RemoveStmtCell(&p.Body[1])
	assert.Zero(t, a.LiveRefs())
	assert.False(t, a.Referenced())
}

func TestPureInitializer(t *testing.T) {
	cases := []struct {
		source string
		pure   bool
	}{
		{`var v = 1;`, true},
		{`var v = "s";`, true},
		{`var v = other;`, true},
		{`var v = a.b;`, true},
		{`var v = [1, "x", [2]];`, true},
		{`var v = { a: 1 };`, true},
		{`var v = -1;`, true},
		{`var v = 1 + 2;`, true},
		{`var v = a ? 1 : 2;`, true},
		{`var v = function () {};`, true},
		{`var v;`, true},
		{`var v = f();`, false},
		{`var v = [f()];`, false},
		{`var v = { a: f() };`, false},
	}
	for _, tc := range cases {
		t.Run(tc.source, func(t *testing.T) {
			p := mustParse(t, tc.source)
			info := Crawl(p)
			b := info.Program.Lookup("v")
			require.NotNil(t, b)
			assert.Equal(t, tc.pure, b.PureInitializer())
		})
	}
}

func TestCrawlFunctionScopes(t *testing.T) {
	p := mustParse(t, `
		function outer() {
			var inner = 1;
			return function () { return inner; };
		}
	`)
	info := Crawl(p)
	assert.Nil(t, info.Program.Lookup("inner"), "inner is not visible at program scope")

	scopes := info.AllScopes()
	require.GreaterOrEqual(t, len(scopes), 3, "program, outer, and the returned function")

	var innerBinding *Binding
	for _, s := range scopes {
		if b, ok := s.Bindings["inner"]; ok {
			innerBinding = b
		}
	}
	require.NotNil(t, innerBinding)
	assert.Equal(t, 1, innerBinding.LiveRefs())
}
