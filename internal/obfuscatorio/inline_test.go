package obfuscatorio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcortega/webcrack/internal/jsast"
	"github.com/tcortega/webcrack/internal/transformer"
)

func TestInlineObjectProps(t *testing.T) {
	p := mustParse(t, `
		var consts = { offset: 0x10, name: "dec", on: true };
		use(consts.offset, consts["name"], consts.on);
	`)
	st := &transformer.State{}
	_, err := transformer.Apply(p, InlineObjectProps(), st)
	require.NoError(t, err)

	out := jsast.Generate(p)
	assert.Contains(t, out, "use(16")
	assert.Contains(t, out, `"dec"`)
	assert.Equal(t, 3, st.Changes)
}

func TestInlineObjectPropsSkipsWrites(t *testing.T) {
	p := mustParse(t, `
		var consts = { a: 1, b: 2 };
		consts.a = 5;
		use(consts.b);
	`)
	st := &transformer.State{}
	_, err := transformer.Apply(p, InlineObjectProps(), st)
	require.NoError(t, err)

	out := jsast.Generate(p)
	assert.Contains(t, out, "consts.a = 5")
	assert.Contains(t, out, "use(2)")
}

func TestInlineObjectPropsIgnoresSmallObjects(t *testing.T) {
	p := mustParse(t, `var one = { a: 1 }; use(one.a);`)
	st := &transformer.State{}
	_, err := transformer.Apply(p, InlineObjectProps(), st)
	require.NoError(t, err)
	assert.Zero(t, st.Changes)
}

func TestInlineDecoderWrapperAlias(t *testing.T) {
	p := mustParse(t, `
		var table = ["a", "b"];
		function dec(i) { return table[i]; }
		var alias = dec;
		use(alias(1));
	`)
	arr := FindStringArray(p)
	require.NotNil(t, arr)
	decoders := FindDecoders(p, arr)
	require.Len(t, decoders, 1)

	st := &transformer.State{}
	_, err := transformer.Apply(p, InlineDecoderWrappers(decoders[0]), st)
	require.NoError(t, err)

	out := jsast.Generate(p)
	assert.Contains(t, out, "use(dec(1))")
	assert.Equal(t, 1, st.Changes)
}

func TestInlineDecoderWrapperChain(t *testing.T) {
	p := mustParse(t, `
		var table = ["a", "b"];
		function dec(i) { return table[i]; }
		var w1 = dec;
		var w2 = w1;
		use(w2(0));
	`)
	arr := FindStringArray(p)
	decoders := FindDecoders(p, arr)
	require.Len(t, decoders, 1)

	st := &transformer.State{}
	_, err := transformer.Apply(p, InlineDecoderWrappers(decoders[0]), st)
	require.NoError(t, err)
	assert.Contains(t, jsast.Generate(p), "use(dec(0))")
}

func TestInlineDecoderWrapperForwarder(t *testing.T) {
	p := mustParse(t, `
		var table = ["a", "b", "c"];
		function dec(i) { return table[i]; }
		function fwd(n) { return dec(n - 5); }
		use(fwd(6));
	`)
	arr := FindStringArray(p)
	decoders := FindDecoders(p, arr)
	require.GreaterOrEqual(t, len(decoders), 1)
	require.Equal(t, "dec", decoders[0].Name)

	st := &transformer.State{}
	_, err := transformer.Apply(p, InlineDecoderWrappers(decoders[0]), st)
	require.NoError(t, err)

	out := jsast.Generate(p)
	assert.Contains(t, out, "dec(6 - 5)")
}
