package obfuscatorio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindDecodersFunctionDeclaration(t *testing.T) {
	p := mustParse(t, `
		var table = ["a", "b", "c"];
		function dec(i) { return table[i - 0x10]; }
		use(dec(0x10));
	`)
	arr := FindStringArray(p)
	require.NotNil(t, arr)

	decoders := FindDecoders(p, arr)
	require.Len(t, decoders, 1)
	assert.Equal(t, "dec", decoders[0].Name)
	assert.Equal(t, VariantPlain, decoders[0].Variant)
}

func TestFindDecodersKeyedVariant(t *testing.T) {
	p := mustParse(t, `
		var table = ["a", "b", "c"];
		function dec(i, key) { return table[i] + key; }
	`)
	arr := FindStringArray(p)
	require.NotNil(t, arr)

	decoders := FindDecoders(p, arr)
	require.Len(t, decoders, 1)
	assert.Equal(t, VariantKeyed, decoders[0].Variant)
}

func TestFindDecodersBase64Variant(t *testing.T) {
	p := mustParse(t, `
		var table = ["YQ==", "Yg=="];
		function dec(i) { return atob(table[i]); }
	`)
	arr := FindStringArray(p)
	require.NotNil(t, arr)

	decoders := FindDecoders(p, arr)
	require.Len(t, decoders, 1)
	assert.Equal(t, VariantBase64Keyed, decoders[0].Variant)
}

func TestFindDecodersIIFEForm(t *testing.T) {
	p := mustParse(t, `var f = (function () { var A = ["hello", "world"]; return function (i) { return A[i]; }; })();`)
	arr := FindStringArray(p)
	require.NotNil(t, arr)

	decoders := FindDecoders(p, arr)
	require.Len(t, decoders, 1)
	assert.Equal(t, "f", decoders[0].Name)
}

func TestFindDecodersMultiple(t *testing.T) {
	p := mustParse(t, `
		var table = ["a", "b"];
		function dec1(i) { return table[i]; }
		function dec2(i, k) { return table[i] + k; }
	`)
	arr := FindStringArray(p)
	require.NotNil(t, arr)
	assert.Len(t, FindDecoders(p, arr), 2)
}

func TestFindDecodersIgnoresUnrelated(t *testing.T) {
	p := mustParse(t, `
		var table = ["a", "b"];
		function other(x) { return x * 2; }
	`)
	arr := FindStringArray(p)
	require.NotNil(t, arr)
	assert.Empty(t, FindDecoders(p, arr))
}
