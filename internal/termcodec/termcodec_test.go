package termcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boutros/triplestore/internal/obserr"
	"github.com/boutros/triplestore/internal/term"
)

func roundTrip(t *testing.T, tm term.Term) term.Term {
	t.Helper()
	b, err := Encode(tm)
	require.NoError(t, err)
	got, err := Decode(b)
	require.NoError(t, err)
	return got
}

func TestRoundTrip_URI(t *testing.T) {
	got := roundTrip(t, term.NewURI("http://ex/a"))
	assert.Equal(t, term.KindURI, got.Kind())
	assert.Equal(t, "http://ex/a", got.Value())
}

func TestRoundTrip_BlankNode(t *testing.T) {
	got := roundTrip(t, term.NewBlankNode("b0"))
	assert.Equal(t, term.KindBlankNode, got.Kind())
	assert.Equal(t, "b0", got.Value())
}

func TestRoundTrip_PlainLiteral(t *testing.T) {
	got := roundTrip(t, term.NewPlainLiteral("hello"))
	assert.True(t, got.IsPlainLiteral())
	assert.Equal(t, "hello", got.Value())
}

func TestRoundTrip_LangLiteral(t *testing.T) {
	got := roundTrip(t, term.NewLangLiteral("hello", "EN"))
	assert.True(t, got.IsLangLiteral())
	assert.Equal(t, "en", got.Lang(), "lang tags are lowercased at construction, per spec §4.2 subtype 2")
}

func TestRoundTrip_TypedLiteral(t *testing.T) {
	got := roundTrip(t, term.NewTypedLiteral("3.14", "http://example.org/currency"))
	assert.True(t, got.IsTypedLiteral())
	assert.Equal(t, "3.14", got.Value())
	assert.Equal(t, "http://example.org/currency", got.Datatype())
}

func TestEncode_NullByteInURI(t *testing.T) {
	_, err := Encode(term.NewURI("http://ex/a\x00b"))
	require.Error(t, err)
	assert.Equal(t, obserr.KindNullByteInURI, obserr.KindOf(err))
}

// Literals may legally contain NUL bytes; only the typed/lang subtypes use
// NUL as an internal separator, and only after the datatype/lang prefix.
func TestRoundTrip_LiteralContainingNulByte(t *testing.T) {
	got := roundTrip(t, term.NewPlainLiteral("a\x00b"))
	assert.Equal(t, "a\x00b", got.Value())
}

func TestDistinctPrefixesNeverCollide(t *testing.T) {
	uriBytes, err := Encode(term.NewURI("x"))
	require.NoError(t, err)
	bnodeBytes, err := Encode(term.NewBlankNode("x"))
	require.NoError(t, err)
	litBytes, err := Encode(term.NewPlainLiteral("x"))
	require.NoError(t, err)

	assert.NotEqual(t, uriBytes[0], bnodeBytes[0])
	assert.NotEqual(t, uriBytes[0], litBytes[0])
	assert.NotEqual(t, bnodeBytes[0], litBytes[0])
}

func TestCanonicalization_IntegerLexicalVariants(t *testing.T) {
	a, err := Encode(term.NewTypedLiteral("1", term.XSDInteger))
	require.NoError(t, err)
	b, err := Encode(term.NewTypedLiteral("01", term.XSDInteger))
	require.NoError(t, err)
	assert.Equal(t, a, b, `"1" and "01" of xsd:integer must canonicalize to the same dictionary key (spec §9)`)
}

func TestCanonicalization_UnparseableValuePassesThrough(t *testing.T) {
	// Not a valid integer lexical form: left unchanged rather than erroring,
	// per SPEC_FULL §3.7 (a lexical form that fails to parse passes through).
	got := roundTrip(t, term.NewTypedLiteral("not-a-number", term.XSDInteger))
	assert.Equal(t, "not-a-number", got.Value())
}

func TestEqual_NFCAndCanonicalizationCoincideOnSameID(t *testing.T) {
	a, err := Encode(term.NewPlainLiteral("café"))
	require.NoError(t, err)
	b, err := Encode(term.NewPlainLiteral("café"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
