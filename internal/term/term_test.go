package term

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boutros/triplestore/internal/obserr"
)

func TestValidate_URITooLarge(t *testing.T) {
	big := strings.Repeat("a", MaxByteSize+1)
	err := Validate(NewURI(big))
	require.Error(t, err)
	assert.Equal(t, obserr.KindTermTooLarge, obserr.KindOf(err))
}

func TestValidate_NullByteInURI(t *testing.T) {
	err := Validate(NewURI("http://ex/a\x00b"))
	require.Error(t, err)
	assert.Equal(t, obserr.KindNullByteInURI, obserr.KindOf(err))
}

func TestValidate_InvalidUTF8(t *testing.T) {
	err := Validate(NewPlainLiteral(string([]byte{0xff, 0xfe})))
	require.Error(t, err)
	assert.Equal(t, obserr.KindInvalidUTF8, obserr.KindOf(err))
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, Validate(NewURI("http://ex/ok")))
}

// NUL bytes are legal inside literals (spec §4.2 rationale: NUL is
// forbidden in URIs precisely so it's safe as an intra-literal separator).
func TestValidate_NullByteAllowedInLiteral(t *testing.T) {
	require.NoError(t, Validate(NewPlainLiteral("a\x00b")))
}

func TestEqual_NFCNormalizedComparison(t *testing.T) {
	// "é" as a single code point vs. "e" + combining acute accent.
	composed := NewPlainLiteral("café")
	decomposed := NewPlainLiteral("café")
	assert.True(t, composed.Equal(decomposed))
}

func TestEqual_DatatypeAndLanguageMustMatch(t *testing.T) {
	a := NewLangLiteral("hello", "EN")
	b := NewLangLiteral("hello", "en")
	assert.True(t, a.Equal(b), "language tags compare case-insensitively via lowercasing at construction")

	typed := NewTypedLiteral("1", XSDInteger)
	plain := NewPlainLiteral("1")
	assert.False(t, typed.Equal(plain))
}

func TestString_Formatting(t *testing.T) {
	assert.Equal(t, "<http://ex/a>", NewURI("http://ex/a").String())
	assert.Equal(t, "_:b0", NewBlankNode("b0").String())
	assert.Equal(t, `"hi"`, NewPlainLiteral("hi").String())
	assert.Equal(t, `"hi"@en`, NewLangLiteral("hi", "en").String())
	assert.Equal(t, `"1"^^<`+XSDInteger+`>`, NewIntegerLiteral(1).String())
}
