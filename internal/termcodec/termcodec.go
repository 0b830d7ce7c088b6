// Package termcodec serializes RDF terms to the binary key/value format of
// spec §4.2: a discriminator byte followed by a kind-specific body, with
// literal subtypes separated from their lexical form by a NUL byte (safe
// because URIs — the other place a NUL could appear — reject NUL at
// validation time).
//
// Grounded on boutros/sopp/db.go's encode/decode methods (same
// discriminator-byte-then-body shape and NUL-as-separator trick for
// language-tagged literals), generalized from sopp's one-byte-per-XSD-type
// table to the exact 3-prefix/3-subtype scheme spec §4.2 specifies.
package termcodec

import (
	"bytes"
	"strconv"

	"github.com/boutros/triplestore/internal/obserr"
	"github.com/boutros/triplestore/internal/term"
)

const (
	prefixURI     byte = 1
	prefixBNode   byte = 2
	prefixLiteral byte = 3

	literalPlain byte = 0
	literalTyped byte = 1
	literalLang  byte = 2
)

// Encode validates, NFC-normalizes, and canonicalizes t (per spec §3.7),
// then serializes it to the binary form of spec §4.2. The returned bytes
// are used verbatim as the str2id key and the id2str value.
func Encode(t term.Term) ([]byte, error) {
	if err := term.Validate(t); err != nil {
		return nil, err
	}
	t = canonicalize(t)

	switch t.Kind() {
	case term.KindURI:
		return encodeWithPrefix(prefixURI, term.Normalize(t.Value())), nil
	case term.KindBlankNode:
		return encodeWithPrefix(prefixBNode, term.Normalize(t.Value())), nil
	case term.KindLiteral:
		return encodeLiteral(t)
	default:
		return nil, obserr.New(obserr.KindUnsupportedTerm, "unknown term kind")
	}
}

func encodeWithPrefix(prefix byte, body string) []byte {
	b := make([]byte, 1+len(body))
	b[0] = prefix
	copy(b[1:], body)
	return b
}

func encodeLiteral(t term.Term) ([]byte, error) {
	lexical := term.Normalize(t.Value())
	switch {
	case t.IsLangLiteral():
		lang := term.Normalize(t.Lang())
		buf := make([]byte, 0, 2+len(lang)+len(lexical))
		buf = append(buf, prefixLiteral, literalLang)
		buf = append(buf, lang...)
		buf = append(buf, 0)
		buf = append(buf, lexical...)
		return buf, nil
	case t.IsTypedLiteral():
		dt := term.Normalize(t.Datatype())
		if err := term.Validate(term.NewURI(dt)); err != nil {
			return nil, err
		}
		buf := make([]byte, 0, 2+len(dt)+len(lexical))
		buf = append(buf, prefixLiteral, literalTyped)
		buf = append(buf, dt...)
		buf = append(buf, 0)
		buf = append(buf, lexical...)
		return buf, nil
	default:
		buf := make([]byte, 0, 2+len(lexical))
		buf = append(buf, prefixLiteral, literalPlain)
		buf = append(buf, lexical...)
		return buf, nil
	}
}

// Decode reverses Encode. It never fails on data this package produced;
// errors here indicate on-disk corruption (spec §4.2 comment: "we control
// the encoding").
func Decode(b []byte) (term.Term, error) {
	if len(b) == 0 {
		return term.Term{}, obserr.New(obserr.KindUnsupportedTerm, "cannot decode empty byte slice")
	}
	switch b[0] {
	case prefixURI:
		return term.NewURI(string(b[1:])), nil
	case prefixBNode:
		return term.NewBlankNode(string(b[1:])), nil
	case prefixLiteral:
		return decodeLiteral(b[1:])
	default:
		return term.Term{}, obserr.New(obserr.KindUnsupportedTerm, "unknown discriminator byte")
	}
}

func decodeLiteral(b []byte) (term.Term, error) {
	if len(b) == 0 {
		return term.Term{}, obserr.New(obserr.KindUnsupportedTerm, "truncated literal encoding")
	}
	subtype, rest := b[0], b[1:]
	switch subtype {
	case literalPlain:
		return term.NewPlainLiteral(string(rest)), nil
	case literalTyped:
		i := bytes.IndexByte(rest, 0)
		if i < 0 {
			return term.Term{}, obserr.New(obserr.KindUnsupportedTerm, "typed literal missing NUL separator")
		}
		return term.NewTypedLiteral(string(rest[i+1:]), string(rest[:i])), nil
	case literalLang:
		i := bytes.IndexByte(rest, 0)
		if i < 0 {
			return term.Term{}, obserr.New(obserr.KindUnsupportedTerm, "lang literal missing NUL separator")
		}
		return term.NewLangLiteral(string(rest[i+1:]), string(rest[:i])), nil
	default:
		return term.Term{}, obserr.New(obserr.KindUnsupportedTerm, "unknown literal subtype")
	}
}

// canonicalize resolves spec §9's Open Question per SPEC_FULL §3.7: before
// dictionary lookup, numeric/boolean literals of a known XSD datatype are
// re-serialized from their parsed value, so "1" and "01" of xsd:integer (or
// "true"/"True" of xsd:boolean) become the same dictionary term. Literals
// whose lexical form fails to parse, or whose datatype isn't one of these,
// pass through unchanged (NFC-normalized only).
func canonicalize(t term.Term) term.Term {
	if !t.IsTypedLiteral() {
		return t
	}
	switch t.Datatype() {
	case term.XSDInteger:
		if v, err := strconv.ParseInt(t.Value(), 10, 64); err == nil {
			return term.NewTypedLiteral(strconv.FormatInt(v, 10), t.Datatype())
		}
	case term.XSDDouble:
		if v, err := strconv.ParseFloat(t.Value(), 64); err == nil {
			return term.NewTypedLiteral(strconv.FormatFloat(v, 'g', -1, 64), t.Datatype())
		}
	case term.XSDBoolean:
		if v, err := strconv.ParseBool(t.Value()); err == nil {
			return term.NewTypedLiteral(strconv.FormatBool(v), t.Datatype())
		}
	}
	return t
}
