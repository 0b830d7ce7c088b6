// Package term implements the RDF term model of spec §3.2: IRIs, blank
// nodes, and literals (plain, typed, or language-tagged), with the
// validation and NFC-normalization rules encoding depends on.
//
// Adapted from boutros/sopp/rdf/term.go's URI/Literal types and
// constructor shape, pared down to the datatype set spec §3.1/§4.1 gives
// inline treatment to (xsd:integer, xsd:decimal, xsd:dateTime) plus an
// opaque "anything else is a typed literal" bucket, instead of sopp's full
// XSD enumeration.
package term

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/boutros/triplestore/internal/obserr"
)

// MaxByteSize is the size cap of spec §4.2: terms whose value (IRI, blank
// node label, or literal lexical form) is longer than this many bytes are
// rejected with TermTooLarge.
const MaxByteSize = 16384

// Commonly used datatype IRIs, mirroring sopp's XSD* table.
const (
	XSDString     = "http://www.w3.org/2001/XMLSchema#string"
	XSDInteger    = "http://www.w3.org/2001/XMLSchema#integer"
	XSDDecimal    = "http://www.w3.org/2001/XMLSchema#decimal"
	XSDDouble     = "http://www.w3.org/2001/XMLSchema#double"
	XSDBoolean    = "http://www.w3.org/2001/XMLSchema#boolean"
	XSDDateTime   = "http://www.w3.org/2001/XMLSchema#dateTime"
	RDFLangString = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
)

// Kind discriminates the three RDF term kinds.
type Kind int

const (
	KindURI Kind = iota + 1
	KindBlankNode
	KindLiteral
)

// Term is the sum type of spec §3.2: exactly one of IRI, BlankNode, or
// Literal.
type Term struct {
	kind     Kind
	value    string // IRI string, blank node label, or literal lexical form
	lang     string // set only for language-tagged literals
	datatype string // set only for typed literals (and always for inline kinds)
}

// NewURI constructs an IRI term. Validation (NUL byte, size, UTF-8) happens
// at encode time (internal/termcodec), mirroring spec §4.2's "validate
// before serialization" ordering.
func NewURI(iri string) Term {
	return Term{kind: KindURI, value: iri}
}

// NewBlankNode constructs a blank node term.
func NewBlankNode(label string) Term {
	return Term{kind: KindBlankNode, value: label}
}

// NewPlainLiteral constructs a literal with no datatype and no language tag.
func NewPlainLiteral(lexical string) Term {
	return Term{kind: KindLiteral, value: lexical}
}

// NewLangLiteral constructs a language-tagged literal. The language tag is
// lowercased, per spec §4.2's literal subtype 2 encoding.
func NewLangLiteral(lexical, lang string) Term {
	return Term{kind: KindLiteral, value: lexical, lang: strings.ToLower(lang)}
}

// NewTypedLiteral constructs a literal with an explicit datatype IRI.
func NewTypedLiteral(lexical, datatypeIRI string) Term {
	return Term{kind: KindLiteral, value: lexical, datatype: datatypeIRI}
}

// NewIntegerLiteral constructs an xsd:integer literal from a Go int64.
func NewIntegerLiteral(v int64) Term {
	return NewTypedLiteral(strconv.FormatInt(v, 10), XSDInteger)
}

// NewDateTimeLiteral constructs an xsd:dateTime literal from a time.Time,
// formatted in UTC per spec §4.1's "normalize to UTC" rule.
func NewDateTimeLiteral(t time.Time) Term {
	return NewTypedLiteral(t.UTC().Format(time.RFC3339Nano), XSDDateTime)
}

func (t Term) Kind() Kind       { return t.kind }
func (t Term) Value() string    { return t.value }
func (t Term) Lang() string     { return t.lang }
func (t Term) Datatype() string { return t.datatype }

func (t Term) IsPlainLiteral() bool {
	return t.kind == KindLiteral && t.lang == "" && t.datatype == ""
}
func (t Term) IsLangLiteral() bool { return t.kind == KindLiteral && t.lang != "" }
func (t Term) IsTypedLiteral() bool {
	return t.kind == KindLiteral && t.datatype != "" && t.lang == ""
}

func (t Term) String() string {
	switch t.kind {
	case KindURI:
		return fmt.Sprintf("<%s>", t.value)
	case KindBlankNode:
		return fmt.Sprintf("_:%s", t.value)
	case KindLiteral:
		switch {
		case t.lang != "":
			return fmt.Sprintf("%q@%s", t.value, t.lang)
		case t.datatype != "":
			return fmt.Sprintf("%q^^<%s>", t.value, t.datatype)
		default:
			return fmt.Sprintf("%q", t.value)
		}
	default:
		return "<invalid term>"
	}
}

// Equal compares two terms for RDF term equality per spec §3.2: lexical
// forms are compared post-NFC, and datatype/language annotations must
// match exactly.
func (t Term) Equal(other Term) bool {
	if t.kind != other.kind {
		return false
	}
	if Normalize(t.value) != Normalize(other.value) {
		return false
	}
	return t.lang == other.lang && t.datatype == other.datatype
}

// Normalize applies Unicode NFC normalization to a lexical form, per spec
// §3.2: "the lexical form is normalized to Unicode NFC" before encoding.
func Normalize(s string) string {
	return norm.NFC.String(s)
}

// Validate runs the size/NUL/UTF-8 checks of spec §4.2, in the order the
// spec specifies: size, NUL-in-URI, UTF-8 validity. It does not normalize;
// callers normalize separately (internal/termcodec does both in sequence).
func Validate(t Term) error {
	if len(t.value) > MaxByteSize {
		return obserr.New(obserr.KindTermTooLarge, fmt.Sprintf("term value is %d bytes, max is %d", len(t.value), MaxByteSize))
	}
	if t.kind == KindURI && strings.IndexByte(t.value, 0) >= 0 {
		return obserr.New(obserr.KindNullByteInURI, "URI contains a NUL byte")
	}
	if !utf8.ValidString(t.value) {
		return obserr.New(obserr.KindInvalidUTF8, "term value is not valid UTF-8")
	}
	if t.datatype != "" && !utf8.ValidString(t.datatype) {
		return obserr.New(obserr.KindInvalidUTF8, "datatype IRI is not valid UTF-8")
	}
	return nil
}

// Triple is an RDF statement over terms, pre-dictionary-encoding.
// Grounded on boutros/sopp/rdf.Triple, generalized to allow a Term subject
// (sopp restricts Subj to URI; RDF also allows blank-node subjects, which
// spec §3.2/§3.4 require for body-pattern matching against stored facts).
type Triple struct {
	Subj Term
	Pred Term
	Obj  Term
}

func (tr Triple) String() string {
	return fmt.Sprintf("%s %s %s .", tr.Subj, tr.Pred, tr.Obj)
}
