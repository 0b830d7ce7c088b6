package dict

import (
	"strconv"
	"strings"
	"time"

	"github.com/boutros/triplestore/internal/idcodec"
	"github.com/boutros/triplestore/internal/term"
)

// tryInline attempts to encode t as one of the inline ID kinds (Integer,
// Decimal, DateTime) that never touch the dictionary, per spec §3.1/§4.1.
// ok is false when t isn't a recognized inline datatype, or its lexical
// form doesn't fit the inline range — either way the caller falls back to
// ordinary dictionary allocation.
func tryInline(t term.Term) (id uint64, ok bool) {
	if !t.IsTypedLiteral() {
		return 0, false
	}
	switch t.Datatype() {
	case term.XSDInteger:
		v, err := strconv.ParseInt(t.Value(), 10, 64)
		if err != nil {
			return 0, false
		}
		id, err := idcodec.EncodeInteger(v)
		if err != nil {
			return 0, false
		}
		return id, true
	case term.XSDDateTime:
		tm, err := time.Parse(time.RFC3339Nano, t.Value())
		if err != nil {
			return 0, false
		}
		millis := tm.UTC().UnixMilli()
		id, err := idcodec.EncodeDateTime(millis)
		if err != nil {
			return 0, false
		}
		return id, true
	case term.XSDDecimal:
		d, ok := parseDecimalLexical(t.Value())
		if !ok {
			return 0, false
		}
		id, err := idcodec.EncodeDecimal(d)
		if err != nil {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}

// decodeInline reverses tryInline for a dictionary lookup miss on an
// inline-tagged ID: it reconstructs the Term straight from the ID, with no
// storage access.
func decodeInline(id uint64) (term.Term, bool) {
	switch idcodec.TagOf(id) {
	case idcodec.TagInteger:
		v, err := idcodec.DecodeInteger(id)
		if err != nil {
			return term.Term{}, false
		}
		return term.NewIntegerLiteral(v), true
	case idcodec.TagDateTime:
		ms, err := idcodec.DecodeDateTime(id)
		if err != nil {
			return term.Term{}, false
		}
		return term.NewDateTimeLiteral(time.UnixMilli(ms).UTC()), true
	case idcodec.TagDecimal:
		d, err := idcodec.DecodeDecimal(id)
		if err != nil {
			return term.Term{}, false
		}
		return term.NewTypedLiteral(formatDecimalLexical(d), term.XSDDecimal), true
	default:
		return term.Term{}, false
	}
}

// parseDecimalLexical parses the fixed-point xsd:decimal lexical space
// ("[+-]?digits(.digits)?") into the sign/coefficient/exponent form
// idcodec.Decimal wants. Exponent notation (xsd:double's lexical space) is
// not handled here; such literals simply miss the inline fast path and fall
// back to dictionary encoding.
func parseDecimalLexical(s string) (idcodec.Decimal, bool) {
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	digits := intPart + fracPart
	if digits == "" {
		return idcodec.Decimal{}, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return idcodec.Decimal{}, false
		}
	}
	coef, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return idcodec.Decimal{}, false
	}
	if coef == 0 {
		neg = false
	}
	return idcodec.Decimal{Negative: neg, Coef: coef, Exp: -len(fracPart)}, true
}

func formatDecimalLexical(d idcodec.Decimal) string {
	digits := strconv.FormatUint(d.Coef, 10)
	var s string
	switch {
	case d.Exp == 0:
		s = digits
	case -d.Exp >= len(digits):
		s = "0." + strings.Repeat("0", -d.Exp-len(digits)) + digits
	default:
		cut := len(digits) + d.Exp
		s = digits[:cut] + "." + digits[cut:]
	}
	if d.Negative {
		s = "-" + s
	}
	return s
}
