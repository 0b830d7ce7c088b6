package idcodec

import (
	"math/rand"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEncodeDecode_Quick checks invariant 1 of spec §8: decode(encode(tag,
// p)) == (tag_name(tag), p) for every valid tag and payload.
func TestEncodeDecode_Quick(t *testing.T) {
	f := func(tagSeed uint8, payload uint64) bool {
		tag := Tag(tagSeed%6 + 1) // restrict to the six valid tags
		payload &= payloadMask

		id, err := Encode(tag, payload)
		if err != nil {
			return false
		}
		kind, gotPayload := Decode(id)
		return kind == kindOf(tag) && gotPayload == payload
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 2000, Rand: rand.New(rand.NewSource(1))}); err != nil {
		t.Error(err)
	}
}

func TestEncode_RejectsOutOfRangeTagOrPayload(t *testing.T) {
	_, err := Encode(16, 0)
	require.Error(t, err)

	_, err = Encode(TagURI, MaxPayload+1)
	require.Error(t, err)
}

// TestInteger_Quick checks invariant 2: round-trip over the full inline range.
func TestInteger_Quick(t *testing.T) {
	f := func(v int64) bool {
		v = MinInt + v%(MaxInt-MinInt+1)
		if v < MinInt {
			v += MaxInt - MinInt + 1
		}
		id, err := EncodeInteger(v)
		if err != nil {
			return false
		}
		got, err := DecodeInteger(id)
		return err == nil && got == v
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 2000, Rand: rand.New(rand.NewSource(2))}); err != nil {
		t.Error(err)
	}
}

func TestInteger_BoundaryScenario(t *testing.T) {
	// Boundary scenario 1 of spec §8.
	for _, v := range []int64{0, 1, -1, MaxInt, MinInt} {
		id, err := EncodeInteger(v)
		require.NoError(t, err)
		assert.Equal(t, TagInteger, TagOf(id))
		got, err := DecodeInteger(id)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}

	// 2^59 is out of inline range; caller must fall back to dictionary.
	_, err := EncodeInteger(MaxInt + 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = EncodeInteger(MinInt - 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestDateTime_Quick(t *testing.T) {
	f := func(ms uint64) bool {
		ms &= payloadMask
		id, err := EncodeDateTime(int64(ms))
		if err != nil {
			return false
		}
		got, err := DecodeDateTime(id)
		return err == nil && uint64(got) == ms
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 2000, Rand: rand.New(rand.NewSource(3))}); err != nil {
		t.Error(err)
	}
}

func TestDateTime_RejectsNegativeAndOverflow(t *testing.T) {
	_, err := EncodeDateTime(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = EncodeDateTime(int64(MaxPayload) + 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestDecimal_Quick(t *testing.T) {
	f := func(neg bool, coef uint64, exp int16) bool {
		coef &= decimalCoefMask
		d := Decimal{Negative: neg, Coef: coef, Exp: int(exp) % 1023}
		id, err := EncodeDecimal(d)
		if err != nil {
			return true // skip combinations outside the biased-exponent range
		}
		got, err := DecodeDecimal(id)
		if err != nil {
			return false
		}
		if coef == 0 {
			return got.Coef == 0 && !got.Negative
		}
		return got == d
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 2000, Rand: rand.New(rand.NewSource(4))}); err != nil {
		t.Error(err)
	}
}

func TestDecimal_ZeroIsSignless(t *testing.T) {
	id, err := EncodeDecimal(Decimal{Negative: true, Coef: 0, Exp: 5})
	require.NoError(t, err)
	assert.Equal(t, uint64(TagDecimal)<<payloadBits, id)

	got, err := DecodeDecimal(id)
	require.NoError(t, err)
	assert.False(t, got.Negative)
	assert.Zero(t, got.Coef)
}

func TestIsInlineIsDictionary(t *testing.T) {
	uriID, _ := Encode(TagURI, 1)
	intID, _ := EncodeInteger(42)

	assert.True(t, IsDictionary(uriID))
	assert.False(t, IsInline(uriID))

	assert.True(t, IsInline(intID))
	assert.False(t, IsDictionary(intID))
}
