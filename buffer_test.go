package reflection

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestVarUintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 1 << 6, 1 << 7, 1 << 13, 1 << 14, 1 << 20, 1 << 21,
		1 << 27, 1 << 28, 1 << 34, 1 << 41, 1 << 48, 1 << 55, 1<<64 - 1}
	for _, v := range values {
		w := NewPrimitiveWriter(0)
		w.WriteVarUint(v)
		r := NewPrimitiveReader(w.Bytes())
		got, err := r.ReadVarUint()
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, 0, r.Remaining())
	}
}

func TestVarIntRoundTrip(t *testing.T) {
	values := []int64{0, -1, 1, -1 << 6, 1 << 6, -1 << 13, 1 << 20, -1 << 27,
		1 << 34, -1 << 40, 9223372036854775807, -9223372036854775808}
	for _, v := range values {
		w := NewPrimitiveWriter(0)
		w.WriteVarInt(v)
		r := NewPrimitiveReader(w.Bytes())
		got, err := r.ReadVarInt()
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestStringAndBytesRoundTrip(t *testing.T) {
	w := NewPrimitiveWriter(0)
	w.WriteString("")
	w.WriteString("hello, world")
	w.WriteBytes(nil)
	w.WriteBytes([]byte{1, 2, 3, 4})

	r := NewPrimitiveReader(w.Bytes())
	s1, err := r.ReadString()
	require.NoError(t, err)
	require.Equal(t, "", s1)

	s2, err := r.ReadString()
	require.NoError(t, err)
	require.Equal(t, "hello, world", s2)

	b1, err := r.ReadBytes()
	require.NoError(t, err)
	require.Empty(t, b1)

	b2, err := r.ReadBytes()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, b2)
}

func TestGUIDRoundTrip(t *testing.T) {
	id := uuid.New()
	w := NewPrimitiveWriter(0)
	w.WriteGUID(id)
	r := NewPrimitiveReader(w.Bytes())
	got, err := r.ReadGUID()
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestDecimalRoundTrip(t *testing.T) {
	values := []string{"0", "1.5", "-42.125", "123456789012345678901234.56789"}
	for _, s := range values {
		d, err := decimal.NewFromString(s)
		require.NoError(t, err)
		w := NewPrimitiveWriter(0)
		w.WriteDecimal(d)
		r := NewPrimitiveReader(w.Bytes())
		got, err := r.ReadDecimal()
		require.NoError(t, err)
		require.True(t, d.Equal(got), "expected %s got %s", d, got)
	}
}

func TestReadPastEndIsMalformedStream(t *testing.T) {
	r := NewPrimitiveReader([]byte{0x01})
	_, err := r.ReadFixed32()
	require.ErrorIs(t, err, ErrMalformedStream)
}
