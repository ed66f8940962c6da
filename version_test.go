package reflection

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type wideRecord struct {
	A int
	B string
	C bool
}

type narrowRecord struct {
	A int
	B string
}

type widerRecord struct {
	A int
	B string
	D float64
}

func TestVersionToleranceSubtractiveDiscardsUnknownMember(t *testing.T) {
	e := New()
	data, err := e.Marshal(wideRecord{A: 1, B: "x", C: true})
	require.NoError(t, err)

	got, err := e.Unmarshal(data, reflect.TypeOf(narrowRecord{}))
	require.NoError(t, err)
	require.Equal(t, narrowRecord{A: 1, B: "x"}, got)
}

func TestVersionToleranceAdditiveLeavesMissingMemberZero(t *testing.T) {
	e := New()
	data, err := e.Marshal(wideRecord{A: 2, B: "y", C: false})
	require.NoError(t, err)

	got, err := e.Unmarshal(data, reflect.TypeOf(widerRecord{}))
	require.NoError(t, err)
	require.Equal(t, widerRecord{A: 2, B: "y", D: 0}, got)
}
