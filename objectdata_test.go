package reflection

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetDictEntryGuardsIncomparableKey(t *testing.T) {
	m := map[any]any{}
	err := setDictEntry(m, []int{1, 2}, "v")
	require.ErrorIs(t, err, ErrConstructionFailed)
	require.Empty(t, m)
}

func TestSetDictEntryAcceptsComparableKey(t *testing.T) {
	m := map[any]any{}
	err := setDictEntry(m, "k", "v")
	require.NoError(t, err)
	require.Equal(t, "v", m["k"])
}

func TestSetReflectMapIndexGuardsIncomparableKey(t *testing.T) {
	m := reflect.MakeMap(reflect.TypeOf(map[any]any{}))
	err := setReflectMapIndex(m, reflect.ValueOf([]int{1, 2}), reflect.ValueOf("v"))
	require.ErrorIs(t, err, ErrConstructionFailed)
	require.Equal(t, 0, m.Len())
}

// unregisteredPayload is deliberately never passed to Register/
// RegisterNamedType in this test binary, so any value boxed behind an
// interface-declared field falls back to ObjectData on read.
type unregisteredPayload struct {
	X int
	Y string
}

type unresolvedHolder struct {
	Payload any
}

func TestUnresolvedTypeFallsBackToObjectData(t *testing.T) {
	Register[unresolvedHolder]()
	e := New()
	data, err := e.Marshal(unresolvedHolder{Payload: unregisteredPayload{X: 10, Y: "hi"}})
	require.NoError(t, err)

	got, err := e.Unmarshal(data, reflect.TypeOf(unresolvedHolder{}))
	require.NoError(t, err)

	h := got.(unresolvedHolder)
	od, ok := h.Payload.(*ObjectData)
	require.True(t, ok, "unresolved actual type must decode as *ObjectData")
	require.NotNil(t, od.Members)

	xField, ok := od.Members["X"].(*ObjectData)
	require.True(t, ok)
	require.Equal(t, int64(10), xField.Scalar)

	yField, ok := od.Members["Y"].(*ObjectData)
	require.True(t, ok)
	require.Equal(t, "hi", yField.Scalar)
}

func TestObjectDataThroughPreservesUnresolvedStream(t *testing.T) {
	Register[unresolvedHolder]()
	e := New()
	original := unresolvedHolder{Payload: unregisteredPayload{X: 3, Y: "z"}}
	data, err := e.Marshal(original)
	require.NoError(t, err)

	decoded, err := e.Unmarshal(data, reflect.TypeOf(unresolvedHolder{}))
	require.NoError(t, err)
	h := decoded.(unresolvedHolder)

	// Re-encode the untouched ObjectData payload through a fresh
	// session and confirm the result decodes identically again - the
	// relay path spec.md §4.5 exists for.
	w := NewWriter(Settings{})
	require.NoError(t, w.WriteObject(h.Payload))

	r := NewReader(w.Bytes())
	relayedAny, err := r.ReadObject(AnyType())
	require.NoError(t, err)
	relayed, ok := relayedAny.(*ObjectData)
	require.True(t, ok)
	require.Equal(t, int64(3), relayed.Members["X"].(*ObjectData).Scalar)
	require.Equal(t, "z", relayed.Members["Y"].(*ObjectData).Scalar)
}
