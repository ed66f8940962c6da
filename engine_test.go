package reflection

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type treeNode struct {
	Value    int
	Children []*treeNode
	Parent   *treeNode
}

type pair struct {
	A int
	B string
}

func TestEngineRoundTripStruct(t *testing.T) {
	Register[pair]()
	e := New()
	data, err := e.Marshal(pair{A: 7, B: "seven"})
	require.NoError(t, err)
	got, err := e.Unmarshal(data, reflect.TypeOf(pair{}))
	require.NoError(t, err)
	require.Equal(t, pair{A: 7, B: "seven"}, got)
}

func TestEngineRoundTripPointerSharing(t *testing.T) {
	shared := &pair{A: 1, B: "shared"}
	type holder struct {
		First  *pair
		Second *pair
	}
	Register[holder]()
	e := New()
	data, err := e.Marshal(holder{First: shared, Second: shared})
	require.NoError(t, err)
	got, err := e.Unmarshal(data, reflect.TypeOf(holder{}))
	require.NoError(t, err)
	h := got.(holder)
	require.Same(t, h.First, h.Second, "a shared pointer must decode to one shared instance")
}

func TestEngineRoundTripCycle(t *testing.T) {
	Register[treeNode]()
	root := &treeNode{Value: 1}
	child := &treeNode{Value: 2, Parent: root}
	root.Children = []*treeNode{child}

	e := New()
	data, err := e.Marshal(root)
	require.NoError(t, err)
	got, err := e.Unmarshal(data, reflect.TypeOf(&treeNode{}))
	require.NoError(t, err)

	decoded := got.(*treeNode)
	require.Equal(t, 1, decoded.Value)
	require.Len(t, decoded.Children, 1)
	require.Equal(t, 2, decoded.Children[0].Value)
	require.Same(t, decoded, decoded.Children[0].Parent, "the cycle must resolve back to the same root instance")
}

func TestEngineRoundTripNilPointer(t *testing.T) {
	type holder struct {
		P *pair
	}
	Register[holder]()
	e := New()
	data, err := e.Marshal(holder{})
	require.NoError(t, err)
	got, err := e.Unmarshal(data, reflect.TypeOf(holder{}))
	require.NoError(t, err)
	require.Nil(t, got.(holder).P)
}

func TestEngineRoundTripSliceAndMap(t *testing.T) {
	type holder struct {
		Nums []int
		Tags map[string]int
	}
	Register[holder]()
	e := New()
	in := holder{Nums: []int{1, 2, 3}, Tags: map[string]int{"a": 1, "b": 2}}
	data, err := e.Marshal(in)
	require.NoError(t, err)
	got, err := e.Unmarshal(data, reflect.TypeOf(holder{}))
	require.NoError(t, err)
	require.Equal(t, in, got)
}

func TestEngineRejectsWrongVersion(t *testing.T) {
	e := New()
	data, err := e.Marshal(pair{A: 1})
	require.NoError(t, err)
	data[0] ^= 0xFF
	_, err = e.Unmarshal(data, reflect.TypeOf(pair{}))
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestEngineSettingsRoundTrip(t *testing.T) {
	Register[pair]()
	e := New(WithSettings(Settings{SkipMemberData: true}))
	data, err := e.Marshal(pair{A: 3, B: "three"})
	require.NoError(t, err)
	got, err := e.Unmarshal(data, reflect.TypeOf(pair{}))
	require.NoError(t, err)
	require.Equal(t, pair{A: 3, B: "three"}, got)
}

func TestEngineRoundTripInterfaceDeclaredStrings(t *testing.T) {
	// Two distinct strings written through interface-declared members
	// each carry their actual-type TypeData reference and decode back to
	// the same strings.
	type holder struct {
		A any
		B any
	}
	Register[holder]()
	e := New()
	data, err := e.Marshal(holder{A: "x", B: "y"})
	require.NoError(t, err)
	got, err := e.Unmarshal(data, reflect.TypeOf(holder{}))
	require.NoError(t, err)
	h := got.(holder)
	require.Equal(t, "x", h.A)
	require.Equal(t, "y", h.B)
}

func TestEngineRoundTripRegisteredGenericBehindAny(t *testing.T) {
	Register[box[int]]()
	type holder struct {
		V any
	}
	Register[holder]()
	e := New()
	data, err := e.Marshal(holder{V: box[int]{Value: 42}})
	require.NoError(t, err)
	got, err := e.Unmarshal(data, reflect.TypeOf(holder{}))
	require.NoError(t, err)
	h := got.(holder)
	b, ok := h.V.(box[int])
	require.True(t, ok, "a registered generic instantiation behind an any field must resolve to its concrete Go type, not an ObjectData fallback")
	require.Equal(t, 42, b.Value)
}

type chainLink struct {
	Next *chainLink
}

func TestEngineWriteRejectsExceedingMaxDepth(t *testing.T) {
	Register[chainLink]()
	head := &chainLink{}
	cur := head
	for i := 0; i < 10; i++ {
		cur.Next = &chainLink{}
		cur = cur.Next
	}
	e := New(WithMaxDepth(3))
	_, err := e.Marshal(head)
	require.ErrorIs(t, err, ErrMaxDepthExceeded)
}

func TestEngineReadRejectsExceedingMaxDepth(t *testing.T) {
	Register[chainLink]()
	head := &chainLink{}
	cur := head
	for i := 0; i < 10; i++ {
		cur.Next = &chainLink{}
		cur = cur.Next
	}
	data, err := New().Marshal(head)
	require.NoError(t, err)

	e := New(WithMaxDepth(3))
	_, err = e.Unmarshal(data, reflect.TypeOf(&chainLink{}))
	require.ErrorIs(t, err, ErrMaxDepthExceeded)
}

func TestSerializeDeserializeGenericHelpers(t *testing.T) {
	Register[pair]()
	e := New()
	data, err := Serialize(e, pair{A: 9, B: "nine"})
	require.NoError(t, err)
	got, err := Deserialize[pair](e, data)
	require.NoError(t, err)
	require.Equal(t, pair{A: 9, B: "nine"}, got)
}
