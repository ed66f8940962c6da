package refl

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type point struct {
	X int
	Y int
}

type embedding struct {
	point
	Label string
}

func TestValueReflectorAddressableFromPointer(t *testing.T) {
	p := &point{X: 1, Y: 2}
	r := ValueReflector{Value: reflect.ValueOf(p).Elem()}
	require.True(t, r.Addressable().CanAddr())
	require.Equal(t, 1, int(r.Addressable().FieldByName("X").Int()))
}

func TestValueReflectorAddressableCopiesUnaddressableValue(t *testing.T) {
	r := ValueReflector{Value: reflect.ValueOf(point{X: 3, Y: 4})}
	require.False(t, r.Value.CanAddr())
	addr := r.Addressable()
	require.True(t, addr.CanAddr())
	require.Equal(t, int64(3), addr.FieldByName("X").Int())
}

func TestAccessorGetSet(t *testing.T) {
	p := &point{X: 5, Y: 6}
	r := ValueReflector{Value: reflect.ValueOf(p).Elem()}
	acc := Accessor{Index: []int{0}}
	require.Equal(t, int64(5), acc.Get(r).Int())

	acc.Set(r, reflect.ValueOf(42))
	require.Equal(t, 42, p.X)
}

func TestAccessorGetSetEmbeddedField(t *testing.T) {
	e := &embedding{point: point{X: 1, Y: 2}, Label: "a"}
	r := ValueReflector{Value: reflect.ValueOf(e).Elem()}

	xField, ok := reflect.TypeOf(embedding{}).FieldByName("X")
	require.True(t, ok)
	acc := Accessor{Index: xField.Index}

	require.Equal(t, int64(1), acc.Get(r).Int())
	acc.Set(r, reflect.ValueOf(99))
	require.Equal(t, 99, e.X)
}
