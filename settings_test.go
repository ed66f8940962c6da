package reflection

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSettingsIgnoreConverterFallsBackToMemberwise(t *testing.T) {
	RegisterConverter(reflect.TypeOf(point2D{}), point2DConverter{})
	type shapeHolder2 struct {
		Origin point2D
	}
	Register[shapeHolder2]()
	e := New(WithSettings(Settings{IgnoreConverter: true}))
	data, err := e.Marshal(shapeHolder2{Origin: point2D{X: 5, Y: 6}})
	require.NoError(t, err)
	got, err := e.Unmarshal(data, reflect.TypeOf(shapeHolder2{}))
	require.NoError(t, err)
	require.Equal(t, shapeHolder2{Origin: point2D{X: 5, Y: 6}}, got)
}

func TestSettingsIgnoreCustomFallsBackToMemberwise(t *testing.T) {
	RegisterCustomSerializable(reflect.TypeOf(bagPair{}))
	type wrapBag struct {
		P bagPair
	}
	Register[wrapBag]()
	e := New(WithSettings(Settings{IgnoreCustom: true}))
	data, err := e.Marshal(wrapBag{P: bagPair{A: 1, B: "x"}})
	require.NoError(t, err)
	got, err := e.Unmarshal(data, reflect.TypeOf(wrapBag{}))
	require.NoError(t, err)
	require.Equal(t, wrapBag{P: bagPair{A: 1, B: "x"}}, got)
}

func TestSettingsDecodeRejectsUnknownBits(t *testing.T) {
	_, err := decodeSettings(1 << 10)
	require.ErrorIs(t, err, ErrMalformedStream)
}
