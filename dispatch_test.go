package reflection

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type Color int

const (
	ColorRed Color = iota
	ColorGreen
	ColorBlue
)

type paletteHolder struct {
	Primary Color
	Accent  Color
}

func TestEnumRoundTrip(t *testing.T) {
	Register[paletteHolder]()
	e := New()
	data, err := e.Marshal(paletteHolder{Primary: ColorBlue, Accent: ColorGreen})
	require.NoError(t, err)
	got, err := e.Unmarshal(data, reflect.TypeOf(paletteHolder{}))
	require.NoError(t, err)
	require.Equal(t, paletteHolder{Primary: ColorBlue, Accent: ColorGreen}, got)
}

// celsius has a Surrogate registered that converts to/from a plain
// float64, exercising DispatchSurrogate on both write and read.
type celsius struct {
	Degrees float64
}

type celsiusSurrogate struct{}

func (celsiusSurrogate) Convert(original reflect.Value) (reflect.Value, error) {
	c := original.Interface().(celsius)
	return reflect.ValueOf(c.Degrees), nil
}

func (celsiusSurrogate) Revert(surrogate reflect.Value) (reflect.Value, error) {
	return reflect.ValueOf(celsius{Degrees: surrogate.Float()}), nil
}

func (celsiusSurrogate) SurrogateType() reflect.Type {
	return reflect.TypeOf(float64(0))
}

type weatherHolder struct {
	Temp celsius
}

func TestSurrogateRoundTrip(t *testing.T) {
	RegisterSurrogate(reflect.TypeOf(celsius{}), celsiusSurrogate{})
	Register[weatherHolder]()
	e := New()
	data, err := e.Marshal(weatherHolder{Temp: celsius{Degrees: 21.5}})
	require.NoError(t, err)
	got, err := e.Unmarshal(data, reflect.TypeOf(weatherHolder{}))
	require.NoError(t, err)
	require.Equal(t, weatherHolder{Temp: celsius{Degrees: 21.5}}, got)
}

// point2D has a Converter registered to/from its "x,y" string form,
// exercising DispatchConverter.
type point2D struct {
	X, Y int
}

type point2DConverter struct{}

func (point2DConverter) ToString(value reflect.Value) (string, error) {
	p := value.Interface().(point2D)
	return fmt.Sprintf("%d,%d", p.X, p.Y), nil
}

func (point2DConverter) FromString(s string, target reflect.Type) (reflect.Value, error) {
	var x, y int
	if _, err := fmt.Sscanf(s, "%d,%d", &x, &y); err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(point2D{X: x, Y: y}), nil
}

type shapeHolder struct {
	Origin point2D
}

func TestConverterRoundTrip(t *testing.T) {
	RegisterConverter(reflect.TypeOf(point2D{}), point2DConverter{})
	Register[shapeHolder]()
	e := New()
	data, err := e.Marshal(shapeHolder{Origin: point2D{X: 3, Y: -4}})
	require.NoError(t, err)
	got, err := e.Unmarshal(data, reflect.TypeOf(shapeHolder{}))
	require.NoError(t, err)
	require.Equal(t, shapeHolder{Origin: point2D{X: 3, Y: -4}}, got)
}

// bagPair implements CustomSerializable/CustomConstructible directly,
// exercising DispatchCustom on both sides.
type bagPair struct {
	A int
	B string
}

func (p bagPair) GetObjectData() (map[string]any, error) {
	return map[string]any{"A": p.A, "B": p.B}, nil
}

func (p *bagPair) SetObjectData(bag map[string]any) error {
	// An int bag value travels as KindInt64 and decodes as int64.
	if a, ok := bag["A"].(int64); ok {
		p.A = int(a)
	}
	if b, ok := bag["B"].(string); ok {
		p.B = b
	}
	return nil
}

func TestCustomSerializableRoundTrip(t *testing.T) {
	RegisterCustomSerializable(reflect.TypeOf(bagPair{}))
	Register[bagPair]()
	e := New()
	data, err := e.Marshal(bagPair{A: 11, B: "hi"})
	require.NoError(t, err)
	got, err := e.Unmarshal(data, reflect.TypeOf(bagPair{}))
	require.NoError(t, err)
	require.Equal(t, bagPair{A: 11, B: "hi"}, got)
}

func TestArrayRoundTripSingleRank(t *testing.T) {
	type gridHolder struct {
		Cells [3]int
	}
	Register[gridHolder]()
	e := New()
	data, err := e.Marshal(gridHolder{Cells: [3]int{1, 2, 3}})
	require.NoError(t, err)
	got, err := e.Unmarshal(data, reflect.TypeOf(gridHolder{}))
	require.NoError(t, err)
	require.Equal(t, gridHolder{Cells: [3]int{1, 2, 3}}, got)
}

func TestArrayRoundTripMultiRank(t *testing.T) {
	type boardHolder struct {
		Cells [2][2]int
	}
	Register[boardHolder]()
	e := New()
	in := boardHolder{Cells: [2][2]int{{1, 2}, {3, 4}}}
	data, err := e.Marshal(in)
	require.NoError(t, err)
	got, err := e.Unmarshal(data, reflect.TypeOf(boardHolder{}))
	require.NoError(t, err)
	require.Equal(t, in, got)
}
