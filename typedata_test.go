package reflection

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlagWordRoundTrip(t *testing.T) {
	td := &TypeData{
		IsInterface:  true,
		IsReference:  true,
		IsSealed:     false,
		Kind:         KindString,
		Shape:        ShapeUntypedList,
		HasConverter: true,
	}
	got := decodeFlags(td.encodeFlags())
	require.Equal(t, td.IsInterface, got.IsInterface)
	require.Equal(t, td.IsReference, got.IsReference)
	require.Equal(t, td.IsSealed, got.IsSealed)
	require.Equal(t, td.Kind, got.Kind)
	require.Equal(t, td.Shape, got.Shape)
	require.Equal(t, td.HasConverter, got.HasConverter)
	require.False(t, got.Unsupported)
}

func TestFlagWordZeroIsUnsupported(t *testing.T) {
	got := decodeFlags(0)
	require.True(t, got.Unsupported)
}

func TestStructHashStableAndOrderSensitive(t *testing.T) {
	a := &TypeData{FullName: "Pair", Members: []TDMember{
		{Name: "A", Type: &TypeData{Kind: KindInt32}},
		{Name: "B", Type: &TypeData{Kind: KindString}},
	}}
	b := &TypeData{FullName: "Pair", Members: []TDMember{
		{Name: "A", Type: &TypeData{Kind: KindInt32}},
		{Name: "B", Type: &TypeData{Kind: KindString}},
	}}
	require.Equal(t, a.StructHash(), b.StructHash())

	c := &TypeData{FullName: "Pair", Members: []TDMember{
		{Name: "B", Type: &TypeData{Kind: KindString}},
		{Name: "A", Type: &TypeData{Kind: KindInt32}},
	}}
	require.NotEqual(t, a.StructHash(), c.StructHash())
}

type box[T any] struct {
	Value T
}

func TestGenericDefinitionSharedAcrossInstantiations(t *testing.T) {
	intBox := RuntimeTypeOf(reflect.TypeOf(box[int]{}))
	strBox := RuntimeTypeOf(reflect.TypeOf(box[string]{}))

	intTD := BuildTypeData(intBox)
	strTD := BuildTypeData(strBox)

	require.True(t, intTD.IsGeneric)
	require.True(t, strTD.IsGeneric)
	require.False(t, intTD.IsGenericDefinition)
	require.Same(t, intTD.Element, strTD.Element, "both instantiations must share one generic definition")
	require.Len(t, intTD.GenericParams, 1)
	require.Equal(t, KindInt64, intTD.GenericParams[0].Kind)
	require.Equal(t, KindString, strTD.GenericParams[0].Kind)
}

func TestSubstituteGenericResolvesMemberType(t *testing.T) {
	intBox := RuntimeTypeOf(reflect.TypeOf(box[int]{}))
	td := BuildTypeData(intBox)
	resolved := substituteGeneric(td.Element, td.GenericParams)
	require.Len(t, resolved.Members, 1)
	require.Equal(t, "Value", resolved.Members[0].Name)
	require.Equal(t, KindInt64, resolved.Members[0].Type.Kind)
}
