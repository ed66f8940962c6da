// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package reflection

import "reflect"

// anyGoType is Go's universal top type, the analogue of the spec's
// "object" reference slot.
var anyGoType = reflect.TypeOf((*any)(nil)).Elem()

// AnyType exposes anyGoType to callers outside the package, e.g. a
// dump tool decoding a stream without the producer's types registered.
func AnyType() reflect.Type { return anyGoType }

// anyRuntimeType is the RuntimeType of anyGoType, used as the declared
// type for elements of an untyped list/dict when no fixed element type
// was recorded.
var anyRuntimeType = RuntimeTypeOf(anyGoType)

// namedTypeRegistry resolves an on-wire (assembly, full_name) pair back
// to a concrete reflect.Type. The package-level Register[T] populates it; only types a
// program has explicitly registered can be materialized from an
// unsealed reference's actual-type TypeData. Anything else falls back
// to ObjectData (spec.md §4.5, §8 "unsupported type safety").
var namedTypeRegistry = map[string]reflect.Type{}

func namedTypeKey(assembly, fullName string) string { return assembly + "." + fullName }

// RegisterNamedType teaches the package how to resolve t's on-wire name
// back to a concrete Go type. Register[T] calls this for every type
// passed to it; it is exported directly for callers who bypass Register.
func RegisterNamedType(t reflect.Type) {
	namedTypeRegistry[namedTypeKey(t.PkgPath(), t.Name())] = t
}

// goTypeForKind maps a scalar PrimitiveKind back to the fixed Go type
// that represents it. Object/Type/None are not scalar and are not
// handled here.
func goTypeForKind(k PrimitiveKind) (reflect.Type, bool) {
	switch k {
	case KindString:
		return reflect.TypeOf(""), true
	case KindBytes:
		return reflect.TypeOf([]byte(nil)), true
	case KindGuid:
		return guidType, true
	case KindDecimal:
		return decimalType, true
	case KindBool:
		return reflect.TypeOf(false), true
	case KindChar:
		return reflect.TypeOf(rune(0)), true
	case KindInt8:
		return reflect.TypeOf(int8(0)), true
	case KindUInt8:
		return reflect.TypeOf(uint8(0)), true
	case KindInt16:
		return reflect.TypeOf(int16(0)), true
	case KindUInt16:
		return reflect.TypeOf(uint16(0)), true
	case KindInt32:
		return reflect.TypeOf(int32(0)), true
	case KindUInt32:
		return reflect.TypeOf(uint32(0)), true
	case KindInt64:
		return reflect.TypeOf(int64(0)), true
	case KindUInt64:
		return reflect.TypeOf(uint64(0)), true
	case KindFloat32:
		return reflect.TypeOf(float32(0)), true
	case KindFloat64:
		return reflect.TypeOf(float64(0)), true
	default:
		return nil, false
	}
}

// resolveRuntimeType rebuilds a *RuntimeType for a decoded TypeData,
// either by recognizing a scalar kind, looking up a registered named
// type, or - for collection shapes with no named Go type of their own -
// synthesizing a slice/map type from the (recursively resolved)
// element/key types. It returns false when nothing local can represent
// td, which is the signal to fall back to ObjectData.
func resolveRuntimeType(td *TypeData) (*RuntimeType, bool) {
	if td == nil || td.Unsupported {
		return nil, false
	}
	if t, ok := goTypeForKind(td.Kind); ok && !td.IsArray && !td.IsEnum && td.Shape == ShapeNone && len(td.Members) == 0 && td.Surrogate == nil {
		return RuntimeTypeOf(t), true
	}
	if td.IsGeneric && !td.IsGenericDefinition {
		// A constructed generic only resolves back to a concrete Go type
		// if the exact instantiation was registered (Register[Box[int]]());
		// readTypeDataBody reconstructs FullName/Assembly for this lookup
		// from the generic definition plus substituted arguments, since
		// neither is carried on the wire for a constructed generic
		// (spec.md §4.2's "only if" clause). Anything else falls back to
		// ObjectData, whose Members the same reconstruction already
		// populated, so no member data is lost either way.
		if td.FullName != "" {
			if t, ok := namedTypeRegistry[namedTypeKey(td.Assembly, td.FullName)]; ok {
				return RuntimeTypeOf(t), true
			}
		}
		return nil, false
	}
	if td.FullName != "" {
		if t, ok := namedTypeRegistry[namedTypeKey(td.Assembly, td.FullName)]; ok {
			return RuntimeTypeOf(t), true
		}
	}
	switch td.Shape {
	case ShapeTypedDict, ShapeUntypedDict:
		keyT := anyGoType
		if td.Collection1 != nil {
			if kt, ok := resolveRuntimeType(td.Collection1); ok {
				keyT = kt.GoType
			}
		}
		elemT := anyGoType
		if td.Collection2 != nil {
			if et, ok := resolveRuntimeType(td.Collection2); ok {
				elemT = et.GoType
			}
		}
		return RuntimeTypeOf(reflect.MapOf(keyT, elemT)), true
	case ShapeTypedCollection, ShapeUntypedList:
		elemT := anyGoType
		if td.Collection2 != nil {
			if et, ok := resolveRuntimeType(td.Collection2); ok {
				elemT = et.GoType
			}
		}
		return RuntimeTypeOf(reflect.SliceOf(elemT)), true
	}
	return nil, false
}
