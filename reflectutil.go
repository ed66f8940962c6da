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

// anyPointerIdentity extracts a pointer-identity key for an arbitrary Go
// value already known to be reference-kind (pointer, map, or non-nil
// slice), used for tracking *ObjectData and *TypeData instances that
// never pass through a reflect.Value built from a struct field.
func anyPointerIdentity(v any) uintptr {
	return reflect.ValueOf(v).Pointer()
}

func anyGoTypeOf(v any) reflect.Type { return reflect.TypeOf(v) }

func anyReflectValueOf(v any) reflect.Value { return reflect.ValueOf(v) }

// asReflectValue wraps a previously-resolved object (from the id cache,
// or freshly constructed) as a reflect.Value assignable into a field or
// slot declared as declaredType. nil objects behind an interface or
// pointer declared type become the zero Value of that type.
func asReflectValue(obj any, declaredType reflect.Type) reflect.Value {
	if obj == nil {
		return reflect.Zero(declaredType)
	}
	return reflect.ValueOf(obj)
}

// enumOrdinal reads rv's underlying integer as an int64 ordinal for the
// wire, regardless of whether the named enum type is backed by a signed
// or unsigned Go kind: rv.Int() panics on a Uint* Kind, so unsigned enum
// types (e.g. type Color uint8) need rv.Uint() instead. The wire
// encoding itself stays a plain signed varint either way - enum ordinals
// are small and non-negative in practice, so reinterpreting an unsigned
// value as int64 never changes the bytes written.
func enumOrdinal(rv reflect.Value) int64 {
	if isUnsignedKind(rv.Kind()) {
		return int64(rv.Uint())
	}
	return rv.Int()
}

// setEnumOrdinal assigns a wire-decoded enum ordinal back into value,
// using SetUint instead of SetInt when the local type is backed by an
// unsigned Go kind (the read-side counterpart of enumOrdinal).
func setEnumOrdinal(value reflect.Value, n int64) {
	if isUnsignedKind(value.Kind()) {
		value.SetUint(uint64(n))
		return
	}
	value.SetInt(n)
}

func isUnsignedKind(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}
