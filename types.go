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

// PrimitiveKind is the closed tag set from which every TypeData derives
// its dispatch behavior. Object means "user-defined reference or value";
// None means "unsupported" (decoding such a type produces an ObjectData
// carrying only the type data, never a value).
type PrimitiveKind uint8

const (
	KindNone PrimitiveKind = iota
	KindObject
	KindType
	KindString
	KindBytes
	KindGuid
	KindBool
	KindChar
	KindInt8
	KindUInt8
	KindInt16
	KindUInt16
	KindInt32
	KindUInt32
	KindInt64
	KindUInt64
	KindFloat32
	KindFloat64
	KindDecimal
)

// kindBits is the width of the PrimitiveKind field in the TypeData flag
// word (§4.2 of the spec: bits 12-16, 5 bits).
const kindBits = 5

func (k PrimitiveKind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindObject:
		return "Object"
	case KindType:
		return "Type"
	case KindString:
		return "String"
	case KindBytes:
		return "Bytes"
	case KindGuid:
		return "Guid"
	case KindBool:
		return "Bool"
	case KindChar:
		return "Char"
	case KindInt8:
		return "Int8"
	case KindUInt8:
		return "UInt8"
	case KindInt16:
		return "Int16"
	case KindUInt16:
		return "UInt16"
	case KindInt32:
		return "Int32"
	case KindUInt32:
		return "UInt32"
	case KindInt64:
		return "Int64"
	case KindUInt64:
		return "UInt64"
	case KindFloat32:
		return "Float32"
	case KindFloat64:
		return "Float64"
	case KindDecimal:
		return "Decimal"
	default:
		return "Unknown"
	}
}

// IsScalar reports whether the kind is emitted as a bare fixed/varint
// scalar rather than through the Object dispatch branches (array,
// nullable, enum, member-wise).
func (k PrimitiveKind) IsScalar() bool {
	switch k {
	case KindString, KindBytes, KindGuid, KindBool, KindChar,
		KindInt8, KindUInt8, KindInt16, KindUInt16,
		KindInt32, KindUInt32, KindInt64, KindUInt64,
		KindFloat32, KindFloat64, KindDecimal:
		return true
	default:
		return false
	}
}

// guidType and decimalType let callers register the well-known scalar
// wrapper types without importing google/uuid or shopspring/decimal
// directly in every call site.
var (
	guidType    = reflect.TypeOf(GUID{})
	decimalType = reflect.TypeOf(Decimal{})
)

// primitiveKindOfReflectKind maps a reflect.Kind to the closed
// PrimitiveKind set for the built-in scalar types and String. It does not
// attempt to recognize Object, Type, Bytes, Guid, or Decimal — those are
// resolved by the caller (RuntimeType construction) against concrete Go
// types first.
func primitiveKindOfReflectKind(k reflect.Kind) PrimitiveKind {
	switch k {
	case reflect.Bool:
		return KindBool
	case reflect.Int8:
		return KindInt8
	case reflect.Uint8:
		return KindUInt8
	case reflect.Int16:
		return KindInt16
	case reflect.Uint16:
		return KindUInt16
	case reflect.Int32:
		return KindInt32
	case reflect.Uint32:
		return KindUInt32
	case reflect.Int64, reflect.Int:
		return KindInt64
	case reflect.Uint64, reflect.Uint:
		return KindUInt64
	case reflect.Float32:
		return KindFloat32
	case reflect.Float64:
		return KindFloat64
	case reflect.String:
		return KindString
	default:
		return KindNone
	}
}

// CollectionShape classifies how a reference type exposes its elements,
// used both by RuntimeType (the live reflection facade) and TypeData (the
// on-wire shadow). It occupies bits 17-19 of the TypeData flag word (3
// bits, so values 0-7; only 0-4 are defined).
type CollectionShape uint8

const (
	ShapeNone CollectionShape = iota
	ShapeUntypedList
	ShapeUntypedDict
	ShapeTypedCollection
	ShapeTypedDict
)

const shapeBits = 3
