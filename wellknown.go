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

// wellKnownObjects is the fixed, shared preamble described in spec.md
// §3/§4.1: a slice of objects that both sides of a session agree on
// without ever writing their bodies to the wire. Index 0 of this slice
// is well-known id 1.
//
// Layout:
//
//	 1  TypeData of the universal top type (any)
//	 2  TypeData of string
//	 3  TypeData of TypeData itself
//	 4  TypeData of TypeData itself, again (legacy slot; see below)
//	 5  TypeData of the nullable wrapper (Go: pointer-to-T)
//	 6  the empty string ""
//	 7  TypeData of []byte
//	 8  TypeData of GUID
//	 9  TypeData of bool
//	10  TypeData of char (rune)
//	11  TypeData of byte (uint8)
//	12  TypeData of sbyte (int8)
//	13  TypeData of int16
//	14  TypeData of uint16
//	15  TypeData of int32
//	16  TypeData of uint32
//	17  TypeData of int64
//	18  TypeData of uint64
//	19  TypeData of float32
//	20  TypeData of float64
//	21  TypeData of decimal
//
// Slot 4 is not repurposed: the reference implementation's slot 4 was a
// self-referential second handle onto the TypeData-of-TypeData
// descriptor (the decision recorded in SPEC_FULL.md §9 for the "what is
// slot 4 for" open question), so this package reproduces that exactly -
// wellKnownObjects[2] and wellKnownObjects[3] are the same *TypeData
// value.
var wellKnownObjects []any

// wellKnownIDsByPtr lets identityOf-bearing well-known objects (the
// TypeData pointers) resolve back to their id on the write path, the
// same way Context.idsByPtr does for session-registered objects.
var wellKnownIDsByPtr map[uintptr]uint64

// typeDataOfTypeData is the TypeData self-descriptor occupying
// well-known slots 3 and 4. It is unexported and only reachable through
// the well-known table: a reader resolving id 3 or 4 gets this shared
// instance, while the writer emits TypeData references through session
// ids and never points at it.
var typeDataOfTypeData *TypeData

func init() {
	anyTD := &TypeData{Kind: KindObject, IsInterface: true, IsReference: true, FullName: "any"}
	stringTD := &TypeData{Kind: KindString, IsSealed: true, FullName: "string"}
	typeDataOfTypeData = &TypeData{
		Kind:     KindType,
		IsSealed: true,
		FullName: "TypeData",
	}
	nullableTD := &TypeData{
		Kind:        KindObject,
		IsReference: true,
		IsNullable:  true,
		IsSealed:    true,
		FullName:    "Nullable",
	}
	emptyString := ""
	bytesTD := &TypeData{Kind: KindBytes, IsReference: true, IsSealed: true, FullName: "[]byte"}
	guidTD := &TypeData{Kind: KindGuid, IsSealed: true, FullName: "GUID"}
	boolTD := &TypeData{Kind: KindBool, IsSealed: true, FullName: "bool"}
	charTD := &TypeData{Kind: KindChar, IsSealed: true, FullName: "char"}
	byteTD := &TypeData{Kind: KindUInt8, IsSealed: true, FullName: "byte"}
	sbyteTD := &TypeData{Kind: KindInt8, IsSealed: true, FullName: "sbyte"}
	i16TD := &TypeData{Kind: KindInt16, IsSealed: true, FullName: "int16"}
	u16TD := &TypeData{Kind: KindUInt16, IsSealed: true, FullName: "uint16"}
	i32TD := &TypeData{Kind: KindInt32, IsSealed: true, FullName: "int32"}
	u32TD := &TypeData{Kind: KindUInt32, IsSealed: true, FullName: "uint32"}
	i64TD := &TypeData{Kind: KindInt64, IsSealed: true, FullName: "int64"}
	u64TD := &TypeData{Kind: KindUInt64, IsSealed: true, FullName: "uint64"}
	f32TD := &TypeData{Kind: KindFloat32, IsSealed: true, FullName: "float32"}
	f64TD := &TypeData{Kind: KindFloat64, IsSealed: true, FullName: "float64"}
	decimalTD := &TypeData{Kind: KindDecimal, IsSealed: true, FullName: "decimal"}

	wellKnownObjects = []any{
		anyTD,           // 1
		stringTD,        // 2
		typeDataOfTypeData, // 3
		typeDataOfTypeData, // 4 (legacy duplicate handle, preserved on purpose)
		nullableTD,      // 5
		emptyString,     // 6
		bytesTD,         // 7
		guidTD,          // 8
		boolTD,          // 9
		charTD,          // 10
		byteTD,          // 11
		sbyteTD,         // 12
		i16TD,           // 13
		u16TD,           // 14
		i32TD,           // 15
		u32TD,           // 16
		i64TD,           // 17
		u64TD,           // 18
		f32TD,           // 19
		f64TD,           // 20
		decimalTD,       // 21
	}

	wellKnownIDsByPtr = make(map[uintptr]uint64, len(wellKnownObjects))
	seen := make(map[*TypeData]bool)
	for i, obj := range wellKnownObjects {
		id := uint64(i + 1)
		if td, ok := obj.(*TypeData); ok {
			if seen[td] {
				// Slot 4 intentionally repeats slot 3's pointer; keep the
				// first (lower) id as its canonical write-side identity.
				continue
			}
			seen[td] = true
			wellKnownIDsByPtr[reflect.ValueOf(td).Pointer()] = id
		}
	}
}
