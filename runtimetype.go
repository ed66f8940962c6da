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

import (
	"reflect"
	"sync"
)

// Surrogate converts a value to/from a companion representation for
// serialization purposes. Convert runs at write time (original ->
// surrogate); Revert runs at read time (surrogate -> original).
type Surrogate interface {
	Convert(original reflect.Value) (reflect.Value, error)
	Revert(surrogate reflect.Value) (reflect.Value, error)
	// SurrogateType is the type Convert produces and Revert consumes.
	SurrogateType() reflect.Type
}

// Converter is a bidirectional string representation of a value,
// invariant-culture per spec.md's glossary (i.e. independent of any
// runtime locale).
type Converter interface {
	ToString(value reflect.Value) (string, error)
	FromString(s string, target reflect.Type) (reflect.Value, error)
}

// CustomSerializable is the capability by which a type emits a
// named-value bag and reconstructs itself from the same bag (spec.md
// §3, §4.3, §4.4).
type CustomSerializable interface {
	GetObjectData() (map[string]any, error)
}

// CustomConstructible is implemented by a pointer receiver that can
// rebuild itself from the named-value bag produced by CustomSerializable.
type CustomConstructible interface {
	SetObjectData(map[string]any) error
}

// PostDeserializer is invoked once, in id order, after an entire read
// session's recursion unwinds to depth 0 (spec.md §4.4 step 9).
type PostDeserializer interface {
	OnDeserialized()
}

// Member describes one field of a RuntimeType: its name and declared
// type.
type Member struct {
	Name         string
	DeclaredType *RuntimeType
	Index        []int // reflect.Value.FieldByIndex path (supports embedding)
}

// RuntimeType is the local reflection facade described in spec.md §3. It
// is process-global and interned: two calls to RuntimeTypeOf with the
// same reflect.Type return the same *RuntimeType.
type RuntimeType struct {
	GoType reflect.Type
	Kind   PrimitiveKind

	IsReference         bool
	IsSealed            bool
	IsInterface         bool
	IsEnum              bool
	IsArray             bool
	ArrayRank           int
	IsNullable          bool
	IsGeneric           bool
	IsGenericDefinition bool

	BaseType    *RuntimeType // always nil: Go has no type inheritance
	ElementType *RuntimeType // slice/array/pointer/nullable element

	Surrogate           Surrogate
	Converter           Converter
	IsCustomSerializable bool

	Members []Member

	CollectionShape    CollectionShape
	CollectionKeyType  *RuntimeType // TypedDict key
	CollectionElemType *RuntimeType // TypedCollection / TypedDict value

	FullName string
	Assembly string
}

var (
	runtimeTypeCacheMu sync.RWMutex
	runtimeTypeCache   = map[reflect.Type]*RuntimeType{}
)

// registryMu guards surrogateRegistry, converterRegistry and
// customSerializableOf, which let callers attach a
// Surrogate/Converter to a Go type without modifying the type itself
// (mirrors the teacher's GenericRegistry: populated once under a mutex,
// read without locking afterwards is NOT done here since registration
// can happen at any time - every lookup takes the read lock, which is
// cheap relative to the rest of encoding).
var (
	registryMu          sync.RWMutex
	surrogateRegistry    = map[reflect.Type]Surrogate{}
	converterRegistry    = map[reflect.Type]Converter{}
	customSerializableOf = map[reflect.Type]bool{}
)

// RegisterSurrogate attaches a Surrogate to goType, taking priority over
// any Converter or CustomSerializable path per the §4.3 dispatch order.
func RegisterSurrogate(goType reflect.Type, s Surrogate) {
	registryMu.Lock()
	defer registryMu.Unlock()
	surrogateRegistry[goType] = s
	invalidateCache(goType)
}

// RegisterConverter attaches a Converter to goType.
func RegisterConverter(goType reflect.Type, c Converter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	converterRegistry[goType] = c
	invalidateCache(goType)
}

func invalidateCache(goType reflect.Type) {
	runtimeTypeCacheMu.Lock()
	defer runtimeTypeCacheMu.Unlock()
	delete(runtimeTypeCache, goType)
}

// RuntimeTypeOf returns the interned RuntimeType describing goType,
// building and caching it on first use. Guarded by a mutex during
// population; repeat lookups for already-cached types only take the read
// lock.
//
// The write lock is released before buildRuntimeType runs: struct and
// collection types recurse back into RuntimeTypeOf for their
// field/element/key types (membersOf below, and the Ptr/Map/Slice/Array
// cases), and a self- or mutually-referential type graph (e.g. a tree
// node holding a pointer back to itself) would re-enter this same
// goroutine's RLock while the outer Lock is still held - sync.RWMutex
// gives no reentrancy, so that would deadlock on the very first struct
// ever looked up. A placeholder is cached before population so the
// recursive lookup finds it immediately instead of re-entering the lock.
func RuntimeTypeOf(goType reflect.Type) *RuntimeType {
	runtimeTypeCacheMu.RLock()
	rt, ok := runtimeTypeCache[goType]
	runtimeTypeCacheMu.RUnlock()
	if ok {
		return rt
	}

	runtimeTypeCacheMu.Lock()
	if rt, ok := runtimeTypeCache[goType]; ok {
		runtimeTypeCacheMu.Unlock()
		return rt
	}
	rt = &RuntimeType{GoType: goType}
	runtimeTypeCache[goType] = rt
	runtimeTypeCacheMu.Unlock()

	buildRuntimeType(rt, goType)
	return rt
}

func buildRuntimeType(rt *RuntimeType, t reflect.Type) {
	rt.FullName = t.Name()
	rt.Assembly = t.PkgPath()

	registryMu.RLock()
	rt.Surrogate = surrogateRegistry[t]
	rt.Converter = converterRegistry[t]
	registryMu.RUnlock()

	switch {
	case t == guidType:
		rt.Kind = KindGuid
		rt.IsSealed = true
		return
	case t == decimalType:
		rt.Kind = KindDecimal
		rt.IsSealed = true
		return
	}

	switch t.Kind() {
	case reflect.Interface:
		rt.Kind = KindObject
		rt.IsInterface = true
		rt.IsReference = true
		rt.IsSealed = false
	case reflect.Ptr:
		rt.Kind = KindObject
		rt.IsReference = true
		rt.IsSealed = true
		rt.ElementType = RuntimeTypeOf(t.Elem())
	case reflect.Struct:
		rt.Kind = KindObject
		rt.IsReference = false
		rt.IsSealed = true
		rt.Members = membersOf(t)
	case reflect.Map:
		rt.Kind = KindObject
		rt.IsReference = true
		rt.IsSealed = true
		rt.CollectionShape = ShapeUntypedDict
		if isAnyType(t.Key()) || isAnyType(t.Elem()) {
			rt.CollectionShape = ShapeUntypedDict
		} else {
			rt.CollectionShape = ShapeTypedDict
			rt.CollectionKeyType = RuntimeTypeOf(t.Key())
			rt.CollectionElemType = RuntimeTypeOf(t.Elem())
		}
	case reflect.Slice:
		rt.Kind = KindObject
		rt.IsReference = true
		rt.IsSealed = true
		if t.Elem().Kind() == reflect.Uint8 {
			rt.Kind = KindBytes
			break
		}
		if isAnyType(t.Elem()) {
			rt.CollectionShape = ShapeUntypedList
		} else {
			rt.CollectionShape = ShapeTypedCollection
			rt.CollectionElemType = RuntimeTypeOf(t.Elem())
		}
	case reflect.Array:
		rt.Kind = KindObject
		rt.IsReference = false
		rt.IsSealed = true
		rt.IsArray = true
		rt.ArrayRank = 1
		rt.ElementType = RuntimeTypeOf(t.Elem())
		if inner := rt.ElementType; inner.IsArray {
			rt.ArrayRank = inner.ArrayRank + 1
			rt.ElementType = inner.ElementType
		}
	default:
		// isEnumType's range spans both signed and unsigned named
		// integer kinds (type Color uint8 is just as conventional a Go
		// enum as type Color int); the ordinal is always moved through
		// an int64 on its way to the wire (enumOrdinal/setEnumOrdinal in
		// reflectutil.go use Uint()/SetUint() for the unsigned kinds, to
		// avoid reflect.Value.Int()/SetInt panicking on them).
		if t.Kind() >= reflect.Int && t.Kind() <= reflect.Uint64 && isEnumType(t) {
			rt.IsEnum = true
			rt.Kind = KindInt32
			rt.IsSealed = true
			return
		}
		rt.Kind = primitiveKindOfReflectKind(t.Kind())
		rt.IsSealed = true
		if t.Kind() == reflect.String && t.Name() != "string" {
			// Named string types keep KindString but remain sealed value types.
			rt.Kind = KindString
		}
	}

	if rt.Surrogate != nil || rt.Converter != nil {
		rt.Kind = KindObject
	}
	registryMu.RLock()
	rt.IsCustomSerializable = customSerializableOf[t]
	registryMu.RUnlock()
}

// isAnyType reports whether t is the universal top type (interface{}).
func isAnyType(t reflect.Type) bool {
	return t.Kind() == reflect.Interface && t.NumMethod() == 0
}

// isEnumType is a heuristic: a defined (named) integer type is treated
// as an enum, matching how Go programs conventionally declare enums
// (type Color int; const ( Red Color = iota; ... )).
func isEnumType(t reflect.Type) bool {
	return t.Name() != "" && t.PkgPath() != ""
}

// membersOf enumerates exported struct fields in declaration order. Go
// has no base/derived split, so "inherited (base-first) then declared"
// from spec.md §4.2 collapses to "embedded fields in their declared
// position, then the rest" - reflect.VisibleFields already returns
// exactly that order for embedded structs.
func membersOf(t reflect.Type) []Member {
	fields := reflect.VisibleFields(t)
	members := make([]Member, 0, len(fields))
	for _, f := range fields {
		if !f.IsExported() {
			continue
		}
		members = append(members, Member{
			Name:         f.Name,
			DeclaredType: RuntimeTypeOf(f.Type),
			Index:        f.Index,
		})
	}
	return members
}

// RegisterCustomSerializable marks goType as implementing the
// custom-serializable protocol (CustomSerializable/CustomConstructible).
// Types discovered to implement the interfaces directly are detected
// automatically by the Writer/Reader; this registry only matters for
// value (non-pointer) receivers where the interface check must be done
// against the addressable form.
func RegisterCustomSerializable(goType reflect.Type) {
	registryMu.Lock()
	defer registryMu.Unlock()
	customSerializableOf[goType] = true
	invalidateCache(goType)
}
