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
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/spaolacci/murmur3"
)

// TDMember is the on-wire shadow of a Member: a field name paired with
// its declared TypeData.
type TDMember struct {
	Name string
	Type *TypeData
}

// TypeData is the on-wire shadow of a RuntimeType (spec.md §4.2). It is
// itself a reference object: two fields that point at the same TypeData
// are written/read through the ordinary id mechanism, which is how the
// well-known preamble gets referenced from inside other TypeData bodies.
type TypeData struct {
	// Flag word fields (spec.md §4.2 table). Unsupported is true only
	// for the synthetic zero flag word; every TypeData built by this
	// package from a resolvable RuntimeType has bit 0 set.
	Unsupported           bool
	IsInterface            bool
	IsCustomSerializable   bool
	IsReference            bool
	IsSealed               bool
	IsArray                bool
	IsNullable             bool
	IsEnum                 bool
	IsGeneric              bool
	IsGenericParameter     bool
	IsGenericDefinition    bool
	HasConverter           bool
	Kind                   PrimitiveKind
	Shape                  CollectionShape

	// Body (kind in {None, Object} only).
	Element   *TypeData
	Surrogate *TypeData

	GenericParams []*TypeData

	// Present only when not a constructed generic (not generic, or is
	// the generic definition itself).
	FullName              string
	Assembly              string
	GenericParameterIndex uint32
	BaseType              *TypeData
	ArrayRank             uint32

	// Present only when Surrogate==nil && !IsInterface && !IsArray &&
	// !IsEnum && !IsGenericParameter.
	Members     []TDMember
	Collection1 *TypeData // element type, or dict key type
	Collection2 *TypeData // dict value type

	// runtimeType is populated on the write side (and after successful
	// local resolution on the read side) so Writer/Reader don't need a
	// second lookup.
	runtimeType *RuntimeType

	// structHash is a murmur3 fingerprint of (FullName + member
	// name/kind sequence), computed lazily and cached. It lets the
	// Reader's version-tolerant field matcher (reader.go) skip straight
	// to positional matching when the wire layout and the local layout
	// are identical, instead of building a name-keyed member map.
	structHash     uint32
	structHashOnce sync.Once
}

// StructHash returns the structural fingerprint described above.
func (td *TypeData) StructHash() uint32 {
	td.structHashOnce.Do(func() {
		h := murmur3.New32()
		h.Write([]byte(td.FullName))
		for _, m := range td.Members {
			h.Write([]byte(m.Name))
			h.Write([]byte{byte(m.Type.Kind)})
		}
		td.structHash = h.Sum32()
	})
	return td.structHash
}

// unsupportedTypeData is the zero-flag-word TypeData used when a
// RuntimeType cannot be resolved on write (should not normally happen:
// the writer always has a live Go type) or, symmetrically, when decode
// encounters a flag word of exactly 0.
var unsupportedTypeData = &TypeData{Unsupported: true}

// ---------------------------------------------------------------------
// Flag word encode/decode
// ---------------------------------------------------------------------

const (
	flagBitSet                = 1 << 0
	flagBitIsInterface        = 1 << 1
	flagBitIsCustomSerial     = 1 << 2
	flagBitIsReference        = 1 << 3
	flagBitIsSealed           = 1 << 4
	flagBitIsArray            = 1 << 5
	flagBitIsNullable         = 1 << 6
	flagBitIsEnum             = 1 << 7
	flagBitIsGeneric          = 1 << 8
	flagBitIsGenericParameter = 1 << 9
	flagBitIsGenericDef       = 1 << 10
	flagBitHasConverter       = 1 << 11
	flagKindShift             = 12
	flagShapeShift            = flagKindShift + kindBits // 17
)

func (td *TypeData) encodeFlags() uint64 {
	if td.Unsupported {
		return 0
	}
	var v uint64 = flagBitSet
	if td.IsInterface {
		v |= flagBitIsInterface
	}
	if td.IsCustomSerializable {
		v |= flagBitIsCustomSerial
	}
	if td.IsReference {
		v |= flagBitIsReference
	}
	if td.IsSealed {
		v |= flagBitIsSealed
	}
	if td.IsArray {
		v |= flagBitIsArray
	}
	if td.IsNullable {
		v |= flagBitIsNullable
	}
	if td.IsEnum {
		v |= flagBitIsEnum
	}
	if td.IsGeneric {
		v |= flagBitIsGeneric
	}
	if td.IsGenericParameter {
		v |= flagBitIsGenericParameter
	}
	if td.IsGenericDefinition {
		v |= flagBitIsGenericDef
	}
	if td.HasConverter {
		v |= flagBitHasConverter
	}
	v |= uint64(td.Kind) << flagKindShift
	v |= uint64(td.Shape) << flagShapeShift
	return v
}

func decodeFlags(v uint64) *TypeData {
	if v == 0 {
		return &TypeData{Unsupported: true}
	}
	td := &TypeData{
		IsInterface:         v&flagBitIsInterface != 0,
		IsCustomSerializable: v&flagBitIsCustomSerial != 0,
		IsReference:         v&flagBitIsReference != 0,
		IsSealed:            v&flagBitIsSealed != 0,
		IsArray:             v&flagBitIsArray != 0,
		IsNullable:          v&flagBitIsNullable != 0,
		IsEnum:              v&flagBitIsEnum != 0,
		IsGeneric:           v&flagBitIsGeneric != 0,
		IsGenericParameter:  v&flagBitIsGenericParameter != 0,
		IsGenericDefinition: v&flagBitIsGenericDef != 0,
		HasConverter:        v&flagBitHasConverter != 0,
		Kind:                PrimitiveKind((v >> flagKindShift) & ((1 << kindBits) - 1)),
		Shape:               CollectionShape((v >> flagShapeShift) & ((1 << shapeBits) - 1)),
	}
	return td
}

// isConstructedGeneric reports whether td is a generic instantiation
// that is neither a definition nor a bare generic parameter - i.e. the
// case where spec.md §4.2 omits full_name/assembly/base/members and
// instead relies on substitution.
func (td *TypeData) isConstructedGeneric() bool {
	return td.IsGeneric && !td.IsGenericDefinition
}

// hasMemberSection reports whether this TypeData carries its own
// member/collection section on the wire (spec.md §4.2's third "only if"
// clause).
func (td *TypeData) hasMemberSection() bool {
	return td.Surrogate == nil && !td.IsInterface && !td.IsArray && !td.IsEnum && !td.IsGenericParameter
}

// ---------------------------------------------------------------------
// Generic-definition registry
// ---------------------------------------------------------------------

// genericDefinitions caches, per base name (e.g. "Box"), the TypeData
// built the first time any instantiation of that generic type is
// encountered. Every later instantiation with the same base name reuses
// the cached definition and only supplies fresh GenericParams.
var (
	genericDefMu    sync.Mutex
	genericDefCache = map[string]*TypeData{}
)

// splitGenericName splits a Go generic instantiation's reflect.Type.Name
// (e.g. "Box[int]" or "Pair[int,string]") into its base name and the
// comma-separated argument name list, respecting bracket nesting.
func splitGenericName(name string) (base string, args []string, ok bool) {
	open := strings.IndexByte(name, '[')
	if open < 0 || !strings.HasSuffix(name, "]") {
		return "", nil, false
	}
	base = name[:open]
	inner := name[open+1 : len(name)-1]
	depth := 0
	start := 0
	for i, r := range inner {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(inner[start:i]))
				start = i + 1
			}
		}
	}
	args = append(args, strings.TrimSpace(inner[start:]))
	return base, args, true
}

// joinGenericName is splitGenericName's inverse: it rebuilds the
// instantiated type name (e.g. "Box[int]") from a generic definition's
// base name and its substituted arguments' own FullNames. Used on the
// read side, where a constructed generic's FullName is never carried
// on the wire (spec.md §4.2's "only if" clause) and must be
// reconstructed from the definition + GenericParams instead.
func joinGenericName(base string, args []*TypeData) string {
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = a.FullName
	}
	return base + "[" + strings.Join(names, ",") + "]"
}

// genericArgTypeRegistry resolves a type-argument name (as it appears in
// a generic instantiation's name) to a reflect.Type, so the definition
// builder can recognize which struct fields vary by type parameter.
var (
	genericArgMu  sync.RWMutex
	genericArgReg = map[string]reflect.Type{}
)

// RegisterGenericArgName lets a caller teach the generic-substitution
// machinery how to resolve a named type argument back to a reflect.Type.
// Built-in scalar kinds are pre-registered; struct types used as
// generic arguments must be registered explicitly.
func RegisterGenericArgName(t reflect.Type) {
	genericArgMu.Lock()
	defer genericArgMu.Unlock()
	genericArgReg[t.Name()] = t
	genericArgReg[t.String()] = t
}

func init() {
	for _, t := range []reflect.Type{
		reflect.TypeOf(bool(false)), reflect.TypeOf(int8(0)), reflect.TypeOf(uint8(0)),
		reflect.TypeOf(int16(0)), reflect.TypeOf(uint16(0)), reflect.TypeOf(int32(0)),
		reflect.TypeOf(uint32(0)), reflect.TypeOf(int64(0)), reflect.TypeOf(uint64(0)),
		reflect.TypeOf(int(0)), reflect.TypeOf(uint(0)), reflect.TypeOf(float32(0)),
		reflect.TypeOf(float64(0)), reflect.TypeOf(""),
	} {
		RegisterGenericArgName(t)
	}
}

func resolveGenericArgType(name string) (reflect.Type, bool) {
	genericArgMu.RLock()
	defer genericArgMu.RUnlock()
	t, ok := genericArgReg[name]
	return t, ok
}

// buildGenericDefinition constructs (once per base name) the
// generic-definition TypeData for a generic struct type, replacing every
// field whose type matches one of argTypes with an IsGenericParameter
// placeholder at the matching index.
func buildGenericDefinition(base string, sample reflect.Type, argTypes []reflect.Type) *TypeData {
	genericDefMu.Lock()
	defer genericDefMu.Unlock()
	if td, ok := genericDefCache[base]; ok {
		return td
	}

	def := &TypeData{
		IsGeneric:           true,
		IsGenericDefinition: true,
		Kind:                KindObject,
		IsReference:         sample.Kind() == reflect.Ptr,
		IsSealed:            true,
		FullName:            base,
		Assembly:            sample.PkgPath(),
	}

	argIndex := func(ft reflect.Type) (int, bool) {
		for i, at := range argTypes {
			if ft == at {
				return i, true
			}
		}
		return -1, false
	}

	structType := sample
	for structType.Kind() == reflect.Ptr {
		structType = structType.Elem()
	}
	if structType.Kind() == reflect.Struct {
		for i := 0; i < structType.NumField(); i++ {
			f := structType.Field(i)
			if !f.IsExported() {
				continue
			}
			var fieldTD *TypeData
			if idx, ok := argIndex(f.Type); ok {
				fieldTD = &TypeData{IsGenericParameter: true, GenericParameterIndex: uint32(idx), Kind: KindNone}
			} else {
				fieldTD = BuildTypeData(RuntimeTypeOf(f.Type))
			}
			def.Members = append(def.Members, TDMember{Name: f.Name, Type: fieldTD})
		}
	}

	genericDefCache[base] = def
	return def
}

// substituteGeneric rebuilds the base/members/collection section of a
// constructed generic's TypeData by substituting concrete argument
// TypeDatas into its definition's placeholders (spec.md §4.2
// "Constructed-generic rule"). It is total on the shapes this package
// produces and idempotent: substituting a definition's own parameters
// back in returns an equivalent structure.
func substituteGeneric(def *TypeData, args []*TypeData) *TypeData {
	resolved := &TypeData{
		IsCustomSerializable: def.IsCustomSerializable,
		IsReference:          def.IsReference,
		IsSealed:             def.IsSealed,
		IsArray:              def.IsArray,
		IsNullable:           def.IsNullable,
		IsEnum:               def.IsEnum,
		Kind:                 def.Kind,
		Shape:                def.Shape,
		BaseType:             substituteOrNil(def.BaseType, args),
		Collection1:          substituteOrNil(def.Collection1, args),
		Collection2:          substituteOrNil(def.Collection2, args),
	}
	for _, m := range def.Members {
		var mt *TypeData
		if m.Type.IsGenericParameter {
			mt = args[m.Type.GenericParameterIndex]
		} else {
			mt = substituteOrNil(m.Type, args)
		}
		resolved.Members = append(resolved.Members, TDMember{Name: m.Name, Type: mt})
	}
	return resolved
}

func substituteOrNil(t *TypeData, args []*TypeData) *TypeData {
	if t == nil {
		return nil
	}
	if t.IsGenericParameter {
		return args[t.GenericParameterIndex]
	}
	return t
}

// ---------------------------------------------------------------------
// Building a TypeData from a RuntimeType (write side)
// ---------------------------------------------------------------------

// typeDataCache memoizes BuildTypeData per *RuntimeType (RuntimeTypeOf
// already interns one *RuntimeType per Go type, so the pointer itself is
// a valid cache key). Without this, a self-referential type - a struct
// with a pointer or slice field back to itself, e.g. a tree node with a
// Parent/Children field - would recurse through BuildTypeData forever:
// each call allocated a fresh *TypeData and kept descending into member
// types with no way to notice it had already started building this
// RuntimeType's TypeData. Caching the placeholder before populating it
// (mirroring RuntimeTypeOf's own placeholder-before-recurse fix) lets a
// cyclic member type resolve to the in-progress *TypeData instead of
// recursing again.
var (
	typeDataCacheMu sync.Mutex
	typeDataCache   = map[*RuntimeType]*TypeData{}
)

// BuildTypeData constructs the on-wire shadow of rt. It does not itself
// perform reference tracking; callers write the result through the
// ordinary Context id mechanism (writer.go).
func BuildTypeData(rt *RuntimeType) *TypeData {
	if rt == nil {
		return unsupportedTypeData
	}
	if rt.Kind == KindNone && !rt.IsEnum {
		return unsupportedTypeData
	}

	typeDataCacheMu.Lock()
	if td, ok := typeDataCache[rt]; ok {
		typeDataCacheMu.Unlock()
		return td
	}
	td := &TypeData{runtimeType: rt}
	typeDataCache[rt] = td
	typeDataCacheMu.Unlock()

	populateTypeData(td, rt)
	return td
}

func populateTypeData(td *TypeData, rt *RuntimeType) {
	td.IsInterface = rt.IsInterface
	td.IsCustomSerializable = rt.IsCustomSerializable
	td.IsReference = rt.IsReference
	td.IsSealed = rt.IsSealed
	td.IsArray = rt.IsArray
	td.IsNullable = rt.IsNullable
	td.IsEnum = rt.IsEnum
	td.HasConverter = rt.Converter != nil
	td.Kind = rt.Kind
	td.Shape = rt.CollectionShape
	td.FullName = rt.FullName
	td.Assembly = rt.Assembly
	td.ArrayRank = uint32(rt.ArrayRank)

	if rt.ElementType != nil {
		td.Element = BuildTypeData(rt.ElementType)
	}
	if rt.Surrogate != nil {
		td.Surrogate = BuildTypeData(RuntimeTypeOf(rt.Surrogate.SurrogateType()))
	}

	if base, args, ok := splitGenericName(rt.GoType.Name()); ok {
		argTypes := make([]reflect.Type, 0, len(args))
		argTDs := make([]*TypeData, 0, len(args))
		resolvable := true
		for _, a := range args {
			at, ok := resolveGenericArgType(a)
			if !ok {
				resolvable = false
				break
			}
			argTypes = append(argTypes, at)
			argTDs = append(argTDs, BuildTypeData(RuntimeTypeOf(at)))
		}
		if resolvable {
			def := buildGenericDefinition(base, rt.GoType, argTypes)
			td.IsGeneric = true
			td.IsGenericDefinition = false
			td.Element = def
			td.GenericParams = argTDs
			return // constructed generic: no member/base/collection section
		}
	}

	if !td.hasMemberSection() {
		return
	}

	for _, m := range rt.Members {
		td.Members = append(td.Members, TDMember{Name: m.Name, Type: BuildTypeData(m.DeclaredType)})
	}
	if rt.CollectionKeyType != nil {
		td.Collection1 = BuildTypeData(rt.CollectionKeyType)
	}
	if rt.CollectionElemType != nil {
		td.Collection2 = BuildTypeData(rt.CollectionElemType)
	}
}

func (td *TypeData) String() string {
	if td.Unsupported {
		return "TypeData(unsupported)"
	}
	return fmt.Sprintf("TypeData(%s, kind=%s)", td.FullName, td.Kind)
}
