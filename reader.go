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

	"github.com/rs/zerolog"
)

// Reader is the decoding state machine described in spec.md §4.4: a
// Context plus a PrimitiveReader, applying the same dispatch-priority
// rules Writer used on the way out and registering every reference id
// before recursing into its body, so cyclic graphs decode without
// special-casing.
type Reader struct {
	ctx      *Context
	buf      *PrimitiveReader
	settings Settings
	depth    int
	maxDepth int
	pending  []PostDeserializer
	metrics  *Metrics
	logger   zerolog.Logger
}

// NewReader wraps data for a single read session.
func NewReader(data []byte) *Reader {
	return &Reader{ctx: NewContext(), buf: NewPrimitiveReader(data), logger: Log}
}

// Reset rebinds the reader to a new buffer for reuse across calls,
// mirroring Writer.Reset and the teacher's pooled ReadContext. The
// logger survives Reset: it is tied to the Engine session, not to one
// Marshal/Unmarshal call.
func (r *Reader) Reset(data []byte) {
	r.ctx.Reset()
	r.buf = NewPrimitiveReader(data)
	r.settings = Settings{}
	r.depth = 0
	r.pending = r.pending[:0]
}

// ReadObject decodes one top-level value declared as target.
func (r *Reader) ReadObject(target reflect.Type) (any, error) {
	v, err := r.readTop(RuntimeTypeOf(target))
	if err != nil {
		return nil, err
	}
	if !v.IsValid() {
		return nil, nil
	}
	return v.Interface(), nil
}

func (r *Reader) readTop(declared *RuntimeType) (reflect.Value, error) {
	sv, err := r.buf.ReadVarUint()
	if err != nil {
		return reflect.Value{}, err
	}
	s, err := decodeSettings(sv)
	if err != nil {
		return reflect.Value{}, err
	}
	r.settings = s
	v, err := r.readValue(declared)
	r.flushPostDeserialize()
	return v, err
}

// flushPostDeserialize runs the collected callbacks in id order: it walks
// the context's id-indexed object table and calls each completed object's
// hook when its slot comes up. Callbacks on values without a pointer
// identity run last, in completion order.
func (r *Reader) flushPostDeserialize() {
	byPtr := make(map[uintptr]PostDeserializer, len(r.pending))
	var rest []PostDeserializer
	for _, pd := range r.pending {
		if p, ok := identityOf(reflect.ValueOf(pd)); ok {
			byPtr[p] = pd
		} else {
			rest = append(rest, pd)
		}
	}
	for _, obj := range r.ctx.objects {
		if p, ok := identityOf(reflect.ValueOf(obj)); ok {
			if pd, found := byPtr[p]; found {
				delete(byPtr, p)
				pd.OnDeserialized()
			}
		}
	}
	for _, pd := range rest {
		pd.OnDeserialized()
	}
	r.pending = r.pending[:0]
}

// readValue is the general entry point for decoding one value declared
// as declared's type. Every member, element, and key/value recursion
// passes back through here, which makes it the single place to enforce
// WithMaxDepth against a wire crafted (or corrupted) with unbounded
// nesting, the read-side counterpart of Writer.writeValue's guard.
func (r *Reader) readValue(declared *RuntimeType) (reflect.Value, error) {
	if declared == nil {
		return reflect.Value{}, fmt.Errorf("reflection: nil declared type: %w", ErrUnresolvedType)
	}
	r.depth++
	defer func() { r.depth-- }()
	if r.maxDepth > 0 && r.depth > r.maxDepth {
		return reflect.Value{}, fmt.Errorf("reflection: %s: %w", declared.FullName, ErrMaxDepthExceeded)
	}
	if declared.IsReference {
		return r.readReference(declared)
	}
	v := reflect.New(declared.GoType).Elem()
	if err := r.readBodyInto(declared, v, v.Addr()); err != nil {
		return reflect.Value{}, err
	}
	return v, nil
}

func (r *Reader) readReference(declared *RuntimeType) (reflect.Value, error) {
	id, err := r.buf.ReadVarUint()
	if err != nil {
		return reflect.Value{}, err
	}
	if id == 0 {
		return reflect.Zero(declared.GoType), nil
	}
	if obj, ok := r.ctx.TryGetObject(id); ok {
		return asReflectValue(obj, declared.GoType), nil
	}

	actualRT := declared
	if declared.IsInterface {
		td, err := r.readTypeDataRef()
		if err != nil {
			return reflect.Value{}, err
		}
		resolved, ok := resolveRuntimeType(td)
		if !ok {
			r.logger.Warn().Str("type", td.FullName).Str("assembly", td.Assembly).Msg("unresolved type, falling back to ObjectData")
			if r.metrics != nil {
				r.metrics.UnresolvedTypes.Inc()
			}
			od := &ObjectData{TypeData: td}
			if err := r.ctx.Register(id, od); err != nil {
				return reflect.Value{}, err
			}
			if err := r.fillObjectData(od); err != nil {
				return reflect.Value{}, err
			}
			return asReflectValue(od, declared.GoType), nil
		}
		actualRT = resolved
	}

	v, err := r.readReferenceBody(actualRT, id)
	if err != nil {
		return reflect.Value{}, err
	}
	if v.CanInterface() {
		if pd, ok := v.Interface().(PostDeserializer); ok {
			r.pending = append(r.pending, pd)
		}
	}
	return asReflectValue(v.Interface(), declared.GoType), nil
}

// readReferenceBody materializes and registers (before filling) a fresh
// reference-kind value of actualRT's shape: a pointer-to-struct, a map,
// a slice, or a []byte. This is the register-before-body rule applied
// per container kind (spec.md §4.1/§4.4). A value-kind actual type held
// behind an interface (a string, a struct value) cannot be part of a
// cycle, so it is decoded in place and registered after its body.
func (r *Reader) readReferenceBody(actualRT *RuntimeType, id uint64) (reflect.Value, error) {
	t := actualRT.GoType
	switch {
	case actualRT.Kind == KindBytes:
		b, err := r.buf.ReadBytes()
		if err != nil {
			return reflect.Value{}, err
		}
		v := reflect.ValueOf(b)
		if err := r.ctx.Register(id, v.Interface()); err != nil {
			return reflect.Value{}, err
		}
		return v, nil
	case t.Kind() == reflect.Ptr:
		ptr := reflect.New(t.Elem())
		if err := r.ctx.Register(id, ptr.Interface()); err != nil {
			return reflect.Value{}, err
		}
		if err := r.readBodyInto(actualRT.ElementType, ptr.Elem(), ptr); err != nil {
			return reflect.Value{}, err
		}
		return ptr, nil
	case t.Kind() == reflect.Map:
		m := reflect.MakeMapWithSize(t, 0)
		if err := r.ctx.Register(id, m.Interface()); err != nil {
			return reflect.Value{}, err
		}
		if err := r.readMapInto(actualRT, m); err != nil {
			return reflect.Value{}, err
		}
		return m, nil
	case t.Kind() == reflect.Slice:
		count, err := r.buf.ReadVarUint()
		if err != nil {
			return reflect.Value{}, err
		}
		s := reflect.MakeSlice(t, int(count), int(count))
		if err := r.ctx.Register(id, s.Interface()); err != nil {
			return reflect.Value{}, err
		}
		elemDeclared := actualRT.CollectionElemType
		if elemDeclared == nil {
			elemDeclared = anyRuntimeType
		}
		for i := 0; i < int(count); i++ {
			ev, err := r.readValue(elemDeclared)
			if err != nil {
				return reflect.Value{}, err
			}
			if ev.IsValid() {
				s.Index(i).Set(ev)
			}
		}
		return s, nil
	default:
		v := reflect.New(t).Elem()
		if err := r.readBodyInto(actualRT, v, v.Addr()); err != nil {
			return reflect.Value{}, err
		}
		if err := r.ctx.Register(id, v.Interface()); err != nil {
			return reflect.Value{}, err
		}
		return v, nil
	}
}

func (r *Reader) readMapInto(actualRT *RuntimeType, m reflect.Value) (err error) {
	count, err := r.buf.ReadVarUint()
	if err != nil {
		return err
	}
	keyDeclared := actualRT.CollectionKeyType
	if keyDeclared == nil {
		keyDeclared = anyRuntimeType
	}
	elemDeclared := actualRT.CollectionElemType
	if elemDeclared == nil {
		elemDeclared = anyRuntimeType
	}
	for i := uint64(0); i < count; i++ {
		k, err := r.readValue(keyDeclared)
		if err != nil {
			return err
		}
		v, err := r.readValue(elemDeclared)
		if err != nil {
			return err
		}
		if err := setReflectMapIndex(m, k, v); err != nil {
			return err
		}
	}
	return nil
}

// setReflectMapIndex guards SetMapIndex against Go's comparability
// requirement, the same concern setDictEntry documents for the
// ObjectData fallback path.
func setReflectMapIndex(m, k, v reflect.Value) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("reflection: untyped dict key %v is not comparable: %w", k, ErrConstructionFailed)
		}
	}()
	m.SetMapIndex(k, v)
	return nil
}

// readBodyInto decodes value's body in place. addr is value.Addr(),
// passed separately so custom-serializable/surrogate/converter receiver
// methods can be resolved against the pointer form.
func (r *Reader) readBodyInto(rt *RuntimeType, value reflect.Value, addr reflect.Value) error {
	customOK := false
	if addr.IsValid() && addr.CanInterface() {
		if _, ok := addr.Interface().(CustomConstructible); ok {
			customOK = true
		}
	}
	switch dispatchFor(rt, r.settings, customOK) {
	case DispatchSurrogate:
		sv, err := r.readValue(RuntimeTypeOf(rt.Surrogate.SurrogateType()))
		if err != nil {
			return err
		}
		orig, err := rt.Surrogate.Revert(sv)
		if err != nil {
			return fmt.Errorf("reflection: surrogate revert %s: %w", rt.FullName, err)
		}
		value.Set(orig)
		return nil
	case DispatchConverter:
		s, err := r.buf.ReadString()
		if err != nil {
			return err
		}
		parsed, err := rt.Converter.FromString(s, rt.GoType)
		if err != nil {
			return fmt.Errorf("reflection: converter parse %q for %s: %w", s, rt.FullName, err)
		}
		value.Set(parsed)
		return nil
	case DispatchCustom:
		bag, err := r.readBag()
		if err != nil {
			return err
		}
		cc, ok := addr.Interface().(CustomConstructible)
		if !ok {
			return fmt.Errorf("reflection: %s has no CustomConstructible receiver: %w", rt.FullName, ErrConstructionFailed)
		}
		return cc.SetObjectData(bag)
	case DispatchArray:
		return r.readArrayInto(rt, value)
	case DispatchEnum:
		n, err := r.buf.ReadVarInt()
		if err != nil {
			return err
		}
		setEnumOrdinal(value, n)
		return nil
	case DispatchMemberwise:
		return r.readMembersInto(rt, value)
	case DispatchCollection:
		return fmt.Errorf("reflection: %s: value-kind collections are not supported: %w", rt.FullName, ErrMalformedStream)
	case DispatchPrimitive:
		return r.readScalarInto(rt.Kind, value)
	default:
		return fmt.Errorf("reflection: %s: %w", rt.FullName, ErrUnresolvedType)
	}
}

func (r *Reader) readArrayInto(rt *RuntimeType, value reflect.Value) error {
	dims := make([]int, rt.ArrayRank)
	for i := range dims {
		n, err := r.buf.ReadVarUint()
		if err != nil {
			return err
		}
		dims[i] = int(n)
	}
	return r.readArrayLevelInto(rt.ElementType, rt.ArrayRank, value, dims)
}

func (r *Reader) readArrayLevelInto(elemType *RuntimeType, rank int, value reflect.Value, dims []int) error {
	if rank == 0 {
		v, err := r.readValue(elemType)
		if err != nil {
			return err
		}
		if v.IsValid() {
			value.Set(v)
		}
		return nil
	}
	n := dims[0]
	if value.Len() < n {
		n = value.Len()
	}
	for i := 0; i < n; i++ {
		if err := r.readArrayLevelInto(elemType, rank-1, value.Index(i), dims[1:]); err != nil {
			return err
		}
	}
	return nil
}

// readMembersInto applies spec.md §4.4's version-tolerant field matching:
// the wire carries each member's name and its own TypeData, so members
// present on the wire but absent locally are fully decoded (preserving
// stream alignment and, where the member's own type is resolvable,
// cycle/reference consistency) and then discarded.
//
// The wire also carries the writer's StructHash (typedata.go) ahead of
// the member count. When it matches the local type's own StructHash -
// same full name, same member names and kinds in the same order - the
// wire layout is known to match the local layout exactly, so each
// member resolves positionally instead of through the name-keyed map
// the mismatched case builds and falls back to.
func (r *Reader) readMembersInto(rt *RuntimeType, value reflect.Value) error {
	wireHash, err := r.buf.ReadVarUint()
	if err != nil {
		return err
	}
	n, err := r.buf.ReadVarUint()
	if err != nil {
		return err
	}
	fastPath := uint32(wireHash) == BuildTypeData(rt).StructHash() && n == uint64(len(rt.Members))
	var localByName map[string]Member
	if !fastPath {
		localByName = make(map[string]Member, len(rt.Members))
		for _, m := range rt.Members {
			localByName[m.Name] = m
		}
	}
	for i := uint64(0); i < n; i++ {
		var name string
		if !r.settings.SkipMemberData {
			if name, err = r.buf.ReadString(); err != nil {
				return err
			}
		} else if int(i) < len(rt.Members) {
			name = rt.Members[i].Name
		}
		wireTD, err := r.readTypeDataRef()
		if err != nil {
			return err
		}
		var local Member
		var ok bool
		if fastPath {
			local, ok = rt.Members[i], true
		} else {
			local, ok = localByName[name]
		}
		if !ok {
			r.logger.Debug().Str("member", name).Str("type", rt.FullName).Msg("discarding unresolved member")
			if r.metrics != nil {
				r.metrics.UnresolvedFields.Inc()
			}
			if _, err := r.readValueFromTypeData(wireTD); err != nil {
				return err
			}
			continue
		}
		fv, err := r.readValue(local.DeclaredType)
		if err != nil {
			return err
		}
		if fv.IsValid() {
			value.FieldByIndex(local.Index).Set(fv)
		}
	}
	return nil
}

func (r *Reader) readScalarInto(kind PrimitiveKind, value reflect.Value) error {
	v, err := r.readScalarAny(kind)
	if err != nil {
		return err
	}
	value.Set(reflect.ValueOf(v).Convert(value.Type()))
	return nil
}

func (r *Reader) readScalarAny(kind PrimitiveKind) (any, error) {
	switch kind {
	case KindString:
		return r.buf.ReadString()
	case KindBytes:
		return r.buf.ReadBytes()
	case KindGuid:
		g, err := r.buf.ReadGUID()
		return GUID{Value: g}, err
	case KindDecimal:
		d, err := r.buf.ReadDecimal()
		return Decimal{Value: d}, err
	case KindBool:
		return r.buf.ReadBool()
	case KindChar:
		n, err := r.buf.ReadVarInt()
		return rune(n), err
	case KindInt8:
		n, err := r.buf.ReadVarInt()
		return int8(n), err
	case KindUInt8:
		n, err := r.buf.ReadVarUint()
		return uint8(n), err
	case KindInt16:
		n, err := r.buf.ReadVarInt()
		return int16(n), err
	case KindUInt16:
		n, err := r.buf.ReadVarUint()
		return uint16(n), err
	case KindInt32:
		n, err := r.buf.ReadVarInt()
		return int32(n), err
	case KindUInt32:
		n, err := r.buf.ReadVarUint()
		return uint32(n), err
	case KindInt64:
		return r.buf.ReadVarInt()
	case KindUInt64:
		return r.buf.ReadVarUint()
	case KindFloat32:
		return r.buf.ReadFloat32()
	case KindFloat64:
		return r.buf.ReadFloat64()
	default:
		return nil, fmt.Errorf("reflection: kind %s is not a scalar: %w", kind, ErrUnresolvedType)
	}
}

// readBag decodes a CustomSerializable bag: count, then name + TypeData
// + self-describing value per entry. A member whose type resolves
// locally comes back as its natural Go value; otherwise as an
// ObjectData.
func (r *Reader) readBag() (map[string]any, error) {
	n, err := r.buf.ReadVarUint()
	if err != nil {
		return nil, err
	}
	bag := make(map[string]any, n)
	for i := uint64(0); i < n; i++ {
		name, err := r.buf.ReadString()
		if err != nil {
			return nil, err
		}
		memberTD, err := r.readTypeDataRef()
		if err != nil {
			return nil, err
		}
		if memberTD == nil {
			bag[name] = nil
			continue
		}
		if rt, ok := resolveRuntimeType(memberTD); ok {
			v, err := r.readValue(rt)
			if err != nil {
				return nil, err
			}
			if v.IsValid() {
				bag[name] = v.Interface()
			} else {
				bag[name] = nil
			}
			continue
		}
		v, err := r.readValueFromTypeData(memberTD)
		if err != nil {
			return nil, err
		}
		bag[name] = v
	}
	return bag, nil
}

// readTypeDataRef decodes one TypeData reference: a fresh id is
// registered before its body is read, so a type graph with
// self-references (e.g. a node type whose own TypeData is its own
// base) decodes without recursing forever.
func (r *Reader) readTypeDataRef() (*TypeData, error) {
	id, err := r.buf.ReadVarUint()
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, nil
	}
	if obj, ok := r.ctx.TryGetObject(id); ok {
		td, ok := obj.(*TypeData)
		if !ok {
			return nil, fmt.Errorf("reflection: id %d is not a TypeData: %w", id, ErrMalformedStream)
		}
		return td, nil
	}
	td := &TypeData{}
	if err := r.ctx.Register(id, td); err != nil {
		return nil, err
	}
	if err := r.readTypeDataBody(td); err != nil {
		return nil, err
	}
	return td, nil
}

func (r *Reader) readTypeDataBody(td *TypeData) error {
	flags, err := r.buf.ReadVarUint()
	if err != nil {
		return err
	}
	parsed := decodeFlags(flags)
	td.Unsupported = parsed.Unsupported
	td.IsInterface = parsed.IsInterface
	td.IsCustomSerializable = parsed.IsCustomSerializable
	td.IsReference = parsed.IsReference
	td.IsSealed = parsed.IsSealed
	td.IsArray = parsed.IsArray
	td.IsNullable = parsed.IsNullable
	td.IsEnum = parsed.IsEnum
	td.IsGeneric = parsed.IsGeneric
	td.IsGenericParameter = parsed.IsGenericParameter
	td.IsGenericDefinition = parsed.IsGenericDefinition
	td.HasConverter = parsed.HasConverter
	td.Kind = parsed.Kind
	td.Shape = parsed.Shape
	if td.Unsupported {
		return nil
	}
	if td.Element, err = r.readTypeDataRef(); err != nil {
		return err
	}
	if td.Surrogate, err = r.readTypeDataRef(); err != nil {
		return err
	}
	genCount, err := r.buf.ReadVarUint()
	if err != nil {
		return err
	}
	for i := uint64(0); i < genCount; i++ {
		g, err := r.readTypeDataRef()
		if err != nil {
			return err
		}
		td.GenericParams = append(td.GenericParams, g)
	}
	if td.isConstructedGeneric() {
		// full_name/assembly/members/base are never carried on the wire
		// for a constructed generic (spec.md §4.2's "only if" clause);
		// rebuild them from the generic definition plus the arguments
		// just read, the mandatory Constructed-generic rule substitution
		// step. Without this, td.Members stays empty and a value that
		// falls back to ObjectData (collections.go's resolveRuntimeType
		// finding nothing registered) would silently lose every member
		// on re-encode, since writeMembersGeneric iterates td.Members.
		resolved := substituteGeneric(td.Element, td.GenericParams)
		td.Members = resolved.Members
		td.BaseType = resolved.BaseType
		td.Collection1 = resolved.Collection1
		td.Collection2 = resolved.Collection2
		if td.Element != nil {
			td.FullName = joinGenericName(td.Element.FullName, td.GenericParams)
			td.Assembly = td.Element.Assembly
		}
		return nil
	}
	if td.FullName, err = r.buf.ReadString(); err != nil {
		return err
	}
	if td.Assembly, err = r.buf.ReadString(); err != nil {
		return err
	}
	gpi, err := r.buf.ReadVarUint()
	if err != nil {
		return err
	}
	td.GenericParameterIndex = uint32(gpi)
	if td.BaseType, err = r.readTypeDataRef(); err != nil {
		return err
	}
	rank, err := r.buf.ReadVarUint()
	if err != nil {
		return err
	}
	td.ArrayRank = uint32(rank)
	hasMembers, err := r.buf.ReadBool()
	if err != nil {
		return err
	}
	if !hasMembers {
		return nil
	}
	memberCount, err := r.buf.ReadVarUint()
	if err != nil {
		return err
	}
	for i := uint64(0); i < memberCount; i++ {
		name, err := r.buf.ReadString()
		if err != nil {
			return err
		}
		mt, err := r.readTypeDataRef()
		if err != nil {
			return err
		}
		td.Members = append(td.Members, TDMember{Name: name, Type: mt})
	}
	if td.Collection1, err = r.readTypeDataRef(); err != nil {
		return err
	}
	if td.Collection2, err = r.readTypeDataRef(); err != nil {
		return err
	}
	return nil
}
