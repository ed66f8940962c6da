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
)

// Writer is the encoding state machine described in spec.md §4.3. One
// Writer drives exactly one top-level Write call's worth of recursion;
// Reset lets Engine reuse it across calls (Engine keeps one Writer and
// does not pool it; pooling whole Engines is threadsafe.Engine's job).
type Writer struct {
	ctx      *Context
	buf      *PrimitiveWriter
	settings Settings
	depth    int
	maxDepth int
}

// NewWriter creates a Writer that will emit settings at the start of its
// first top-level value.
func NewWriter(settings Settings) *Writer {
	return &Writer{ctx: NewContext(), buf: NewPrimitiveWriter(256), settings: settings}
}

// Bytes returns the accumulated stream.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Reset clears session state (the reference table and the output
// buffer) for reuse, keeping settings.
func (w *Writer) Reset() {
	w.ctx.Reset()
	w.buf.Reset()
	w.depth = 0
}

// WriteObject encodes one top-level value. Settings are written exactly
// once, ahead of the first byte of payload (invariant 9, spec.md §8).
func (w *Writer) WriteObject(v any) error {
	if w.depth == 0 {
		w.buf.WriteVarUint(w.settings.encode())
	}
	if v == nil {
		w.buf.WriteVarUint(0)
		return nil
	}
	if od, ok := v.(*ObjectData); ok {
		return w.writeObjectDataThrough(topLevelAnyTD, od)
	}
	rv := reflect.ValueOf(v)
	return w.writeValue(RuntimeTypeOf(rv.Type()), rv)
}

// writeValue is the general entry point for encoding one value declared
// as declared's type: reference framing for reference kinds, straight
// body encoding for value kinds. Every member, element, and key/value
// recursion passes back through here, which makes it the single place
// to enforce WithMaxDepth against a runaway graph (e.g. an accidental
// non-tracked self-reference through a value type) rather than
// exhausting the goroutine stack.
func (w *Writer) writeValue(declared *RuntimeType, rv reflect.Value) error {
	if declared == nil {
		w.buf.WriteVarUint(0)
		return nil
	}
	w.depth++
	defer func() { w.depth-- }()
	if w.maxDepth > 0 && w.depth > w.maxDepth {
		return fmt.Errorf("reflection: %s: %w", declared.FullName, ErrMaxDepthExceeded)
	}
	if !declared.IsReference {
		return w.writeBody(declared, rv)
	}

	if od, ok := valueAsObjectData(rv); ok {
		return w.writeObjectDataThrough(&TypeData{IsInterface: declared.IsInterface, IsReference: declared.IsReference}, od)
	}

	if isNilReference(rv) {
		w.buf.WriteVarUint(0)
		return nil
	}

	ptr, hasIdentity := identityOf(rv)
	if hasIdentity {
		if id, ok := w.ctx.TryGetID(ptr); ok {
			w.buf.WriteVarUint(id)
			return nil
		}
	}
	id := w.ctx.NewID()
	w.buf.WriteVarUint(id)
	if hasIdentity {
		w.ctx.RegisterPtr(ptr, id)
	}

	actual := rv
	if rv.Kind() == reflect.Interface {
		actual = rv.Elem()
	}
	actualRT := RuntimeTypeOf(actual.Type())
	if declared.IsInterface {
		if err := w.writeTypeDataRef(BuildTypeData(actualRT)); err != nil {
			return err
		}
	}
	return w.writeBody(actualRT, actual)
}

func valueAsObjectData(rv reflect.Value) (*ObjectData, bool) {
	if !rv.IsValid() || !rv.CanInterface() {
		return nil, false
	}
	v := rv
	if v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	od, ok := v.Interface().(*ObjectData)
	return od, ok
}

func isNilReference(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}

// writeBody encodes rv's body once reference framing (if any) has
// already been handled. rt always describes rv's own Go type at this
// point (never a declared interface type).
func (w *Writer) writeBody(rt *RuntimeType, rv reflect.Value) error {
	if rv.Kind() == reflect.Ptr {
		return w.writeBody(rt.ElementType, rv.Elem())
	}
	customOK := false
	if rv.CanAddr() {
		if _, ok := rv.Addr().Interface().(CustomSerializable); ok {
			customOK = true
		}
	}
	if !customOK && rv.CanInterface() {
		if _, ok := rv.Interface().(CustomSerializable); ok {
			customOK = true
		}
	}
	switch dispatchFor(rt, w.settings, customOK) {
	case DispatchSurrogate:
		sv, err := rt.Surrogate.Convert(rv)
		if err != nil {
			return fmt.Errorf("reflection: surrogate convert %s: %w", rt.FullName, err)
		}
		return w.writeValue(RuntimeTypeOf(rt.Surrogate.SurrogateType()), sv)
	case DispatchConverter:
		s, err := rt.Converter.ToString(rv)
		if err != nil {
			return fmt.Errorf("reflection: converter %s: %w", rt.FullName, err)
		}
		w.buf.WriteString(s)
		return nil
	case DispatchCustom:
		cs, ok := customSerializableOf2(rv)
		if !ok {
			return fmt.Errorf("reflection: %s does not implement CustomSerializable: %w", rt.FullName, ErrConstructionFailed)
		}
		bag, err := cs.GetObjectData()
		if err != nil {
			return fmt.Errorf("reflection: %s.GetObjectData: %w", rt.FullName, err)
		}
		return w.writeBag(bag)
	case DispatchArray:
		return w.writeArray(rt, rv)
	case DispatchEnum:
		w.buf.WriteVarInt(enumOrdinal(rv))
		return nil
	case DispatchMemberwise:
		return w.writeMembers(rt, rv)
	case DispatchCollection:
		return w.writeCollection(rt, rv)
	case DispatchPrimitive:
		return w.writeScalar(rt.Kind, rv)
	default:
		return fmt.Errorf("reflection: %s: %w", rt.FullName, ErrUnresolvedType)
	}
}

func customSerializableOf2(rv reflect.Value) (CustomSerializable, bool) {
	if rv.CanAddr() {
		if cs, ok := rv.Addr().Interface().(CustomSerializable); ok {
			return cs, true
		}
	}
	cs, ok := rv.Interface().(CustomSerializable)
	return cs, ok
}

func (w *Writer) writeMembers(rt *RuntimeType, rv reflect.Value) error {
	w.buf.WriteVarUint(uint64(BuildTypeData(rt).StructHash()))
	w.buf.WriteVarUint(uint64(len(rt.Members)))
	for _, m := range rt.Members {
		if !w.settings.SkipMemberData {
			w.buf.WriteString(m.Name)
		}
		if err := w.writeTypeDataRef(BuildTypeData(m.DeclaredType)); err != nil {
			return err
		}
		fv := rv.FieldByIndex(m.Index)
		if err := w.writeValue(m.DeclaredType, fv); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeCollection(rt *RuntimeType, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Slice:
		elemDeclared := rt.CollectionElemType
		if elemDeclared == nil {
			elemDeclared = anyRuntimeType
		}
		w.buf.WriteVarUint(uint64(rv.Len()))
		for i := 0; i < rv.Len(); i++ {
			if err := w.writeValue(elemDeclared, rv.Index(i)); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		keyDeclared := rt.CollectionKeyType
		if keyDeclared == nil {
			keyDeclared = anyRuntimeType
		}
		elemDeclared := rt.CollectionElemType
		if elemDeclared == nil {
			elemDeclared = anyRuntimeType
		}
		w.buf.WriteVarUint(uint64(rv.Len()))
		iter := rv.MapRange()
		for iter.Next() {
			if err := w.writeValue(keyDeclared, iter.Key()); err != nil {
				return err
			}
			if err := w.writeValue(elemDeclared, iter.Value()); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("reflection: %s is not a collection: %w", rt.FullName, ErrConstructionFailed)
	}
}

func (w *Writer) writeArray(rt *RuntimeType, rv reflect.Value) error {
	dims := make([]int, 0, rt.ArrayRank)
	cur := rv
	for i := 0; i < rt.ArrayRank; i++ {
		dims = append(dims, cur.Len())
		if cur.Len() > 0 {
			cur = cur.Index(0)
		}
	}
	for _, d := range dims {
		w.buf.WriteVarUint(uint64(d))
	}
	return w.writeArrayElems(rt.ElementType, rt.ArrayRank, rv)
}

func (w *Writer) writeArrayElems(elemType *RuntimeType, rank int, rv reflect.Value) error {
	if rank == 0 {
		return w.writeValue(elemType, rv)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := w.writeArrayElems(elemType, rank-1, rv.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeScalar(kind PrimitiveKind, rv reflect.Value) error {
	// Named scalar types (type Name string, type ID int) are converted to
	// their kind's fixed Go type so writeScalarAny's assertions match.
	if gt, ok := goTypeForKind(kind); ok && rv.Type() != gt && rv.Type().ConvertibleTo(gt) {
		rv = rv.Convert(gt)
	}
	return w.writeScalarAny(kind, rv.Interface())
}

func (w *Writer) writeScalarAny(kind PrimitiveKind, v any) error {
	switch kind {
	case KindString:
		s, _ := v.(string)
		w.buf.WriteString(s)
	case KindBytes:
		b, _ := v.([]byte)
		w.buf.WriteBytes(b)
	case KindGuid:
		g, ok := v.(GUID)
		if !ok {
			return fmt.Errorf("reflection: expected GUID, got %T: %w", v, ErrConstructionFailed)
		}
		w.buf.WriteGUID(g.Value)
	case KindDecimal:
		d, ok := v.(Decimal)
		if !ok {
			return fmt.Errorf("reflection: expected Decimal, got %T: %w", v, ErrConstructionFailed)
		}
		w.buf.WriteDecimal(d.Value)
	case KindBool:
		b, _ := v.(bool)
		w.buf.WriteBool(b)
	case KindChar:
		w.buf.WriteVarInt(toInt64(v))
	case KindInt8:
		w.buf.WriteVarInt(toInt64(v))
	case KindUInt8:
		w.buf.WriteVarUint(toUint64(v))
	case KindInt16, KindInt32, KindInt64:
		w.buf.WriteVarInt(toInt64(v))
	case KindUInt16, KindUInt32, KindUInt64:
		w.buf.WriteVarUint(toUint64(v))
	case KindFloat32:
		f, _ := v.(float32)
		w.buf.WriteFloat32(f)
	case KindFloat64:
		f, _ := v.(float64)
		w.buf.WriteFloat64(f)
	default:
		return fmt.Errorf("reflection: kind %s is not a scalar: %w", kind, ErrUnresolvedType)
	}
	return nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

func toUint64(v any) uint64 {
	switch n := v.(type) {
	case uint8:
		return uint64(n)
	case uint16:
		return uint64(n)
	case uint32:
		return uint64(n)
	case uint64:
		return n
	case uint:
		return uint64(n)
	default:
		return 0
	}
}

// writeTypeDataRef writes td through the same reference-id machinery as
// any other reference object; a nil td encodes as id 0.
func (w *Writer) writeTypeDataRef(td *TypeData) error {
	if td == nil {
		w.buf.WriteVarUint(0)
		return nil
	}
	ptr := anyPointerIdentity(td)
	if id, ok := w.ctx.TryGetID(ptr); ok {
		w.buf.WriteVarUint(id)
		return nil
	}
	id := w.ctx.NewID()
	w.buf.WriteVarUint(id)
	w.ctx.RegisterPtr(ptr, id)
	return w.writeTypeDataBody(td)
}

func (w *Writer) writeTypeDataBody(td *TypeData) error {
	w.buf.WriteVarUint(td.encodeFlags())
	if td.Unsupported {
		return nil
	}
	if err := w.writeTypeDataRef(td.Element); err != nil {
		return err
	}
	if err := w.writeTypeDataRef(td.Surrogate); err != nil {
		return err
	}
	w.buf.WriteVarUint(uint64(len(td.GenericParams)))
	for _, g := range td.GenericParams {
		if err := w.writeTypeDataRef(g); err != nil {
			return err
		}
	}
	if td.isConstructedGeneric() {
		return nil
	}
	w.buf.WriteString(td.FullName)
	w.buf.WriteString(td.Assembly)
	w.buf.WriteVarUint(uint64(td.GenericParameterIndex))
	if err := w.writeTypeDataRef(td.BaseType); err != nil {
		return err
	}
	w.buf.WriteVarUint(uint64(td.ArrayRank))
	if !td.hasMemberSection() {
		w.buf.WriteBool(false)
		return nil
	}
	w.buf.WriteBool(true)
	w.buf.WriteVarUint(uint64(len(td.Members)))
	for _, m := range td.Members {
		w.buf.WriteString(m.Name)
		if err := w.writeTypeDataRef(m.Type); err != nil {
			return err
		}
	}
	if err := w.writeTypeDataRef(td.Collection1); err != nil {
		return err
	}
	return w.writeTypeDataRef(td.Collection2)
}

// writeBag encodes a CustomSerializable's named-value bag: count, then
// name + self-describing value per entry (the same shape as a
// member-wise object's wire layout, minus any relation to a locally
// declared struct).
func (w *Writer) writeBag(bag map[string]any) error {
	w.buf.WriteVarUint(uint64(len(bag)))
	for name, v := range bag {
		w.buf.WriteString(name)
		if v == nil {
			if err := w.writeTypeDataRef(nil); err != nil {
				return err
			}
			continue
		}
		rt := RuntimeTypeOf(reflect.TypeOf(v))
		if err := w.writeTypeDataRef(BuildTypeData(rt)); err != nil {
			return err
		}
		if err := w.writeValue(rt, reflect.ValueOf(v)); err != nil {
			return err
		}
	}
	return nil
}
