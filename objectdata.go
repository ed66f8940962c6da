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

import "fmt"

// ObjectData is the fallback carrier for a value whose TypeData could
// not be resolved to a locally-registered Go type (spec.md §4.5). It
// retains the full on-wire TypeData plus whatever generic payload its
// shape implied, so a program that only knows a subset of a stream's
// type graph can still decode, inspect, and re-encode the rest of it
// without data loss.
//
// Exactly one of ConverterString, SurrogateValue, Members, Collection,
// Dict, or Scalar is populated, chosen by which dispatch branch the
// original value would have taken.
type ObjectData struct {
	TypeData *TypeData

	ConverterString string
	SurrogateValue  any
	Members         map[string]any
	Collection      []any
	Dict            map[any]any
	Scalar          any
}

// readValueFromTypeData is the TypeData-driven counterpart of
// Reader.readValue: it decodes a value using only the wire's own
// self-description, with no requirement that a matching Go type exist
// locally. Reference-kind values still participate in the same id
// table as resolved reads, so a fallback subgraph remains cycle-safe
// and shares correctly with resolved siblings that happen to reference
// the same id.
func (r *Reader) readValueFromTypeData(td *TypeData) (any, error) {
	if td == nil || td.Unsupported {
		return nil, nil
	}
	if td.IsReference {
		id, err := r.buf.ReadVarUint()
		if err != nil {
			return nil, err
		}
		if id == 0 {
			return nil, nil
		}
		if obj, ok := r.ctx.TryGetObject(id); ok {
			return obj, nil
		}
		// td is only the declared type here; an unsealed (interface)
		// declared slot carries its own actual-type ref on the wire,
		// written right after the id by the same rule writeValue uses
		// for the resolved path (writer.go).
		actualTD := td
		if td.IsInterface {
			a, err := r.readTypeDataRef()
			if err != nil {
				return nil, err
			}
			if a == nil {
				a = unsupportedTypeData
			}
			actualTD = a
		}
		od := &ObjectData{TypeData: actualTD}
		if err := r.ctx.Register(id, od); err != nil {
			return nil, err
		}
		if err := r.fillObjectData(od); err != nil {
			return nil, err
		}
		return od, nil
	}
	od := &ObjectData{TypeData: td}
	if err := r.fillObjectData(od); err != nil {
		return nil, err
	}
	return od, nil
}

func (r *Reader) fillObjectData(od *ObjectData) error {
	td := od.TypeData
	switch {
	case td.Surrogate != nil:
		v, err := r.readValueFromTypeData(td.Surrogate)
		od.SurrogateValue = v
		return err
	case td.HasConverter:
		s, err := r.buf.ReadString()
		od.ConverterString = s
		return err
	case td.IsCustomSerializable:
		bag, err := r.readBag()
		od.Members = bag
		return err
	case td.IsArray:
		items, err := r.readArrayGeneric(td)
		od.Collection = items
		return err
	case td.IsEnum:
		n, err := r.buf.ReadVarInt()
		od.Scalar = n
		return err
	case td.Kind.IsScalar():
		v, err := r.readScalarAny(td.Kind)
		od.Scalar = v
		return err
	case td.Shape == ShapeTypedDict || td.Shape == ShapeUntypedDict:
		return r.fillDictGeneric(td, od)
	case td.Shape == ShapeTypedCollection || td.Shape == ShapeUntypedList:
		return r.fillCollectionGeneric(td, od)
	default:
		return r.fillMembersGeneric(td, od)
	}
}

func (r *Reader) fillMembersGeneric(td *TypeData, od *ObjectData) error {
	if _, err := r.buf.ReadVarUint(); err != nil {
		return err
	}
	n, err := r.buf.ReadVarUint()
	if err != nil {
		return err
	}
	od.Members = make(map[string]any, n)
	for i := uint64(0); i < n; i++ {
		var name string
		if !r.settings.SkipMemberData {
			if name, err = r.buf.ReadString(); err != nil {
				return err
			}
		}
		memberTD, err := r.readTypeDataRef()
		if err != nil {
			return err
		}
		v, err := r.readValueFromTypeData(memberTD)
		if err != nil {
			return err
		}
		od.Members[name] = v
	}
	return nil
}

func (r *Reader) fillCollectionGeneric(td *TypeData, od *ObjectData) error {
	n, err := r.buf.ReadVarUint()
	if err != nil {
		return err
	}
	elemTD := td.Collection2
	if elemTD == nil {
		elemTD = wellKnownObjects[0].(*TypeData)
	}
	items := make([]any, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := r.readValueFromTypeData(elemTD)
		if err != nil {
			return err
		}
		items = append(items, v)
	}
	od.Collection = items
	return nil
}

func (r *Reader) fillDictGeneric(td *TypeData, od *ObjectData) error {
	n, err := r.buf.ReadVarUint()
	if err != nil {
		return err
	}
	keyTD := td.Collection1
	if keyTD == nil {
		keyTD = wellKnownObjects[0].(*TypeData)
	}
	elemTD := td.Collection2
	if elemTD == nil {
		elemTD = wellKnownObjects[0].(*TypeData)
	}
	od.Dict = make(map[any]any, n)
	for i := uint64(0); i < n; i++ {
		k, err := r.readValueFromTypeData(keyTD)
		if err != nil {
			return err
		}
		v, err := r.readValueFromTypeData(elemTD)
		if err != nil {
			return err
		}
		if err := setDictEntry(od.Dict, k, v); err != nil {
			return err
		}
	}
	return nil
}

// setDictEntry guards a map[any]any assignment against Go's
// comparability requirement: a decoded key whose dynamic type is not
// comparable (e.g. a slice-backed ObjectData.Collection) would
// otherwise panic the whole decode session. Untyped dict keys must be
// Go-comparable; a key that is not surfaces as ErrConstructionFailed,
// matching how reflect.Value.SetMapIndex behaves for the resolved-type
// path.
func setDictEntry(m map[any]any, k, v any) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("reflection: untyped dict key %v is not comparable: %w", k, ErrConstructionFailed)
		}
	}()
	m[k] = v
	return nil
}

func (r *Reader) readArrayGeneric(td *TypeData) ([]any, error) {
	dims := make([]uint64, td.ArrayRank)
	for i := range dims {
		n, err := r.buf.ReadVarUint()
		if err != nil {
			return nil, err
		}
		dims[i] = n
	}
	elemTD := td.Element
	if elemTD == nil {
		elemTD = wellKnownObjects[0].(*TypeData)
	}
	return r.readArrayLevelGeneric(elemTD, dims)
}

func (r *Reader) readArrayLevelGeneric(elemTD *TypeData, dims []uint64) ([]any, error) {
	if len(dims) == 0 {
		v, err := r.readValueFromTypeData(elemTD)
		return []any{v}, err
	}
	out := make([]any, 0, dims[0])
	for i := uint64(0); i < dims[0]; i++ {
		v, err := r.readArrayLevelGeneric(elemTD, dims[1:])
		if err != nil {
			return nil, err
		}
		if len(dims) == 1 {
			out = append(out, v[0])
		} else {
			out = append(out, v)
		}
	}
	return out, nil
}

// topLevelAnyTD stands in for the declared type of a top-level Marshal
// call and of any other context with no narrower declared type in
// scope: both IsReference and IsInterface are true, matching AnyType's
// RuntimeType.
var topLevelAnyTD = &TypeData{IsInterface: true, IsReference: true}

// writeObjectDataThrough re-emits a previously decoded (or hand-built)
// ObjectData, preserving its TypeData and payload exactly. This is what
// lets a process with a partial type graph still act as a transparent
// relay for the part it does not understand.
//
// Reference framing (whether an id is written at all) and the
// actual-type ref (whether od.TypeData itself needs to be written)
// follow declared, the enclosing slot's declared TypeData - not
// od.TypeData, which describes od's actual type and commonly differs:
// a value-kind struct boxed behind an interface-declared field still
// needs an id for that slot, exactly as writeValue allocates one for
// any interface-declared value regardless of the boxed value's own
// reference-ness.
func (w *Writer) writeObjectDataThrough(declared *TypeData, od *ObjectData) error {
	td := od.TypeData
	isRef := td.IsReference
	if declared != nil {
		isRef = declared.IsReference
	}
	if !isRef {
		return w.writeObjectDataBody(od)
	}
	ptr := anyPointerIdentity(od)
	if id, ok := w.ctx.TryGetID(ptr); ok {
		w.buf.WriteVarUint(id)
		return nil
	}
	id := w.ctx.NewID()
	w.buf.WriteVarUint(id)
	w.ctx.RegisterPtr(ptr, id)
	if declared != nil && declared.IsInterface {
		if err := w.writeTypeDataRef(td); err != nil {
			return err
		}
	}
	return w.writeObjectDataBody(od)
}

func (w *Writer) writeObjectDataBody(od *ObjectData) error {
	td := od.TypeData
	switch {
	case td.Surrogate != nil:
		return w.writeObjectDataValue(td.Surrogate, od.SurrogateValue)
	case td.HasConverter:
		w.buf.WriteString(od.ConverterString)
		return nil
	case td.IsCustomSerializable:
		return w.writeBag(od.Members)
	case td.IsArray:
		return w.writeArrayGeneric(td, od.Collection)
	case td.IsEnum:
		n, _ := od.Scalar.(int64)
		w.buf.WriteVarInt(n)
		return nil
	case td.Kind.IsScalar():
		return w.writeScalarAny(td.Kind, od.Scalar)
	case td.Shape == ShapeTypedDict || td.Shape == ShapeUntypedDict:
		return w.writeDictGeneric(td, od.Dict)
	case td.Shape == ShapeTypedCollection || td.Shape == ShapeUntypedList:
		return w.writeCollectionGeneric(td, od.Collection)
	default:
		return w.writeMembersGeneric(td, od.Members)
	}
}

// writeObjectDataValue writes a value of unknown provenance (either a
// genuine ObjectData from a fallback decode, or a concrete Go value)
// through whichever path fits, so surrogate/converter round-trips stay
// transparent even when the surrogate type itself was never locally
// registered.
func (w *Writer) writeObjectDataValue(declared *TypeData, v any) error {
	if od, ok := v.(*ObjectData); ok {
		return w.writeObjectDataThrough(declared, od)
	}
	if v == nil {
		w.buf.WriteVarUint(0)
		return nil
	}
	rt := RuntimeTypeOf(anyGoTypeOf(v))
	return w.writeValue(rt, anyReflectValueOf(v))
}

func (w *Writer) writeMembersGeneric(td *TypeData, members map[string]any) error {
	w.buf.WriteVarUint(uint64(td.StructHash()))
	w.buf.WriteVarUint(uint64(len(td.Members)))
	for _, m := range td.Members {
		if !w.settings.SkipMemberData {
			w.buf.WriteString(m.Name)
		}
		if err := w.writeTypeDataRef(m.Type); err != nil {
			return err
		}
		if err := w.writeObjectDataValue(m.Type, members[m.Name]); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeCollectionGeneric(td *TypeData, items []any) error {
	w.buf.WriteVarUint(uint64(len(items)))
	elemTD := td.Collection2
	if elemTD == nil {
		elemTD = wellKnownObjects[0].(*TypeData)
	}
	for _, it := range items {
		if err := w.writeObjectDataValue(elemTD, it); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeDictGeneric(td *TypeData, dict map[any]any) error {
	w.buf.WriteVarUint(uint64(len(dict)))
	keyTD := td.Collection1
	if keyTD == nil {
		keyTD = wellKnownObjects[0].(*TypeData)
	}
	elemTD := td.Collection2
	if elemTD == nil {
		elemTD = wellKnownObjects[0].(*TypeData)
	}
	for k, v := range dict {
		if err := w.writeObjectDataValue(keyTD, k); err != nil {
			return err
		}
		if err := w.writeObjectDataValue(elemTD, v); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeArrayGeneric(td *TypeData, items []any) error {
	dims := arrayGenericDims(items, int(td.ArrayRank))
	for _, d := range dims {
		w.buf.WriteVarUint(uint64(d))
	}
	elemTD := td.Element
	if elemTD == nil {
		elemTD = wellKnownObjects[0].(*TypeData)
	}
	return w.writeArrayLevelGeneric(elemTD, items, int(td.ArrayRank))
}

func (w *Writer) writeArrayLevelGeneric(elemTD *TypeData, items []any, rank int) error {
	if rank == 0 {
		var v any
		if len(items) > 0 {
			v = items[0]
		}
		return w.writeObjectDataValue(elemTD, v)
	}
	for _, it := range items {
		sub, _ := it.([]any)
		if err := w.writeArrayLevelGeneric(elemTD, sub, rank-1); err != nil {
			return err
		}
	}
	return nil
}

func arrayGenericDims(items []any, rank int) []int {
	dims := make([]int, rank)
	cur := items
	for i := 0; i < rank; i++ {
		dims[i] = len(cur)
		if len(cur) > 0 {
			if sub, ok := cur[0].([]any); ok {
				cur = sub
				continue
			}
		}
		cur = nil
	}
	return dims
}
