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

// Package refl names the small contracts spec.md §9 calls out
// separately from the main package: a Reflector that knows how to get
// at a value's addressable form, and an Accessor that reads/writes one
// member of it. Grounded on the teacher's refl package (refl.go), which
// keeps the exact same kind of minimal address-taking contract for its
// own offset-based fast path.
package refl

import "reflect"

// Reflector exposes the addressable reflect.Value behind an arbitrary
// value, the precondition every Accessor needs to Set a field in place.
type Reflector interface {
	Addressable() reflect.Value
}

// ValueReflector is the default Reflector: it wraps a reflect.Value
// directly, taking its address on demand if it isn't already
// addressable (by copying into a fresh, addressable home).
type ValueReflector struct {
	Value reflect.Value
}

// Addressable returns v.Value itself if already addressable, or an
// addressable copy otherwise.
func (v ValueReflector) Addressable() reflect.Value {
	if v.Value.CanAddr() {
		return v.Value
	}
	addr := reflect.New(v.Value.Type()).Elem()
	addr.Set(v.Value)
	return addr
}

// Accessor reads and writes one member of the value behind a Reflector,
// located by its struct-field index path (supports embedded fields).
type Accessor struct {
	Index []int
}

// Get returns the member's current value.
func (a Accessor) Get(r Reflector) reflect.Value {
	return r.Addressable().FieldByIndex(a.Index)
}

// Set assigns v to the member.
func (a Accessor) Set(r Reflector, v reflect.Value) {
	r.Addressable().FieldByIndex(a.Index).Set(v)
}
