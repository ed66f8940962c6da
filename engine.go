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

	"github.com/rs/xid"
)

// Version is the wire format version this package writes and the only
// one it accepts on read, encoded as a fixed 16-bit little-endian word
// (spec.md §6).
const Version uint16 = 0x0102

// Option configures an Engine, following the teacher's functional-options
// Config/Option pattern (fory.go's New(opts ...Option)).
type Option func(*Engine)

// WithSettings fixes the Settings word every Marshal call on this Engine
// will write.
func WithSettings(s Settings) Option {
	return func(e *Engine) { e.settings = s }
}

// WithMetrics attaches a Metrics handle; pass the result of NewMetrics.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithMaxDepth bounds write/read recursion, guarding against runaway
// graphs (e.g. an accidental non-tracked self-reference through a value
// type) rather than exhausting the goroutine stack. Enforced in
// Writer.writeValue/Reader.readValue, the single recursive choke point
// each side funnels every member/element/key-value decode through.
func WithMaxDepth(n int) Option {
	return func(e *Engine) { e.maxDepth = n }
}

// Engine is the façade spec.md's Writer/Reader pair is driven through:
// Marshal/Unmarshal convenience, a reusable Writer/Reader pair per call
// (freshly Reset, not pooled - see threadsafe.Engine for the pooled
// wrapper), and the named-type registry Register populates.
type Engine struct {
	settings  Settings
	metrics   *Metrics
	maxDepth  int
	sessionID xid.ID

	w *Writer
	r *Reader
}

// New creates an Engine, recording a fresh session id the way the
// teacher correlates a single Fory instance's sessions via its pooled
// ThreadSafeFory (fory.go) - here used to tag every log line this
// session's Reader emits (logging.go), so interleaved sessions in a
// long-running process stay distinguishable.
func New(opts ...Option) *Engine {
	e := &Engine{maxDepth: 64, sessionID: xid.New()}
	for _, opt := range opts {
		opt(e)
	}
	e.w = NewWriter(e.settings)
	e.w.maxDepth = e.maxDepth
	e.r = NewReader(nil)
	e.r.maxDepth = e.maxDepth
	e.r.metrics = e.metrics
	e.r.logger = Log.With().Str("session", e.sessionID.String()).Logger()
	return e
}

// Register teaches the Engine's resolver how to materialize goType from
// its on-wire (assembly, full_name) pair, required for any type an
// unsealed (interface-declared) reference might actually hold. A
// generic Go type instantiation (Box[int], say) is registered the same
// way; its field types are additionally taught to typedata.go's
// substitution machinery via RegisterGenericArgName, covering whichever
// field varies by type parameter without requiring the caller to name
// it (built-in scalar arguments are already pre-registered).
func Register[T any]() {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		t = reflect.TypeOf(&zero).Elem()
	}
	RegisterNamedType(t)
	registerGenericArgsOf(t)
	RuntimeTypeOf(t)
}

// registerGenericArgsOf registers every exported field type of t (a
// struct, or the struct a pointer points to) by name, so a constructed
// generic's instantiation arguments - recorded only as bracket-parsed
// name strings on the wire (typedata.go's splitGenericName) - resolve
// back to a reflect.Type when t itself is not a generic instantiation
// or when its type arguments are already exposed as ordinary fields.
func registerGenericArgsOf(t reflect.Type) {
	structType := t
	for structType.Kind() == reflect.Ptr {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < structType.NumField(); i++ {
		f := structType.Field(i)
		if f.IsExported() && f.Type.Name() != "" {
			RegisterGenericArgName(f.Type)
		}
	}
}

// Marshal encodes v and returns the resulting stream, version-prefixed.
func (e *Engine) Marshal(v any) ([]byte, error) {
	e.w.Reset()
	e.w.settings = e.settings
	if err := e.w.WriteObject(v); err != nil {
		return nil, err
	}
	out := make([]byte, 2+len(e.w.Bytes()))
	out[0] = byte(Version & 0xff)
	out[1] = byte(Version >> 8)
	copy(out[2:], e.w.Bytes())
	if e.metrics != nil {
		e.metrics.BytesWritten.Add(float64(len(out)))
		e.metrics.ObjectsWritten.Inc()
	}
	return out, nil
}

// Unmarshal decodes data into a value declared as target.
func (e *Engine) Unmarshal(data []byte, target reflect.Type) (any, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("reflection: stream too short for version header: %w", ErrMalformedStream)
	}
	version := uint16(data[0]) | uint16(data[1])<<8
	if version != Version {
		return nil, fmt.Errorf("reflection: stream version 0x%04x, want 0x%04x: %w", version, Version, ErrUnsupportedVersion)
	}
	e.r.Reset(data[2:])
	e.r.metrics = e.metrics
	v, err := e.r.ReadObject(target)
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.BytesRead.Add(float64(len(data)))
		e.metrics.ObjectsRead.Inc()
	}
	return v, nil
}

// MarshalAny is Marshal with a nil-safe helper name mirroring the
// teacher's SerializeAny/DeserializeAny pair (fory.go), for callers who
// want to write an `any` without first reflecting a concrete type.
func (e *Engine) MarshalAny(v any) ([]byte, error) { return e.Marshal(v) }

// UnmarshalAny decodes data as the universal top type, returning
// whatever concrete (or ObjectData-fallback) value was written.
func (e *Engine) UnmarshalAny(data []byte) (any, error) {
	return e.Unmarshal(data, anyGoType)
}

// Marshal is the package-level convenience for a one-shot encode with
// default settings, grounded on fory.go's top-level Marshal function.
func Marshal(v any) ([]byte, error) { return New().Marshal(v) }

// Unmarshal is the package-level convenience counterpart of Marshal.
func Unmarshal(data []byte, target reflect.Type) (any, error) {
	return New().Unmarshal(data, target)
}

// Serialize is a typed convenience over Engine.Marshal, mirroring the
// teacher's generic Serialize[T] (fory.go).
func Serialize[T any](e *Engine, v T) ([]byte, error) { return e.Marshal(v) }

// Deserialize is the typed counterpart of Serialize.
func Deserialize[T any](e *Engine, data []byte) (T, error) {
	var zero T
	target := reflect.TypeOf(zero)
	if target == nil {
		target = anyGoType
	}
	v, err := e.Unmarshal(data, target)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	return v.(T), nil
}
