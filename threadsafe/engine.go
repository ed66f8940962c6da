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

// Package threadsafe wraps reflection.Engine in a sync.Pool so callers
// can share one handle across goroutines, mirroring the teacher's
// ThreadSafeFory wrapper (fory.go) around the (not concurrency-safe)
// Fory type.
package threadsafe

import (
	"reflect"
	"sync"

	"github.com/incoplex/reflection"
)

// Engine is a concurrency-safe wrapper around reflection.Engine. Each
// Serialize/Deserialize call borrows a pooled *reflection.Engine for
// the duration of the call and returns it afterward.
type Engine struct {
	pool sync.Pool
	opts []reflection.Option
}

// New creates a thread-safe Engine, applying opts to every pooled
// reflection.Engine it mints.
func New(opts ...reflection.Option) *Engine {
	e := &Engine{opts: opts}
	e.pool = sync.Pool{
		New: func() any { return reflection.New(opts...) },
	}
	return e
}

func (e *Engine) acquire() *reflection.Engine {
	return e.pool.Get().(*reflection.Engine)
}

func (e *Engine) release(inner *reflection.Engine) {
	e.pool.Put(inner)
}

// Marshal encodes v using a pooled reflection.Engine.
func (e *Engine) Marshal(v any) ([]byte, error) {
	inner := e.acquire()
	defer e.release(inner)
	return inner.Marshal(v)
}

// Unmarshal decodes data into a value declared as target using a
// pooled reflection.Engine.
func (e *Engine) Unmarshal(data []byte, target reflect.Type) (any, error) {
	inner := e.acquire()
	defer e.release(inner)
	return inner.Unmarshal(data, target)
}

// Serialize is a typed convenience over Engine.Marshal, mirroring the
// teacher's generic SerializeTS[T].
func Serialize[T any](e *Engine, v T) ([]byte, error) {
	inner := e.acquire()
	defer e.release(inner)
	return reflection.Serialize(inner, v)
}

// Deserialize is the typed counterpart of Serialize.
func Deserialize[T any](e *Engine, data []byte) (T, error) {
	inner := e.acquire()
	defer e.release(inner)
	return reflection.Deserialize[T](inner, data)
}
