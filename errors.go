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

import "errors"

// Sentinel errors for the taxonomy in spec.md §7. Use errors.Is against
// these; concrete failures are wrapped with fmt.Errorf("...: %w", ErrX)
// so call sites keep context without losing the sentinel.
var (
	// ErrUnsupportedVersion is returned when a stream's VERSION header
	// does not match the version this package writes. Fatal for the
	// stream.
	ErrUnsupportedVersion = errors.New("reflection: unsupported stream version")

	// ErrMalformedStream covers early EOF, an impossible flag
	// combination, or a varuint that overflows its target width.
	// Fatal for the stream.
	ErrMalformedStream = errors.New("reflection: malformed stream")

	// ErrIDReuse is returned when a read registers an id that is zero or
	// already bound, either in the well-known context or this session.
	// Fatal for the stream.
	ErrIDReuse = errors.New("reflection: id already registered")

	// ErrCountMismatch names a container whose reported element count
	// disagrees with the number of elements iterated. No code path in
	// this package returns it: the writer takes each count from the same
	// value it then iterates.
	ErrCountMismatch = errors.New("reflection: container count mismatch")

	// ErrArrayRankMismatch names a declared array rank that disagrees
	// with the value's actual rank. No code path in this package returns
	// it: the rank is taken from the Go array type itself.
	ErrArrayRankMismatch = errors.New("reflection: array rank mismatch")

	// ErrUnresolvedType means a wire TypeData could not be mapped to a
	// local RuntimeType. Recovered via an ObjectData fallback; not
	// fatal for the session.
	ErrUnresolvedType = errors.New("reflection: unresolved type")

	// ErrUnresolvedMember means a wire member has no local
	// counterpart. Logged and discarded; not fatal.
	ErrUnresolvedMember = errors.New("reflection: unresolved member")

	// ErrConstructionFailed means the local type could not be
	// instantiated. Recovered via ObjectData on read; on write this
	// only occurs if a precondition is violated, and is fatal there.
	ErrConstructionFailed = errors.New("reflection: construction failed")

	// ErrCapabilityRefused means settings explicitly forbade a path
	// that was the only way to describe a value (e.g. IgnoreCustom set
	// on a type only describable via the custom protocol). Recovered by
	// falling through to member-wise handling.
	ErrCapabilityRefused = errors.New("reflection: capability refused")

	// ErrMaxDepthExceeded means a value's own recursion (writing) or the
	// wire's nesting (reading) passed an Engine's WithMaxDepth bound.
	// Guards against a runaway graph rather than the goroutine stack;
	// fatal for the call that hit it.
	ErrMaxDepthExceeded = errors.New("reflection: max depth exceeded")
)
