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
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GUID is the wire-level wrapper around a 128-bit globally unique
// identifier. It exists so RuntimeType can recognize "Guid" as a closed
// PrimitiveKind (spec §3) independent of whatever GUID library a caller's
// own struct fields use; most callers will just embed uuid.UUID directly,
// which GUID converts to/from at the buffer boundary.
type GUID struct {
	Value uuid.UUID
}

// NewGUID wraps a uuid.UUID for serialization.
func NewGUID(v uuid.UUID) GUID { return GUID{Value: v} }

// Decimal is the wire-level wrapper around an arbitrary-precision decimal
// value, backed by shopspring/decimal.
type Decimal struct {
	Value decimal.Decimal
}

// NewDecimal wraps a decimal.Decimal for serialization.
func NewDecimal(v decimal.Decimal) Decimal { return Decimal{Value: v} }
