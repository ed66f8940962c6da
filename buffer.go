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
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PrimitiveWriter is the raw byte-I/O layer spec.md treats as an external
// collaborator. It accumulates a growing []byte and offers the
// variable-length and fixed-width encodings the rest of this package
// builds on: var-ints (zig-zag for signed), length-prefixed strings and
// byte arrays, GUIDs, and fixed-size scalars.
type PrimitiveWriter struct {
	buf []byte
}

// NewPrimitiveWriter returns a writer with the given initial capacity hint.
func NewPrimitiveWriter(capHint int) *PrimitiveWriter {
	if capHint <= 0 {
		capHint = 64
	}
	return &PrimitiveWriter{buf: make([]byte, 0, capHint)}
}

// Bytes returns the accumulated buffer. The slice is owned by the
// writer; copy it before reuse if the writer will be reset.
func (w *PrimitiveWriter) Bytes() []byte { return w.buf }

// Reset clears the buffer for reuse without releasing its capacity.
func (w *PrimitiveWriter) Reset() { w.buf = w.buf[:0] }

func (w *PrimitiveWriter) WriteByte(b byte) { w.buf = append(w.buf, b) }

func (w *PrimitiveWriter) WriteBool(v bool) {
	if v {
		w.WriteByte(1)
	} else {
		w.WriteByte(0)
	}
}

func (w *PrimitiveWriter) WriteInt8(v int8) { w.WriteByte(byte(v)) }

func (w *PrimitiveWriter) WriteFixed16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *PrimitiveWriter) WriteFixed32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *PrimitiveWriter) WriteFixed64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *PrimitiveWriter) WriteFloat32(v float32) { w.WriteFixed32(math.Float32bits(v)) }
func (w *PrimitiveWriter) WriteFloat64(v float64) { w.WriteFixed64(math.Float64bits(v)) }

// WriteVarUint writes an unsigned little-endian base-128 varint: 7 data
// bits per byte, high bit is the continuation flag.
func (w *PrimitiveWriter) WriteVarUint(v uint64) {
	for v >= 0x80 {
		w.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	w.WriteByte(byte(v))
}

// WriteVarInt zig-zag encodes a signed integer, then writes it as a
// varuint.
func (w *PrimitiveWriter) WriteVarInt(v int64) {
	w.WriteVarUint(uint64((v << 1) ^ (v >> 63)))
}

func (w *PrimitiveWriter) WriteString(s string) {
	w.WriteVarUint(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *PrimitiveWriter) WriteBytes(b []byte) {
	w.WriteVarUint(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *PrimitiveWriter) WriteGUID(g uuid.UUID) {
	w.buf = append(w.buf, g[:]...)
}

// WriteDecimal writes a decimal.Decimal as its unsigned coefficient
// magnitude, a sign flag, and its base-10 exponent (var-int, zig-zag).
func (w *PrimitiveWriter) WriteDecimal(d decimal.Decimal) {
	coeff := d.Coefficient()
	w.WriteBytes(coeff.Bytes())
	w.WriteBool(coeff.Sign() < 0)
	w.WriteVarInt(int64(d.Exponent()))
}

// PrimitiveReader is the read-side counterpart of PrimitiveWriter. It
// reads sequentially from an immutable []byte; it never copies the
// backing array.
type PrimitiveReader struct {
	buf []byte
	pos int
}

// NewPrimitiveReader wraps data for sequential reads. The caller retains
// ownership of data; the reader never mutates it.
func NewPrimitiveReader(data []byte) *PrimitiveReader {
	return &PrimitiveReader{buf: data}
}

// Remaining reports how many unread bytes are left in the stream.
func (r *PrimitiveReader) Remaining() int { return len(r.buf) - r.pos }

func (r *PrimitiveReader) require(n int) error {
	if r.Remaining() < n {
		return fmt.Errorf("reflection: need %d bytes, have %d: %w", n, r.Remaining(), ErrMalformedStream)
	}
	return nil
}

func (r *PrimitiveReader) ReadByte() (byte, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *PrimitiveReader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	return b != 0, err
}

func (r *PrimitiveReader) ReadInt8() (int8, error) {
	b, err := r.ReadByte()
	return int8(b), err
}

func (r *PrimitiveReader) ReadFixed16() (uint16, error) {
	if err := r.require(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *PrimitiveReader) ReadFixed32() (uint32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *PrimitiveReader) ReadFixed64() (uint64, error) {
	if err := r.require(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *PrimitiveReader) ReadFloat32() (float32, error) {
	v, err := r.ReadFixed32()
	return math.Float32frombits(v), err
}

func (r *PrimitiveReader) ReadFloat64() (float64, error) {
	v, err := r.ReadFixed64()
	return math.Float64frombits(v), err
}

func (r *PrimitiveReader) ReadVarUint() (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if shift >= 64 {
			return 0, fmt.Errorf("reflection: varuint overflow: %w", ErrMalformedStream)
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

func (r *PrimitiveReader) ReadVarInt() (int64, error) {
	u, err := r.ReadVarUint()
	if err != nil {
		return 0, err
	}
	return int64(u>>1) ^ -int64(u&1), nil
}

func (r *PrimitiveReader) ReadString() (string, error) {
	n, err := r.ReadVarUint()
	if err != nil {
		return "", err
	}
	if err := r.require(int(n)); err != nil {
		return "", err
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *PrimitiveReader) ReadBytes() ([]byte, error) {
	n, err := r.ReadVarUint()
	if err != nil {
		return nil, err
	}
	if err := r.require(int(n)); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return b, nil
}

func (r *PrimitiveReader) ReadGUID() (uuid.UUID, error) {
	if err := r.require(16); err != nil {
		return uuid.UUID{}, err
	}
	var g uuid.UUID
	copy(g[:], r.buf[r.pos:r.pos+16])
	r.pos += 16
	return g, nil
}

// ReadDecimal is the inverse of WriteDecimal.
func (r *PrimitiveReader) ReadDecimal() (decimal.Decimal, error) {
	coeffBytes, err := r.ReadBytes()
	if err != nil {
		return decimal.Decimal{}, err
	}
	negative, err := r.ReadBool()
	if err != nil {
		return decimal.Decimal{}, err
	}
	exp, err := r.ReadVarInt()
	if err != nil {
		return decimal.Decimal{}, err
	}
	coeff := new(big.Int).SetBytes(coeffBytes)
	if negative {
		coeff.Neg(coeff)
	}
	return decimal.NewFromBigInt(coeff, int32(exp)), nil
}
