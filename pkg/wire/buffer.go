//
//  Copyright 2023 PayPal Inc.
//
//  Licensed to the Apache Software Foundation (ASF) under one or more
//  contributor license agreements.  See the NOTICE file distributed with
//  this work for additional information regarding copyright ownership.
//  The ASF licenses this file to You under the Apache License, Version 2.0
//  (the "License"); you may not use this file except in compliance with
//  the License.  You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

package wire

import (
	werr "warden/pkg/errors"
)

// Buffer is a cursor over a frame being packed or unpacked. Packing at an
// offset inside the existing data overwrites in place, which is how the
// header gets its final body length after the payload is written.
type Buffer struct {
	data []byte
	off  int
}

func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

func (b *Buffer) Bytes() []byte   { return b.data }
func (b *Buffer) Len() int        { return len(b.data) }
func (b *Buffer) Offset() int     { return b.off }
func (b *Buffer) SetOffset(n int) { b.off = n }
func (b *Buffer) Remaining() int  { return len(b.data) - b.off }
func (b *Buffer) Rest() []byte    { return b.data[b.off:] }

func (b *Buffer) grow(n int) []byte {
	end := b.off + n
	if end > len(b.data) {
		if end > cap(b.data) {
			nd := make([]byte, end, 2*end+64)
			copy(nd, b.data)
			b.data = nd
		} else {
			b.data = b.data[:end]
		}
	}
	s := b.data[b.off:end]
	b.off = end
	return s
}

func (b *Buffer) Pack16(v uint16) {
	EncByteOrder.PutUint16(b.grow(2), v)
}

func (b *Buffer) Pack32(v uint32) {
	EncByteOrder.PutUint32(b.grow(4), v)
}

func (b *Buffer) Pack64(v uint64) {
	EncByteOrder.PutUint64(b.grow(8), v)
}

// PackMem writes a u32 length prefix followed by the bytes.
func (b *Buffer) PackMem(v []byte) {
	b.Pack32(uint32(len(v)))
	copy(b.grow(len(v)), v)
}

func (b *Buffer) PackStr(s string) {
	b.Pack32(uint32(len(s)))
	copy(b.grow(len(s)), s)
}

// PackRaw appends bytes with no length prefix.
func (b *Buffer) PackRaw(v []byte) {
	copy(b.grow(len(v)), v)
}

func (b *Buffer) Unpack16(v *uint16) error {
	if b.Remaining() < 2 {
		return werr.ErrIncompletePacket
	}
	*v = EncByteOrder.Uint16(b.data[b.off:])
	b.off += 2
	return nil
}

func (b *Buffer) Unpack32(v *uint32) error {
	if b.Remaining() < 4 {
		return werr.ErrIncompletePacket
	}
	*v = EncByteOrder.Uint32(b.data[b.off:])
	b.off += 4
	return nil
}

func (b *Buffer) Unpack64(v *uint64) error {
	if b.Remaining() < 8 {
		return werr.ErrIncompletePacket
	}
	*v = EncByteOrder.Uint64(b.data[b.off:])
	b.off += 8
	return nil
}

// UnpackMem returns a slice aliasing the buffer; callers copy when they
// outlive the frame.
func (b *Buffer) UnpackMem(v *[]byte) error {
	var n uint32
	if err := b.Unpack32(&n); err != nil {
		return err
	}
	if n > NoVal || int(n) > b.Remaining() {
		return werr.ErrIncompletePacket
	}
	*v = b.data[b.off : b.off+int(n)]
	b.off += int(n)
	return nil
}

func (b *Buffer) UnpackStr(s *string) error {
	var raw []byte
	if err := b.UnpackMem(&raw); err != nil {
		return err
	}
	*s = string(raw)
	return nil
}

// UnpackRaw consumes exactly n bytes.
func (b *Buffer) UnpackRaw(n int) ([]byte, error) {
	if n < 0 || b.Remaining() < n {
		return nil, werr.ErrIncompletePacket
	}
	s := b.data[b.off : b.off+n]
	b.off += n
	return s, nil
}
