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
	"github.com/golang/snappy"

	werr "warden/pkg/errors"
)

type CompressionType uint8

const (
	CompressionNone   = CompressionType(0)
	CompressionSnappy = CompressionType(1)
)

// Payload is the encoded payload region of a frame: one compression tag
// byte followed by the (possibly compressed) body. An empty payload
// occupies zero bytes.
type Payload struct {
	tag  CompressionType
	data []byte
}

func (p *Payload) Clear() {
	p.tag = CompressionNone
	p.data = nil
}

func (p *Payload) GetLength() uint32 {
	if len(p.data) == 0 {
		return 0
	}
	return uint32(len(p.data) + 1)
}

func (p *Payload) GetCompressionType() CompressionType {
	return p.tag
}

func (p *Payload) SetWithClearValue(value []byte) {
	p.tag = CompressionNone
	p.data = value
}

// SetWithCompression stores value snappy compressed when that actually
// saves space, clear otherwise.
func (p *Payload) SetWithCompression(value []byte) {
	enc := snappy.Encode(nil, value)
	if len(enc) < len(value) {
		p.tag = CompressionSnappy
		p.data = enc
	} else {
		p.tag = CompressionNone
		p.data = value
	}
}

func (p *Payload) GetClearValue() (value []byte, err error) {
	switch p.tag {
	case CompressionNone:
		value = p.data
	case CompressionSnappy:
		if value, err = snappy.Decode(nil, p.data); err != nil {
			err = werr.ErrIncompletePacket
		}
	default:
		err = werr.ErrIncompletePacket
	}
	return
}

func (p *Payload) Encode(b *Buffer) {
	if len(p.data) == 0 {
		return
	}
	b.PackRaw([]byte{byte(p.tag)})
	b.PackRaw(p.data)
}

// Decode consumes exactly n bytes of payload region.
func (p *Payload) Decode(b *Buffer, n int, copyData bool) error {
	p.Clear()
	if n == 0 {
		return nil
	}
	raw, err := b.UnpackRaw(n)
	if err != nil {
		return err
	}
	p.tag = CompressionType(raw[0])
	if copyData {
		p.data = make([]byte, n-1)
		copy(p.data, raw[1:])
	} else {
		p.data = raw[1:]
	}
	return nil
}
