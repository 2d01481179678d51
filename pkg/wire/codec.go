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
	"sync"

	werr "warden/pkg/errors"
)

// ICodec serializes one payload schema. The transport selects the codec
// by message type and otherwise treats bodies as opaque bytes.
type ICodec interface {
	Pack(data interface{}, b *Buffer) error
	Unpack(b *Buffer) (interface{}, error)
}

var (
	codecLock sync.RWMutex
	codecs    = make(map[MsgType]ICodec)
)

func RegisterCodec(t MsgType, c ICodec) {
	codecLock.Lock()
	codecs[t] = c
	codecLock.Unlock()
}

func codecFor(t MsgType) ICodec {
	codecLock.RLock()
	defer codecLock.RUnlock()
	return codecs[t]
}

// compression is worth paying for on larger bodies only
const kCompressFrom = 1024

// MarshalBody serializes msg.Data (or msg.RawBody) into a payload region.
func MarshalBody(msg *Msg) (p Payload, err error) {
	var raw []byte
	if c := codecFor(msg.Type); c != nil && msg.Data != nil {
		b := NewBuffer(make([]byte, 0, 64))
		if err = c.Pack(msg.Data, b); err != nil {
			return
		}
		raw = b.Bytes()
	} else {
		raw = msg.RawBody
	}
	if len(raw) >= kCompressFrom {
		p.SetWithCompression(raw)
	} else {
		p.SetWithClearValue(raw)
	}
	return
}

// UnmarshalBody decodes the payload region into msg.Data, leaving the
// clear bytes in msg.RawBody for codec-less types.
func UnmarshalBody(msg *Msg, hdr *Header, b *Buffer, copyData bool) error {
	if int(hdr.BodyLength) > b.Remaining() {
		return werr.ErrIncompletePacket
	}
	var p Payload
	if err := p.Decode(b, int(hdr.BodyLength), copyData); err != nil {
		return err
	}
	clear, err := p.GetClearValue()
	if err != nil {
		return err
	}
	msg.RawBody = clear
	msg.Data = nil
	if c := codecFor(hdr.MsgType); c != nil {
		data, err := c.Unpack(NewBuffer(clear))
		if err != nil {
			return werr.ErrIncompletePacket
		}
		msg.Data = data
	}
	return nil
}

// UnmarshalRetBody decodes one aggregated return entry body by its own
// message type.
func UnmarshalRetBody(e *RetEntry) error {
	if e.Type == MsgTypeForwardFailed {
		return nil
	}
	var p Payload
	b := NewBuffer(e.Body)
	if err := p.Decode(b, len(e.Body), false); err != nil {
		return err
	}
	clear, err := p.GetClearValue()
	if err != nil {
		return err
	}
	if c := codecFor(e.Type); c != nil {
		if e.Data, err = c.Unpack(NewBuffer(clear)); err != nil {
			return werr.ErrIncompletePacket
		}
	}
	return nil
}
