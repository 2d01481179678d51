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

// Header is the typed view of the envelope header.
type Header struct {
	Version    uint16
	Flags      MsgFlag
	MsgType    MsgType
	BodyLength uint32
	Forward    ForwardInfo
	RetCnt     uint16
	RetList    []*RetEntry
	OrigAddr   Addr
}

// InitFromMsg fills the header from an outgoing message. The body length
// is a placeholder until UpdateBodyLength rewrites it.
func (h *Header) InitFromMsg(msg *Msg, flags MsgFlag) {
	h.Version = kProtocolVersion
	if msg.ProtocolVersion != 0 {
		h.Version = msg.ProtocolVersion
	}
	h.Flags = flags
	h.MsgType = msg.Type
	h.BodyLength = 0
	h.Forward = msg.Forward
	h.OrigAddr = msg.OrigAddr
	if len(msg.RetList) > 0 {
		h.RetCnt = uint16(len(msg.RetList))
		h.RetList = msg.RetList
	} else {
		h.RetCnt = 0
		h.RetList = nil
	}
}

func (h *Header) UpdateBodyLength(n uint32) {
	h.BodyLength = n
}

// CheckVersion rejects peers outside the compatibility window.
func (h *Header) CheckVersion() error {
	if !VersionSupported(h.Version) {
		return werr.ErrProtoVersion
	}
	return nil
}

func (h *Header) Pack(b *Buffer) {
	b.Pack16(h.Version)
	b.Pack16(uint16(h.Flags))
	b.Pack16(uint16(h.MsgType))
	b.Pack32(h.BodyLength)
	h.Forward.pack(b)
	b.Pack16(h.RetCnt)
	if h.RetCnt > 0 {
		packRetList(h.RetList, b)
	}
	h.OrigAddr.Pack(b)
}

func (h *Header) Unpack(b *Buffer) error {
	if err := b.Unpack16(&h.Version); err != nil {
		return werr.ErrCommReceive
	}
	var f, t uint16
	if err := b.Unpack16(&f); err != nil {
		return werr.ErrCommReceive
	}
	h.Flags = MsgFlag(f)
	if err := b.Unpack16(&t); err != nil {
		return werr.ErrCommReceive
	}
	h.MsgType = MsgType(t)
	if err := b.Unpack32(&h.BodyLength); err != nil {
		return werr.ErrCommReceive
	}
	if err := h.Forward.unpack(b); err != nil {
		return werr.ErrCommReceive
	}
	if err := b.Unpack16(&h.RetCnt); err != nil {
		return werr.ErrCommReceive
	}
	if h.RetCnt > 0 {
		var err error
		if h.RetList, err = unpackRetList(h.RetCnt, b); err != nil {
			return werr.ErrCommReceive
		}
	}
	if err := h.OrigAddr.Unpack(b); err != nil {
		return werr.ErrCommReceive
	}
	return nil
}
