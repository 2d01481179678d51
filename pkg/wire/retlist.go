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

// RetEntry is one per-node result in an aggregated response. Entries of
// type MsgTypeForwardFailed carry only the error code; all others carry a
// serialized body and, once decoded, Data.
type RetEntry struct {
	NodeName string
	Type     MsgType
	Err      uint32
	Body     []byte
	Data     interface{}
}

func NewForwardFailedEntry(node string, errno uint32) *RetEntry {
	return &RetEntry{NodeName: node, Type: MsgTypeForwardFailed, Err: errno}
}

func (e *RetEntry) pack(b *Buffer) {
	b.Pack16(uint16(e.Type))
	b.Pack32(e.Err)
	b.PackStr(e.NodeName)
	b.PackMem(e.Body)
}

func (e *RetEntry) unpack(b *Buffer) error {
	var t uint16
	if err := b.Unpack16(&t); err != nil {
		return err
	}
	e.Type = MsgType(t)
	if err := b.Unpack32(&e.Err); err != nil {
		return err
	}
	if err := b.UnpackStr(&e.NodeName); err != nil {
		return err
	}
	var body []byte
	if err := b.UnpackMem(&body); err != nil {
		return err
	}
	// entries outlive the receive buffer
	e.Body = make([]byte, len(body))
	copy(e.Body, body)
	return nil
}

func packRetList(entries []*RetEntry, b *Buffer) {
	for _, e := range entries {
		e.pack(b)
	}
}

func unpackRetList(cnt uint16, b *Buffer) (entries []*RetEntry, err error) {
	if uint32(cnt) > NoVal {
		err = werr.ErrIncompletePacket
		return
	}
	entries = make([]*RetEntry, 0, cnt)
	for i := uint16(0); i < cnt; i++ {
		e := &RetEntry{}
		if err = e.unpack(b); err != nil {
			entries = nil
			return
		}
		entries = append(entries, e)
	}
	return
}
