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
	"net"
)

// Msg is the exchange unit at the transport boundary. It lives for one
// request/response exchange and is mutated only by the sending or
// receiving path.
type Msg struct {
	ProtocolVersion uint16
	Type            MsgType
	Flags           MsgFlag

	// Address is the peer of the current hop; OrigAddr is where the
	// message first entered the forwarding tree.
	Address  Addr
	OrigAddr Addr

	Forward ForwardInfo
	RetList []*RetEntry

	// AuthCred is owned by the auth adapter; the transport never looks
	// inside.
	AuthCred  interface{}
	AuthIndex uint32

	// Data is the decoded payload; RawBody the serialized payload bytes
	// when no codec is registered for Type.
	Data    interface{}
	RawBody []byte

	// Buffer retains the received frame when FlagKeepBuffer is set.
	Buffer []byte

	// FwdState is non-nil while a fan-out started by this message is in
	// flight; the response path drains it before replying upstream.
	FwdState *ForwardState

	// Conn is the connection the message arrived on; responses go back
	// on it.
	Conn net.Conn
}

// NewMsg returns a message with forwarding explicitly disabled.
func NewMsg(t MsgType, data interface{}) *Msg {
	m := &Msg{Type: t, Data: data}
	m.Forward.Init()
	return m
}

func (m *Msg) Reset() {
	*m = Msg{}
	m.Forward.Init()
}

// SetupResponse builds a response mirroring the request's routing state,
// so replies travel back through the same aggregation path.
func (m *Msg) SetupResponse(t MsgType, data interface{}) *Msg {
	resp := &Msg{
		ProtocolVersion: m.ProtocolVersion,
		Type:            t,
		Flags:           m.Flags,
		Address:         m.Address,
		OrigAddr:        m.OrigAddr,
		Forward:         m.Forward,
		RetList:         m.RetList,
		AuthIndex:       m.AuthIndex,
		Data:            data,
		Conn:            m.Conn,
	}
	return resp
}

// SetupRCResponse is the common "just a return code" response.
func (m *Msg) SetupRCResponse(rc int32) *Msg {
	return m.SetupResponse(MsgTypeReturnCode, &ReturnCodeMsg{ReturnCode: rc})
}

// ReturnCodeOf extracts the return code from a decoded message; ok is
// false when the message is not a ReturnCode response.
func ReturnCodeOf(t MsgType, data interface{}) (rc int32, ok bool) {
	if t != MsgTypeReturnCode {
		return
	}
	body, good := data.(*ReturnCodeMsg)
	if !good || body == nil {
		return
	}
	return body.ReturnCode, true
}
