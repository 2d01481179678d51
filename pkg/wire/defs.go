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
	"encoding/binary"
)

type (
	MsgType uint16
	MsgFlag uint16
)

const (
	// kProtocolVersion is written on every outgoing frame; peers running
	// anything within the compatibility window are accepted.
	kProtocolVersion    uint16 = 0x0220
	kMinProtocolVersion uint16 = 0x0200
)

const (
	// NoVal bounds array counts on the wire; anything above it is a
	// corrupt or hostile frame.
	NoVal uint32 = 0xfffffffe
)

const (
	FlagGlobalAuthKey = MsgFlag(0x0001)
	FlagKeepBuffer    = MsgFlag(0x0002)
)

const (
	MsgTypeInvalid = MsgType(0)

	MsgTypeReturnCode     = MsgType(1001)
	MsgTypeReroute        = MsgType(1002)
	MsgTypeCompositeBatch = MsgType(1003)
	// MsgTypeForwardFailed is synthesized for ret-list entries of nodes
	// that never answered; it is never sent as a request.
	MsgTypeForwardFailed = MsgType(1004)

	MsgTypePing        = MsgType(2001)
	MsgTypePong        = MsgType(2002)
	MsgTypeForwardData = MsgType(2003)
)

// Return codes carried by MsgTypeReturnCode.
const (
	RcSuccess       = int32(0)
	RcError         = int32(-1)
	RcInStandbyMode = int32(4023)
)

var (
	EncByteOrder = binary.BigEndian
)

type ProtocolError struct {
	what string
}

func (e *ProtocolError) Error() string {
	return "ProtocolError: " + e.what
}

var (
	ErrBadPayloadType = &ProtocolError{"payload type does not match codec"}
)

var msgTypeNameMap = map[MsgType]string{
	MsgTypeReturnCode:     "ReturnCode",
	MsgTypeReroute:        "Reroute",
	MsgTypeCompositeBatch: "CompositeBatch",
	MsgTypeForwardFailed:  "ForwardFailed",
	MsgTypePing:           "Ping",
	MsgTypePong:           "Pong",
	MsgTypeForwardData:    "ForwardData",
}

func (t MsgType) String() string {
	if name, ok := msgTypeNameMap[t]; ok {
		return name
	}
	return "UnSpecified MsgType"
}

// ProtocolVersion returns the version this build writes on the wire.
func ProtocolVersion() uint16 {
	return kProtocolVersion
}

// VersionSupported reports whether v falls in the compatibility window.
func VersionSupported(v uint16) bool {
	return v >= kMinProtocolVersion && v <= kProtocolVersion
}
