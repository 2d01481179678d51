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

// Package errors defines the numeric error taxonomy surfaced at the
// transport boundary. Callers match on the code, not the text.
package errors

import (
	"fmt"
)

const (
	KErrNoConnection uint32 = 1000 + iota
	KErrBusy
	KErrTimeout
)

const (
	KErrCommConnection uint32 = 1100 + iota
	KErrCommSend
	KErrCommReceive
	KErrCommShutdown
)

const (
	KErrProtoVersion uint32 = 1200 + iota
	KErrProtoAuth
	KErrIncompletePacket
)

const (
	KErrCtlConnection uint32 = 1300 + iota
	KErrCtlSend
	KErrCtlReceive
	KErrCtlShutdown
)

var (
	ErrNoConnection = &Error{what: "no connection", errno: KErrNoConnection}
	ErrBusy         = &Error{what: "busy", errno: KErrBusy}
	ErrTimeout      = &Error{what: "timed out", errno: KErrTimeout}

	ErrCommConnection = &Error{what: "communications connection failure", errno: KErrCommConnection}
	ErrCommSend       = &Error{what: "message send failure", errno: KErrCommSend}
	ErrCommReceive    = &Error{what: "message receive failure", errno: KErrCommReceive}
	ErrCommShutdown   = &Error{what: "communications shutdown failure", errno: KErrCommShutdown}

	ErrProtoVersion     = &Error{what: "incompatible protocol version", errno: KErrProtoVersion}
	ErrProtoAuth        = &Error{what: "protocol authentication error", errno: KErrProtoAuth}
	ErrIncompletePacket = &Error{what: "incomplete packet", errno: KErrIncompletePacket}

	ErrCtlConnection = &Error{what: "controller connection failure", errno: KErrCtlConnection}
	ErrCtlSend       = &Error{what: "controller send failure", errno: KErrCtlSend}
	ErrCtlReceive    = &Error{what: "controller receive failure", errno: KErrCtlReceive}
	ErrCtlShutdown   = &Error{what: "controller shutdown failure", errno: KErrCtlShutdown}
)

type Error struct {
	what  string
	errno uint32
}

func NewError(what string, errno uint32) *Error {
	return &Error{what: what, errno: errno}
}

func (e *Error) Error() string {
	return fmt.Sprintf("error: %s (%d) ", e.what, e.errno)
}

func (e *Error) ErrNo() uint32 {
	return e.errno
}

// ErrNoOf extracts the taxonomy code from err, or 0 when err carries none.
func ErrNoOf(err error) uint32 {
	if e, ok := err.(*Error); ok && e != nil {
		return e.errno
	}
	return 0
}

// RemapController rewrites the generic communications codes to their
// controller specific variants; everything else passes through unchanged.
// Callers invoke it after each controller exchange.
func RemapController(err error) error {
	switch ErrNoOf(err) {
	case KErrCommConnection:
		return ErrCtlConnection
	case KErrCommSend:
		return ErrCtlSend
	case KErrCommReceive:
		return ErrCtlReceive
	case KErrCommShutdown:
		return ErrCtlShutdown
	}
	return err
}
