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

package engine

import (
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	werr "warden/pkg/errors"
	"warden/pkg/wire"
)

// kMaxFrameSize rejects nonsense length prefixes before allocating.
const kMaxFrameSize = 64 * 1024 * 1024

// WriteFrame sends one length prefixed frame within the timeout.
func WriteFrame(conn net.Conn, frame []byte, timeout time.Duration) error {
	if conn == nil {
		return werr.ErrNoConnection
	}
	conn.SetWriteDeadline(time.Now().Add(timeout))
	defer conn.SetWriteDeadline(time.Time{})

	var prefix [4]byte
	wire.EncByteOrder.PutUint32(prefix[:], uint32(len(frame)))
	bufs := net.Buffers{prefix[:], frame}
	if _, err := bufs.WriteTo(conn); err != nil {
		return err
	}
	return nil
}

// ReadFrame reads one length prefixed frame within the timeout.
func ReadFrame(conn net.Conn, timeout time.Duration) ([]byte, error) {
	if conn == nil {
		return nil, werr.ErrNoConnection
	}
	conn.SetReadDeadline(time.Now().Add(timeout))
	defer conn.SetReadDeadline(time.Time{})

	var prefix [4]byte
	if _, err := io.ReadFull(conn, prefix[:]); err != nil {
		return nil, werr.ErrCommReceive
	}
	n := wire.EncByteOrder.Uint32(prefix[:])
	if n == 0 || n > kMaxFrameSize {
		return nil, werr.ErrCommReceive
	}
	frame := make([]byte, n)
	if _, err := io.ReadFull(conn, frame); err != nil {
		return nil, werr.ErrCommReceive
	}
	return frame, nil
}

// WaitReadable blocks until the connection has data to read or the
// timeout expires. It is the cooperative cancellation primitive of the
// transport: a timed poll, nothing signal driven.
func WaitReadable(conn net.Conn, timeout time.Duration) (ready bool, err error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return false, werr.ErrNoConnection
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return false, werr.ErrNoConnection
	}
	conn.SetReadDeadline(time.Now().Add(timeout))
	defer conn.SetReadDeadline(time.Time{})

	waited := false
	rerr := rc.Read(func(fd uintptr) bool {
		if !waited {
			waited = true
			return false
		}
		return true
	})
	if rerr != nil {
		if nerr, ok := rerr.(net.Error); ok && nerr.Timeout() {
			return false, nil
		}
		return false, werr.ErrCommReceive
	}
	return true, nil
}

func isNotConn(err error) bool {
	return errors.Is(err, syscall.ENOTCONN) || errors.Is(err, syscall.EPIPE)
}
