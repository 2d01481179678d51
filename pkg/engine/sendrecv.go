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

// Simplified communication routines: open a connection, do the work,
// close the connection, all within the call.

import (
	"net"
	"time"

	"warden/pkg/cluster"
	"warden/pkg/connmgr"
	werr "warden/pkg/errors"
	"warden/pkg/wire"
)

// SendRecvMsg pairs one request with one response on an open connection.
func SendRecvMsg(conn net.Conn, req *wire.Msg, resp *wire.Msg, timeout time.Duration) error {
	resp.Reset()
	if err := Send(conn, req); err != nil {
		return err
	}
	return Receive(conn, resp, timeout)
}

// SendAndRecvMsg is SendRecvMsg plus closing the connection.
func SendAndRecvMsg(conn net.Conn, req *wire.Msg, resp *wire.Msg, timeout time.Duration) error {
	err := SendRecvMsg(conn, req, resp, timeout)
	conn.Close()
	return err
}

// SendAndRecvRetList sends a (possibly forwarded) request and collects
// the aggregated replies, scaling the wait to the depth of the tree
// below the peer. Closes the connection.
func SendAndRecvRetList(conn net.Conn, req *wire.Msg, timeout time.Duration) ([]*wire.RetEntry, error) {
	defer conn.Close()

	if req.Forward.Timeout == 0 {
		if timeout <= 0 {
			timeout = msgTimeout()
		}
		req.Forward.Timeout = uint32(timeout / time.Millisecond)
	}
	if err := Send(conn, req); err != nil {
		return nil, err
	}
	steps := 0
	if req.Forward.Cnt > 0 {
		steps = int(req.Forward.Cnt) + 1
		if req.Forward.TreeWidth > 0 {
			steps /= int(req.Forward.TreeWidth)
		}
		timeout = msgTimeout() * time.Duration(steps)
		steps++
		timeout += time.Duration(req.Forward.Timeout) * time.Millisecond * time.Duration(steps)
	}
	return ReceiveMany(conn, steps, timeout)
}

// SendRecvNode runs one exchange against a node agent.
func SendRecvNode(endpoint cluster.Endpoint, req *wire.Msg, resp *wire.Msg, timeout time.Duration) error {
	conn, err := connmgr.Connect(endpoint)
	if err != nil {
		return err
	}
	return SendAndRecvMsg(conn, req, resp, timeout)
}

// SendOnlyNode sends without waiting for a reply.
func SendOnlyNode(endpoint cluster.Endpoint, req *wire.Msg) error {
	conn, err := connmgr.Connect(endpoint)
	if err != nil {
		return err
	}
	defer conn.Close()
	return Send(conn, req)
}

// SendResponse answers a received message on the connection it arrived
// on, mirroring its routing state.
func SendResponse(msg *wire.Msg, t wire.MsgType, data interface{}) error {
	if msg.Conn == nil {
		return werr.ErrNoConnection
	}
	resp := msg.SetupResponse(t, data)
	resp.FwdState = msg.FwdState
	msg.FwdState = nil
	return Send(msg.Conn, resp)
}

// SendRC is the common "just a return code" answer.
func SendRC(msg *wire.Msg, rc int32) error {
	if msg.Conn == nil {
		return werr.ErrNoConnection
	}
	resp := msg.SetupRCResponse(rc)
	return Send(msg.Conn, resp)
}
