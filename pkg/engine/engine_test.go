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
	"bytes"
	"net"
	"os"
	"testing"
	"time"

	"warden/pkg/cluster"
	"warden/pkg/conf"
	"warden/pkg/connmgr"
	werr "warden/pkg/errors"
	"warden/pkg/util"
	"warden/pkg/wire"
)

func TestMain(m *testing.M) {
	conf.Set(conf.Config{
		Transport: conf.Transport{
			ControllerHosts: []string{"127.0.0.1"},
			ControllerPort:  16817,
			NodePort:        16818,
			MsgTimeout:      util.Duration{Duration: 2 * time.Second},
			TreeWidth:       3,
			AuthInfo:        "ttl=300",
		},
		LogLevel: "error",
	})
	os.Exit(m.Run())
}

// startServer runs handler once per accepted connection until the
// listener closes.
func startServer(t *testing.T, handler func(conn net.Conn)) (cluster.Endpoint, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				handler(c)
			}(conn)
		}
	}()
	port := ln.Addr().(*net.TCPAddr).Port
	return cluster.Endpoint{Host: "127.0.0.1", Port: port}, func() { ln.Close() }
}

func TestEchoExchange(t *testing.T) {
	endpoint, stop := startServer(t, func(conn net.Conn) {
		msg := wire.NewMsg(wire.MsgTypeInvalid, nil)
		if err := Receive(conn, msg, 0); err != nil {
			t.Errorf("server receive: %v", err)
			return
		}
		if msg.Type != wire.MsgTypePing || !bytes.Equal(msg.RawBody, []byte{0xde, 0xad}) {
			t.Errorf("server got type=%v body=%x", msg.Type, msg.RawBody)
		}
		pong := msg.SetupResponse(wire.MsgTypePong, nil)
		pong.RawBody = []byte{0xbe, 0xef}
		if err := Send(conn, pong); err != nil {
			t.Errorf("server send: %v", err)
		}
	})
	defer stop()

	req := wire.NewMsg(wire.MsgTypePing, nil)
	req.RawBody = []byte{0xde, 0xad}
	var resp wire.Msg
	if err := SendRecvNode(endpoint, req, &resp, 0); err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if resp.Type != wire.MsgTypePong {
		t.Errorf("resp type: %v", resp.Type)
	}
	if !bytes.Equal(resp.RawBody, []byte{0xbe, 0xef}) {
		t.Errorf("resp body: %x", resp.RawBody)
	}
}

func TestVersionSkewRejected(t *testing.T) {
	endpoint, stop := startServer(t, func(conn net.Conn) {
		if _, err := ReadFrame(conn, time.Second); err != nil {
			return
		}
		// answer with a version beyond the window
		pong := wire.NewMsg(wire.MsgTypePong, nil)
		frame, err := wire.EncodeFrame(pong, []byte("cred"))
		if err != nil {
			t.Errorf("encode: %v", err)
			return
		}
		wire.EncByteOrder.PutUint16(frame[0:2], wire.ProtocolVersion()+1)
		WriteFrame(conn, frame, time.Second)
	})
	defer stop()

	conn, err := connmgr.Connect(endpoint)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	req := wire.NewMsg(wire.MsgTypePing, nil)
	if err = Send(conn, req); err != nil {
		t.Fatalf("send: %v", err)
	}
	var resp wire.Msg
	if err = Receive(conn, &resp, 0); err != werr.ErrProtoVersion {
		t.Errorf("got %v, want ErrProtoVersion", err)
	}
}

// malformedFrame is header plus a credential blob no plugin can unpack.
func malformedFrame(t *testing.T) []byte {
	t.Helper()
	msg := wire.NewMsg(wire.MsgTypePing, nil)
	var hdr wire.Header
	hdr.InitFromMsg(msg, 0)
	b := wire.NewBuffer(make([]byte, 0, 64))
	hdr.Pack(b)
	b.PackMem([]byte{1, 2, 3})
	return b.Bytes()
}

func TestMalformedCredentialRateLimited(t *testing.T) {
	got := make(chan error, 2)
	durations := make(chan time.Duration, 2)
	endpoint, stop := startServer(t, func(conn net.Conn) {
		msg := wire.NewMsg(wire.MsgTypeInvalid, nil)
		start := time.Now()
		err := Receive(conn, msg, 0)
		durations <- time.Since(start)
		got <- err
	})
	defer stop()

	for i := 0; i < 2; i++ {
		conn, err := connmgr.Connect(endpoint)
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
		if err = WriteFrame(conn, malformedFrame(t), time.Second); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err = <-got; err != werr.ErrProtoAuth {
			t.Errorf("receive %d: got %v, want ErrProtoAuth", i, err)
		}
		if d := <-durations; d < 10*time.Millisecond {
			t.Errorf("receive %d returned after %v, want >= 10ms", i, d)
		}
		conn.Close()
	}
}

func TestReceiveRejectsRetListOnSinglePath(t *testing.T) {
	result := make(chan error, 1)
	endpoint, stop := startServer(t, func(conn net.Conn) {
		msg := wire.NewMsg(wire.MsgTypeInvalid, nil)
		result <- Receive(conn, msg, 0)
	})
	defer stop()

	conn, err := connmgr.Connect(endpoint)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	req := wire.NewMsg(wire.MsgTypePing, nil)
	req.RetList = []*wire.RetEntry{wire.NewForwardFailedEntry("n1", werr.KErrCommReceive)}
	if err = Send(conn, req); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err = <-result; err != werr.ErrIncompletePacket {
		t.Errorf("got %v, want ErrIncompletePacket", err)
	}
}

func TestReceiveRejectsForwardOnSinglePath(t *testing.T) {
	result := make(chan error, 1)
	endpoint, stop := startServer(t, func(conn net.Conn) {
		msg := wire.NewMsg(wire.MsgTypeInvalid, nil)
		result <- Receive(conn, msg, 0)
	})
	defer stop()

	conn, err := connmgr.Connect(endpoint)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	req := wire.NewMsg(wire.MsgTypePing, nil)
	req.Forward.Set("n1", 1, 1000, 3)
	if err = Send(conn, req); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err = <-result; err != werr.ErrIncompletePacket {
		t.Errorf("got %v, want ErrIncompletePacket", err)
	}
}

// retBody serializes a payload region the way aggregated entries carry it.
func retBody(t *testing.T, tp wire.MsgType, data interface{}) []byte {
	t.Helper()
	m := wire.NewMsg(tp, data)
	p, err := wire.MarshalBody(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := wire.NewBuffer(make([]byte, 0, 16))
	p.Encode(out)
	return out.Bytes()
}

func TestReceiveManySplitsRetList(t *testing.T) {
	n1Body := retBody(t, wire.MsgTypeReturnCode, &wire.ReturnCodeMsg{ReturnCode: 5})
	endpoint, stop := startServer(t, func(conn net.Conn) {
		msg := wire.NewMsg(wire.MsgTypeInvalid, nil)
		if err := Receive(conn, msg, 0); err != nil {
			t.Errorf("server receive: %v", err)
			return
		}
		resp := msg.SetupResponse(wire.MsgTypeReturnCode, &wire.ReturnCodeMsg{ReturnCode: wire.RcSuccess})
		resp.RetList = []*wire.RetEntry{
			{NodeName: "n1", Type: wire.MsgTypeReturnCode, Body: n1Body},
			wire.NewForwardFailedEntry("n2", werr.KErrCommReceive),
		}
		if err := Send(conn, resp); err != nil {
			t.Errorf("server send: %v", err)
		}
	})
	defer stop()

	conn, err := connmgr.Connect(endpoint)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	req := wire.NewMsg(wire.MsgTypePing, nil)
	entries, err := SendAndRecvRetList(conn, req, 0)
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries: %d, want 3", len(entries))
	}
	byName := make(map[string]*wire.RetEntry)
	for _, e := range entries {
		byName[e.NodeName] = e
	}
	if e := byName["n1"]; e == nil || e.Type != wire.MsgTypeReturnCode {
		t.Errorf("n1 entry: %+v", e)
	} else if rc, ok := wire.ReturnCodeOf(e.Type, e.Data); !ok || rc != 5 {
		t.Errorf("n1 rc: %d %v", rc, ok)
	}
	if e := byName["n2"]; e == nil || e.Type != wire.MsgTypeForwardFailed || e.Err != werr.KErrCommReceive {
		t.Errorf("n2 entry: %+v", e)
	}
	if e := byName[""]; e == nil {
		t.Errorf("missing direct reply entry")
	} else if rc, ok := wire.ReturnCodeOf(e.Type, e.Data); !ok || rc != wire.RcSuccess {
		t.Errorf("direct rc: %d %v", rc, ok)
	}
}

func TestSendOnlyNode(t *testing.T) {
	received := make(chan wire.MsgType, 1)
	endpoint, stop := startServer(t, func(conn net.Conn) {
		msg := wire.NewMsg(wire.MsgTypeInvalid, nil)
		if err := Receive(conn, msg, 0); err == nil {
			received <- msg.Type
		}
	})
	defer stop()

	req := wire.NewMsg(wire.MsgTypePing, nil)
	if err := SendOnlyNode(endpoint, req); err != nil {
		t.Fatalf("send only: %v", err)
	}
	select {
	case tp := <-received:
		if tp != wire.MsgTypePing {
			t.Errorf("server got %v", tp)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("server never saw the message")
	}
}

func TestWaitReadable(t *testing.T) {
	endpoint, stop := startServer(t, func(conn net.Conn) {
		time.Sleep(200 * time.Millisecond)
		conn.Write([]byte{0x1})
		time.Sleep(time.Second)
	})
	defer stop()

	conn, err := connmgr.Connect(endpoint)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	ready, err := WaitReadable(conn, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if ready {
		t.Errorf("readable before server wrote")
	}
	ready, err = WaitReadable(conn, 2*time.Second)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !ready {
		t.Errorf("not readable after server wrote")
	}
}
