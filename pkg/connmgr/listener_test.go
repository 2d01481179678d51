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

package connmgr

import (
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"warden/pkg/cluster"
	"warden/pkg/conf"
	"warden/pkg/util"
)

func TestMain(m *testing.M) {
	conf.Set(conf.Config{
		Transport: conf.Transport{
			ControllerHosts: []string{"127.0.0.1"},
			MsgTimeout:      util.Duration{Duration: time.Second},
		},
		LogLevel: "error",
	})
	os.Exit(m.Run())
}

// grab binds a raw listener so a port in the test range is occupied.
func grab(t *testing.T, port int) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		t.Skipf("port %d not available on this host", port)
	}
	return ln
}

func TestListenRangePicksFreePort(t *testing.T) {
	l0 := grab(t, 20000)
	defer l0.Close()
	l2 := grab(t, 20002)
	defer l2.Close()

	ln, port, err := ListenRange(PortRange{Min: 20000, Max: 20002})
	if err != nil {
		t.Fatalf("listen range: %v", err)
	}
	defer ln.Close()
	if port != 20001 {
		t.Errorf("bound port %d, want 20001", port)
	}
}

func TestListenRangeExhausted(t *testing.T) {
	l0 := grab(t, 20000)
	defer l0.Close()
	l1 := grab(t, 20001)
	defer l1.Close()
	l2 := grab(t, 20002)
	defer l2.Close()

	if ln, _, err := ListenRange(PortRange{Min: 20000, Max: 20002}); err == nil {
		ln.Close()
		t.Fatalf("expected failure on fully occupied range")
	}
}

func TestListenRangeRejectsBadRange(t *testing.T) {
	if ln, _, err := ListenRange(PortRange{Min: 300, Max: 200}); err == nil {
		ln.Close()
		t.Fatalf("inverted range accepted")
	}
}

func TestListenEphemeral(t *testing.T) {
	ln, err := Listen(0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	if ln.Addr().(*net.TCPAddr).Port == 0 {
		t.Errorf("no port bound")
	}
}

func TestConnectAndPeerAddr(t *testing.T) {
	ln, err := Listen(0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go ln.Accept()

	port := ln.Addr().(*net.TCPAddr).Port
	conn, err := Connect(cluster.Endpoint{Host: "127.0.0.1", Port: port})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	peer, err := PeerAddr(conn)
	if err != nil {
		t.Fatalf("peer addr: %v", err)
	}
	if peer.Port != port {
		t.Errorf("peer port %d, want %d", peer.Port, port)
	}
}

func TestConnectRefused(t *testing.T) {
	// bind and close to get a port nobody listens on
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	if conn, err := Connect(cluster.Endpoint{Host: "127.0.0.1", Port: port}); err == nil {
		conn.Close()
		t.Fatalf("connect to closed port succeeded")
	}
}
