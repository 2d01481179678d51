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

package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testToml = `
LogLevel = "debug"

[Transport]
ControllerHosts = ["ctl0", "ctl1"]
ControllerPort = 7817
PortCount = 4
MsgTimeout = "5s"
ControllerTimeout = "60s"
TreeWidth = 16
AuthInfo = "ttl=120"
CommParameters = "NoInAddrAny"
`

func writeConf(t *testing.T, body string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "warden.conf")
	if err := os.WriteFile(file, []byte(body), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return file
}

func TestReadFromTomlFile(t *testing.T) {
	c, err := ReadFromTomlFile(writeConf(t, testToml))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	tr := c.Transport
	if len(tr.ControllerHosts) != 2 || tr.ControllerHosts[0] != "ctl0" {
		t.Errorf("hosts: %v", tr.ControllerHosts)
	}
	if tr.ControllerPort != 7817 || tr.PortCount != 4 {
		t.Errorf("port: %d/%d", tr.ControllerPort, tr.PortCount)
	}
	if tr.MsgTimeout.Duration != 5*time.Second {
		t.Errorf("msg timeout: %v", tr.MsgTimeout)
	}
	if tr.ControllerTimeout.Duration != 60*time.Second {
		t.Errorf("controller timeout: %v", tr.ControllerTimeout)
	}
	if tr.TreeWidth != 16 || tr.AuthInfo != "ttl=120" {
		t.Errorf("tree/auth: %d %q", tr.TreeWidth, tr.AuthInfo)
	}
	if c.LogLevel != "debug" {
		t.Errorf("log level: %q", c.LogLevel)
	}
}

func TestDefaultsApplied(t *testing.T) {
	c, err := ReadFromTomlFile(writeConf(t, "[Transport]\nControllerHosts = [\"ctl0\"]\n"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	tr := c.Transport
	if tr.ControllerPort != defaultTransport.ControllerPort {
		t.Errorf("port default: %d", tr.ControllerPort)
	}
	if tr.MsgTimeout.Duration != defaultTransport.MsgTimeout.Duration {
		t.Errorf("msg timeout default: %v", tr.MsgTimeout)
	}
	if tr.TreeWidth != defaultTransport.TreeWidth {
		t.Errorf("tree width default: %d", tr.TreeWidth)
	}
}

func TestValidateRejectsEmpty(t *testing.T) {
	if _, err := ReadFromTomlFile(writeConf(t, "")); err == nil {
		t.Errorf("empty config accepted")
	}
}

func TestSnapshotReplacedAtomically(t *testing.T) {
	base := Get()
	defer Set(base)

	c := base
	c.Transport.ControllerHosts = []string{"ctlX"}
	c.Transport.TreeWidth = 9
	if err := Set(c); err != nil {
		t.Fatalf("set: %v", err)
	}
	got := GetTransport()
	if got.TreeWidth != 9 || got.ControllerHosts[0] != "ctlX" {
		t.Errorf("snapshot: %+v", got)
	}
}
