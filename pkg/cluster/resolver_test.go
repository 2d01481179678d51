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

package cluster

import (
	"testing"
	"time"

	"warden/pkg/conf"
	"warden/pkg/util"
)

func setConf(t *testing.T, tr conf.Transport) {
	t.Helper()
	if err := conf.Set(conf.Config{Transport: tr, LogLevel: "error"}); err != nil {
		t.Fatalf("conf: %v", err)
	}
}

func TestJitterPort(t *testing.T) {
	if got := JitterPort(6817, 1, 12345, 678); got != 6817 {
		t.Errorf("single port jittered: %d", got)
	}
	for now := int64(0); now < 10; now++ {
		got := JitterPort(6817, 4, now, 3)
		want := 6817 + int((now+3)%4)
		if got != want {
			t.Errorf("JitterPort(now=%d) = %d, want %d", now, got, want)
		}
	}
}

func TestResolveControllersOrder(t *testing.T) {
	setConf(t, conf.Transport{
		ControllerHosts: []string{"primary", "backup0", "backup1"},
		ControllerPort:  6817,
		PortCount:       1,
		MsgTimeout:      util.Duration{Duration: time.Second},
	})
	set, err := ResolveControllers()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if set.Count() != 3 {
		t.Fatalf("count: %d", set.Count())
	}
	if set.Addrs[0].Host != "primary" || set.Addrs[1].Host != "backup0" || set.Addrs[2].Host != "backup1" {
		t.Errorf("order: %v", set.Addrs)
	}
	if set.VIP.IsSet() {
		t.Errorf("unexpected vip")
	}
	for _, a := range set.Addrs {
		if a.Port != 6817 {
			t.Errorf("port: %d", a.Port)
		}
	}
}

func TestResolveControllersVIP(t *testing.T) {
	setConf(t, conf.Transport{
		ControllerHosts: []string{"primary"},
		ControllerVIP:   "vip-host",
		ControllerPort:  6817,
		PortCount:       1,
		MsgTimeout:      util.Duration{Duration: time.Second},
	})
	set, err := ResolveControllers()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !set.VIP.IsSet() || set.VIP.Host != "vip-host" {
		t.Errorf("vip: %+v", set.VIP)
	}
}

func TestResolveControllersPortJitterWindow(t *testing.T) {
	setConf(t, conf.Transport{
		ControllerHosts: []string{"primary"},
		ControllerPort:  7000,
		PortCount:       4,
		MsgTimeout:      util.Duration{Duration: time.Second},
	})
	set, err := ResolveControllers()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	p := set.Addrs[0].Port
	if p < 7000 || p > 7003 {
		t.Errorf("jittered port %d outside [7000, 7003]", p)
	}
}

func TestRecEndpoint(t *testing.T) {
	rec := &Rec{Name: "east", Host: "ctl-east", Port: 6817}
	if got := rec.Endpoint().Addr(); got != "ctl-east:6817" {
		t.Errorf("addr: %s", got)
	}
}
