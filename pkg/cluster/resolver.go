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
	"os"
	"time"

	werr "warden/pkg/errors"

	"warden/pkg/conf"
)

// CtlSet is the resolved controller set for one connect attempt. Index 0
// of Addrs is the primary; when the VIP is set it is tried instead of the
// list.
type CtlSet struct {
	Addrs []Endpoint
	VIP   Endpoint
}

func (s *CtlSet) Count() int {
	return len(s.Addrs)
}

// JitterPort spreads reconnect storms over the configured port range
// without coordination between clients.
func JitterPort(base, count int, now int64, pid int) int {
	if count <= 1 {
		return base
	}
	return base + int((now+int64(pid))%int64(count))
}

// ResolveControllers builds the controller set from the configuration
// snapshot, applying the per-attempt port jitter.
func ResolveControllers() (*CtlSet, error) {
	t := conf.GetTransport()
	port := JitterPort(t.ControllerPort, t.PortCount, time.Now().Unix(), os.Getpid())

	set := &CtlSet{}
	if len(t.ControllerVIP) > 0 {
		set.VIP = Endpoint{Host: t.ControllerVIP, Port: port}
	}
	for _, h := range t.ControllerHosts {
		set.Addrs = append(set.Addrs, Endpoint{Host: h, Port: port})
	}
	if set.Count() == 0 && !set.VIP.IsSet() {
		return nil, werr.ErrNoConnection
	}
	return set, nil
}

// AddrForNode is where a node agent listens for tree traffic.
func AddrForNode(name string) Endpoint {
	return Endpoint{Host: name, Port: conf.GetTransport().NodePort}
}
