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
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync/atomic"
	"syscall"

	"warden/third_party/forked/golang/glog"

	"warden/pkg/conf"
	werr "warden/pkg/errors"
	"warden/pkg/util"
)

// PortRange is an inclusive [Min, Max] candidate range.
type PortRange struct {
	Min int
	Max int
}

const (
	kEphemeralRetryMin = 10001
	kEphemeralRetryMax = 65535
)

var inControllerRole atomic.Bool

// SetControllerRole selects which comm-parameter flag governs the bind
// address (NoCtldInAddrAny for the controller, NoInAddrAny otherwise).
func SetControllerRole(b bool) {
	inControllerRole.Store(b)
}

// bindHost returns the address listeners bind to: the any-address unless
// the comm parameters demand the hostname's own address.
func bindHost() string {
	params := conf.GetTransport().CommParameters
	flagName := "NoInAddrAny"
	if inControllerRole.Load() {
		flagName = "NoCtldInAddrAny"
	}
	if len(params) == 0 || !containsFold(params, flagName) {
		return ""
	}
	host, err := os.Hostname()
	if err != nil {
		glog.Errorf("cannot get hostname for %s: %v", flagName, err)
		return ""
	}
	return host
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func listenOn(port int) (net.Listener, error) {
	return net.Listen("tcp", fmt.Sprintf("%s:%d", bindHost(), port))
}

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}

// Listen binds and listens on the given port. For an ephemeral request
// (port 0) that fails with address-in-use, every port in
// [10001, 65535] is tried in order.
func Listen(port int) (net.Listener, error) {
	ln, err := listenOn(port)
	if err == nil {
		return ln, nil
	}
	if port == 0 && isAddrInUse(err) {
		for p := kEphemeralRetryMin; p <= kEphemeralRetryMax; p++ {
			if ln, err = listenOn(p); err == nil {
				return ln, nil
			}
		}
	}
	glog.Errorf("listen on port %d failed: %v", port, err)
	return nil, werr.ErrCommConnection
}

// ListenRange binds within the caller's range, starting from a pseudo
// random port derived from the process identity and scanning linearly
// with wrap-around.
func ListenRange(r PortRange) (net.Listener, int, error) {
	if r.Min > r.Max || r.Min <= 0 {
		return nil, -1, werr.ErrCommConnection
	}
	num := r.Max - r.Min + 1
	port := r.Min + int(util.LocalSeed()%uint32(num))
	for count := num; count > 0; count-- {
		ln, err := listenOn(port)
		if err == nil {
			return ln, port, nil
		}
		if port == r.Max {
			port = r.Min
		} else {
			port++
		}
	}
	glog.Errorf("all ports in range (%d, %d) exhausted, cannot establish listening port", r.Min, r.Max)
	return nil, -1, werr.ErrCommConnection
}
