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

// Package cluster resolves which endpoint the active controller lives at
// and describes peer clusters for cross-cluster messaging.
package cluster

import (
	"net"
	"strconv"
)

type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) IsSet() bool {
	return len(e.Host) > 0
}

// Rec overrides the controller endpoint for cross-cluster messaging; a
// reroute response carries one.
type Rec struct {
	Name         string
	Host         string
	Port         int
	ProtoVersion uint16
}

func (r *Rec) Endpoint() Endpoint {
	return Endpoint{Host: r.Host, Port: r.Port}
}
