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

// Package connmgr opens and accepts the short lived TCP connections every
// exchange runs on. Sockets from the net package are close-on-exec, which
// the daemons rely on when spawning task processes.
package connmgr

import (
	"net"
	"sync"
	"time"

	"warden/third_party/forked/golang/glog"

	"warden/pkg/cluster"
	"warden/pkg/conf"
	werr "warden/pkg/errors"
	"warden/pkg/logging/otel"
)

var (
	connectTimeoutOnce sync.Once
	connectTimeout     time.Duration
)

// getConnectTimeout caches the per-attempt connect timeout on first use.
func getConnectTimeout() time.Duration {
	connectTimeoutOnce.Do(func() {
		connectTimeout = conf.GetTransport().MsgTimeout.Duration
		if connectTimeout <= 0 {
			connectTimeout = 10 * time.Second
		}
	})
	return connectTimeout
}

// Connect opens one TCP connection to the endpoint.
func Connect(endpoint cluster.Endpoint) (conn net.Conn, err error) {
	timeStart := time.Now()
	conn, err = net.DialTimeout("tcp", endpoint.Addr(), getConnectTimeout())
	if err == nil {
		if glog.LOG_DEBUG {
			glog.DebugDepth(1, "connected to "+endpoint.Addr())
		}
	} else {
		glog.DebugDepth(1, "fail to connect "+endpoint.Addr()+" error: "+err.Error())
	}
	if otel.IsEnabled() {
		status := otel.StatusSuccess
		if err != nil {
			status = otel.StatusError
		}
		otel.RecordOutboundConnection(endpoint.Addr(), status, time.Since(timeStart).Milliseconds())
	}
	if err != nil {
		err = werr.ErrCommConnection
	}
	return
}

// ConnectRetry keeps trying for up to retrySeconds, sleeping one second
// between whole attempts.
func ConnectRetry(endpoint cluster.Endpoint, retrySeconds int) (net.Conn, error) {
	if retrySeconds < 1 {
		retrySeconds = 1
	}
	var lastErr error
	for retry := 0; retry < retrySeconds; retry++ {
		if retry > 0 {
			time.Sleep(time.Second)
		}
		conn, err := Connect(endpoint)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// PeerAddr returns the remote endpoint of a connection.
func PeerAddr(conn net.Conn) (cluster.Endpoint, error) {
	if conn == nil {
		return cluster.Endpoint{}, werr.ErrNoConnection
	}
	tcp, ok := conn.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return cluster.Endpoint{}, werr.ErrNoConnection
	}
	return cluster.Endpoint{Host: tcp.IP.String(), Port: tcp.Port}, nil
}
