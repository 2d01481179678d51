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

// Package ctlclient runs request/response exchanges against the active
// controller, riding out failover windows and cross-cluster reroutes.
package ctlclient

import (
	"net"
	"sync"
	"time"

	"warden/third_party/forked/golang/glog"

	"warden/pkg/auth"
	"warden/pkg/cluster"
	"warden/pkg/conf"
	"warden/pkg/connmgr"
	"warden/pkg/engine"
	werr "warden/pkg/errors"
	"warden/pkg/wire"
)

// useBackup persists across calls: once a caller lands on a backup
// during a failover window, later calls start there until a primary
// success or a standby-retry reset.
var (
	useBackupLock sync.Mutex
	useBackup     bool
)

func setUseBackup(v bool) {
	useBackupLock.Lock()
	useBackup = v
	useBackupLock.Unlock()
}

func getUseBackup() bool {
	useBackupLock.Lock()
	defer useBackupLock.Unlock()
	return useBackup
}

func maxRetryPeriod() int {
	t := conf.GetTransport()
	if t.ConnectRetryMax > 0 {
		return t.ConnectRetryMax
	}
	period := int(t.MsgTimeout.Duration / time.Second)
	if period < 1 {
		period = 1
	}
	return period
}

// OpenControllerConn dials the active controller: the cluster record
// override when given, else the VIP, else primary then backups, retrying
// the whole set once per second within the retry budget.
func OpenControllerConn(rec *cluster.Rec) (net.Conn, error) {
	var set *cluster.CtlSet
	if rec == nil {
		var err error
		if set, err = cluster.ResolveControllers(); err != nil {
			return nil, werr.ErrCtlConnection
		}
	}

	for retry := 0; retry < maxRetryPeriod(); retry++ {
		if retry > 0 {
			time.Sleep(time.Second)
		}
		if rec != nil {
			conn, err := connmgr.Connect(rec.Endpoint())
			if err == nil {
				return conn, nil
			}
			glog.Debugf("failed to contact controller at %s: %v", rec.Endpoint().Addr(), err)
			continue
		}
		if set.VIP.IsSet() {
			conn, err := connmgr.Connect(set.VIP)
			if err == nil {
				return conn, nil
			}
			glog.Debugf("failed to contact controller at %s: %v", set.VIP.Addr(), err)
			continue
		}
		if !getUseBackup() {
			conn, err := connmgr.Connect(set.Addrs[0])
			if err == nil {
				setUseBackup(false)
				return conn, nil
			}
			glog.Debugf("failed to contact primary controller: %v", err)
		}
		if set.Count() > 1 || getUseBackup() {
			for i := 1; i < set.Count(); i++ {
				conn, err := connmgr.Connect(set.Addrs[i])
				if err == nil {
					glog.Debugf("contacted backup controller attempt:%d", i-1)
					setUseBackup(true)
					return conn, nil
				}
			}
			setUseBackup(false)
			glog.Debugf("failed to contact backup controller")
		}
	}
	return nil, werr.ErrCtlConnection
}

// SendRecvController opens a connection to the controller, sends the
// request, reads the response and closes the connection. A standby
// answer during the failover window sleeps and retries; a reroute answer
// restarts the exchange against the named cluster.
func SendRecvController(req *wire.Msg, resp *wire.Msg, rec *cluster.Rec) error {
	start := time.Now()
	saveRec := rec

	// only ever talking to one node here, so forwarding is off
	req.Forward.Init()
	req.RetList = nil
	req.FwdState = nil

	for {
		if rec != nil {
			req.Flags |= wire.FlagGlobalAuthKey
		}
		conn, err := OpenControllerConn(rec)
		if err != nil {
			return werr.RemapController(err)
		}

		t := conf.GetTransport()
		haveBackup := len(t.ControllerHosts) > 1
		ctldTimeout := t.ControllerTimeout.Duration

		retry := true
		for retry {
			// if the backup controller is still assuming control, sleep
			// and retry within the standby window
			retry = false
			err = engine.SendAndRecvMsg(conn, req, resp, 0)
			if err == nil {
				if resp.AuthCred != nil {
					auth.Default().Destroy(resp.AuthCred)
					resp.AuthCred = nil
				} else {
					err = werr.ErrCtlReceive
				}
			}

			if err == nil && rec == nil && haveBackup {
				if rc, ok := wire.ReturnCodeOf(resp.Type, resp.Data); ok &&
					rc == wire.RcInStandbyMode &&
					time.Since(start) < ctldTimeout+ctldTimeout/2 {
					glog.Debugf("primary not responding, backup not in control, sleeping and retry")
					time.Sleep(ctldTimeout / 2)
					setUseBackup(false)
					if conn, err = OpenControllerConn(rec); err == nil {
						retry = true
					}
				}
			}
			if err != nil {
				break
			}
		}

		if err == nil && resp.Type == wire.MsgTypeReroute {
			if rr, ok := resp.Data.(*wire.RerouteMsg); ok {
				// don't expect multiple hops, but drop the previous
				// override when they happen
				if rec != nil && rec != saveRec {
					rec = nil
				}
				rec = &cluster.Rec{
					Name:         rr.ClusterName,
					Host:         rr.Host,
					Port:         int(rr.Port),
					ProtoVersion: rr.ProtoVersion,
				}
				continue
			}
		}
		return werr.RemapController(err)
	}
}

// SendOnlyController sends a request to the controller without waiting
// for a response. Not intended to be cross-cluster.
func SendOnlyController(req *wire.Msg, rec *cluster.Rec) error {
	conn, err := OpenControllerConn(rec)
	if err != nil {
		return werr.RemapController(err)
	}
	defer conn.Close()
	if err = engine.Send(conn, req); err != nil {
		return werr.RemapController(err)
	}
	return nil
}

// SendRecvControllerRC runs the exchange and extracts the return code
// from a ReturnCode response.
func SendRecvControllerRC(req *wire.Msg, rec *cluster.Rec) (rc int32, err error) {
	var resp wire.Msg
	if err = SendRecvController(req, &resp, rec); err != nil {
		return
	}
	if v, ok := wire.ReturnCodeOf(resp.Type, resp.Data); ok {
		rc = v
	} else {
		rc = wire.RcError
	}
	return
}
