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
	"net"
	"time"

	"warden/third_party/forked/golang/glog"

	"warden/pkg/auth"
	"warden/pkg/conf"
	"warden/pkg/connmgr"
	werr "warden/pkg/errors"
	"warden/pkg/logging/otel"
	"warden/pkg/stats"
	"warden/pkg/wire"
)

// kCredMaxAge: a credential older than this is recreated before it hits
// the wire, so a long forward-wait cannot push it past its TTL.
const kCredMaxAge = 60 * time.Second

func newCredential(msg *wire.Msg) (auth.ICredential, error) {
	return auth.Default().Create(msg.AuthIndex, auth.SecretFor(msg.Flags))
}

// Send serializes msg with a fresh credential and writes one frame on the
// connection.
func Send(conn net.Conn, msg *wire.Msg) error {
	start := time.Now()

	// Create the credential now so the work overlaps the forward wait; it
	// may need recreating if the wait runs long.
	cred, err := newCredential(msg)
	if err != nil {
		glog.Errorf("auth create: %s has authentication error: %v", msg.Type, err)
		return werr.ErrProtoAuth
	}

	if !msg.Forward.IsInit() {
		msg.Forward.Init()
		msg.RetList = nil
	}
	if msg.Forward.TreeWidth == 0 {
		msg.Forward.TreeWidth = conf.GetTransport().TreeWidth
	}

	if msg.FwdState != nil {
		entries := msg.FwdState.Wait()
		msg.RetList = append(msg.RetList, entries...)
		msg.FwdState = nil
	}

	if time.Since(start) >= kCredMaxAge {
		auth.Default().Destroy(cred)
		if cred, err = newCredential(msg); err != nil {
			glog.Errorf("auth create: %s has authentication error: %v", msg.Type, err)
			return werr.ErrProtoAuth
		}
	}

	credBuf := wire.NewBuffer(make([]byte, 0, 64))
	if err = auth.Default().Pack(cred, credBuf, wire.ProtocolVersion()); err != nil {
		auth.Default().Destroy(cred)
		glog.Errorf("auth pack: %s has authentication error: %v", msg.Type, err)
		return werr.ErrProtoAuth
	}
	auth.Default().Destroy(cred)

	frame, err := wire.EncodeFrame(msg, credBuf.Bytes())
	if err != nil {
		glog.Errorf("encode msg_type=%s: %v", msg.Type, err)
		return werr.ErrCommSend
	}
	wire.LogHex("send", frame)

	timeout := conf.GetTransport().MsgTimeout.Duration
	if err = WriteFrame(conn, frame, timeout); err != nil {
		if isNotConn(err) {
			glog.Debugf("peer has disappeared for msg_type=%s", msg.Type)
		} else if peer, perr := connmgr.PeerAddr(conn); perr == nil {
			glog.Errorf("send to address:port=%s msg_type=%s: %v", peer.Addr(), msg.Type, err)
		} else {
			glog.Errorf("send msg_type=%s: %v", msg.Type, err)
		}
		return werr.ErrCommSend
	}
	stats.Default().Record(msg.Type, time.Since(start))
	if otel.IsEnabled() {
		otel.RecordCount(otel.ReqProc, []otel.Tags{{TagName: otel.Operation, TagValue: msg.Type.String()}})
	}
	return nil
}
