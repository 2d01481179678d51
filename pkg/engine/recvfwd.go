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
	"sync"
	"time"

	"warden/third_party/forked/golang/glog"

	"warden/pkg/auth"
	werr "warden/pkg/errors"
	"warden/pkg/logging/otel"
	"warden/pkg/util"
	"warden/pkg/wire"
)

// ForwardDispatcher starts the fan-out for a message whose header names
// downstream nodes. The forward package registers itself here; the
// indirection keeps the engine free of tree topology concerns.
type ForwardDispatcher func(msg *wire.Msg, hdr *wire.Header) error

var (
	fwdDispatchLock sync.RWMutex
	forwardDispatch ForwardDispatcher
)

func RegisterForwardDispatcher(d ForwardDispatcher) {
	fwdDispatchLock.Lock()
	forwardDispatch = d
	fwdDispatchLock.Unlock()
}

func getForwardDispatcher() ForwardDispatcher {
	fwdDispatchLock.RLock()
	defer fwdDispatchLock.RUnlock()
	return forwardDispatch
}

// ReceiveAndForward is the node agent receive path: decode a request and,
// when its header carries a forwarding descriptor, start propagating to
// the children before the local handler even sees the payload.
func ReceiveAndForward(conn net.Conn, origAddr wire.Addr, msg *wire.Msg, timeout time.Duration) (err error) {
	if !msg.Forward.IsInit() {
		msg.Reset()
	}
	msg.Conn = conn
	msg.Address = origAddr
	msg.OrigAddr = origAddr
	msg.RetList = nil

	if timeout <= 0 {
		glog.Debugf("overriding timeout of %d milliseconds to %d seconds",
			int(timeout/time.Millisecond), int(msgTimeout()/time.Second))
		timeout = msgTimeout()
	} else if timeout < time.Second {
		glog.Debugf("receiving a message with a very short timeout of %d milliseconds", int(timeout/time.Millisecond))
	} else if timeout >= msgTimeout()*10 {
		glog.Debugf("receiving a message with timeout greater than %d seconds", int(msgTimeout()/time.Second)*10)
	}

	defer func() {
		if err != nil {
			if err == werr.ErrProtoAuth && otel.IsEnabled() {
				otel.RecordCount(otel.AuthFail, nil)
			}
			msg.Type = wire.MsgTypeForwardFailed
			msg.AuthCred = nil
			msg.Data = nil
			glog.Errorf("receive msg and forward: %v", err)
			time.Sleep(kAuthFailDelay)
		}
	}()

	frame, rerr := ReadFrame(conn, timeout)
	if rerr != nil {
		err = rerr
		return
	}
	wire.LogHex("recv", frame)

	b := wire.NewBuffer(frame)
	var hdr wire.Header
	if herr := hdr.Unpack(b); herr != nil {
		err = werr.ErrCommReceive
		return
	}
	if hdr.CheckVersion() != nil {
		uid := unpackMsgUID(b, hdr.Version)
		logVersionError(conn, hdr.Version, uid)
		err = werr.ErrProtoVersion
		return
	}
	if hdr.RetCnt > 0 {
		glog.Errorf("received more than one message back, use ReceiveMany instead")
		hdr.RetCnt = 0
		hdr.RetList = nil
	}

	// a set origin means the message already traversed a hop
	if hdr.OrigAddr.IsSet() {
		msg.OrigAddr = hdr.OrigAddr
	} else {
		hdr.OrigAddr = origAddr
	}

	if hdr.Forward.Cnt > 0 {
		hop := time.Duration(hdr.Forward.Timeout) * time.Millisecond
		if hop < msgTimeout() {
			hop = msgTimeout()
		}
		rest := make([]byte, b.Remaining())
		copy(rest, b.Rest())
		msg.FwdState = wire.NewForwardState(rest, int(hdr.Forward.Cnt), hop)
		glog.Debugf("forwarding messages to %d nodes with timeout of %ds",
			hdr.Forward.Cnt, int(hop/time.Second))
		dispatch := getForwardDispatcher()
		if dispatch != nil {
			if derr := dispatch(msg, &hdr); derr != nil {
				glog.Errorf("problem with forward msg: %v", derr)
				dispatch = nil
			}
		} else {
			glog.Errorf("no forward dispatcher registered, %d nodes unreachable", hdr.Forward.Cnt)
		}
		if dispatch == nil {
			// account every downstream node so the response path cannot
			// block waiting for results that will never come
			hosts := util.SplitHostList(hdr.Forward.HostList)
			entries := make([]*wire.RetEntry, 0, len(hosts))
			for _, h := range hosts {
				entries = append(entries, wire.NewForwardFailedEntry(h, werr.KErrCommSend))
			}
			msg.FwdState.Cnt = len(entries)
			msg.FwdState.Deliver(entries)
		}
	}

	blob, aerr := wire.UnpackCredential(b)
	if aerr != nil {
		glog.Errorf("auth unpack: %s has authentication error", hdr.MsgType)
		err = werr.ErrProtoAuth
		return
	}
	cred, aerr := auth.Default().Unpack(wire.NewBuffer(blob), hdr.Version)
	if aerr != nil {
		glog.Errorf("auth unpack: %s has authentication error", hdr.MsgType)
		err = werr.ErrProtoAuth
		return
	}
	msg.AuthIndex = auth.Default().IndexOf(cred)
	if verr := auth.Default().Verify(cred, auth.SecretFor(hdr.Flags)); verr != nil {
		auth.Default().Destroy(cred)
		glog.Errorf("auth verify: %s has authentication error: %v", hdr.MsgType, verr)
		err = werr.ErrProtoAuth
		return
	}

	msg.ProtocolVersion = hdr.Version
	msg.Type = hdr.MsgType
	msg.Flags = hdr.Flags

	// the composite aggregator is acknowledged before its parts are
	// unpacked so the sender's transport timer stops ticking
	if hdr.MsgType == wire.MsgTypeCompositeBatch {
		if rcErr := SendRC(msg, wire.RcSuccess); rcErr != nil {
			glog.Errorf("composite ack: %v", rcErr)
		}
	}

	if uerr := wire.UnmarshalBody(msg, &hdr, b, false); uerr != nil {
		auth.Default().Destroy(cred)
		err = werr.ErrIncompletePacket
		return
	}
	msg.AuthCred = cred
	if hdr.Flags&wire.FlagKeepBuffer != 0 {
		msg.Buffer = frame
	}
	return nil
}
