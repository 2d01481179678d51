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
	"warden/pkg/wire"
)

// kAuthFailDelay discourages brute force probing.
const kAuthFailDelay = 10 * time.Millisecond

func msgTimeout() time.Duration {
	t := conf.GetTransport().MsgTimeout.Duration
	if t <= 0 {
		t = 10 * time.Second
	}
	return t
}

// MsgTimeout is the configured per-message timeout floor.
func MsgTimeout() time.Duration {
	return msgTimeout()
}

func checkRecvTimeout(timeout time.Duration) time.Duration {
	base := msgTimeout()
	if timeout <= 0 {
		return base
	}
	if timeout > base*10 {
		glog.Debugf("receiving a message with very long timeout of %d seconds", int(timeout/time.Second))
	} else if timeout < time.Second {
		glog.Errorf("receiving a message with a very short timeout of %d msecs", int(timeout/time.Millisecond))
	}
	return timeout
}

// unpackMsgUID tries to pull the sender uid out of a frame whose version
// we rejected, for diagnostics only. Returns -1 when it cannot tell.
func unpackMsgUID(b *wire.Buffer, version uint16) int {
	clone := wire.NewBuffer(b.Rest())
	blob, err := wire.UnpackCredential(clone)
	if err != nil {
		return -1
	}
	cred, err := auth.Default().Unpack(wire.NewBuffer(blob), version)
	if err != nil {
		return -1
	}
	defer auth.Default().Destroy(cred)
	if auth.Default().Verify(cred, conf.GetTransport().AuthInfo) != nil {
		return -1
	}
	return int(auth.Default().GetUID(cred))
}

func logVersionError(conn net.Conn, version uint16, uid int) {
	if peer, err := connmgr.PeerAddr(conn); err == nil {
		glog.Errorf("invalid protocol version %#04x from uid=%d at %s", version, uid, peer.Addr())
	} else {
		glog.Errorf("invalid protocol version %#04x from uid=%d from problem connection", version, uid)
	}
}

// unpackReceived decodes a frame on the single-reply path: exactly one
// response, no inline return list, no forwarding.
func unpackReceived(msg *wire.Msg, conn net.Conn, frame []byte) (err error) {
	b := wire.NewBuffer(frame)
	var hdr wire.Header

	defer func() {
		if err != nil {
			if err == werr.ErrProtoAuth && otel.IsEnabled() {
				otel.RecordCount(otel.AuthFail, nil)
			}
			glog.Errorf("receive msg: %v", err)
			time.Sleep(kAuthFailDelay)
		}
	}()

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
		err = werr.ErrIncompletePacket
		return
	}
	if hdr.Forward.Cnt > 0 {
		glog.Errorf("message needs forwarding, use ReceiveAndForward instead")
		err = werr.ErrIncompletePacket
		return
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

// Receive reads one frame within the timeout and decodes it as a single
// response.
func Receive(conn net.Conn, msg *wire.Msg, timeout time.Duration) error {
	msg.Conn = conn
	timeout = checkRecvTimeout(timeout)

	frame, err := ReadFrame(conn, timeout)
	if err != nil {
		return err
	}
	wire.LogHex("recv", frame)
	return unpackReceived(msg, conn, frame)
}
