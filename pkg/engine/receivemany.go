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
	werr "warden/pkg/errors"
	"warden/pkg/logging/otel"
	"warden/pkg/wire"
)

// ReceiveMany reads one frame that may carry an aggregated return list
// and always returns a list: the inline entries plus one entry for the
// peer's own reply. On error a ForwardFailed entry with no node name
// takes the place of the peer's reply, after any inline entries already
// decoded. steps is
// how many tree levels below the peer share the timeout budget.
func ReceiveMany(conn net.Conn, steps int, timeout time.Duration) (retList []*wire.RetEntry, err error) {
	if timeout <= 0 {
		timeout = msgTimeout()
	}
	perLevel := timeout
	if steps > 0 {
		perLevel = (timeout - msgTimeout()*time.Duration(steps-1)) / time.Duration(steps)
	}
	if perLevel >= msgTimeout()*10 {
		glog.Debugf("receiving messages with per level timeout greater than %d seconds", int(msgTimeout()/time.Second)*10)
	} else if perLevel < time.Second {
		glog.Debugf("receiving messages with a very short per level timeout of %d milliseconds", int(perLevel/time.Millisecond))
	}

	defer func() {
		if err != nil {
			if err == werr.ErrProtoAuth && otel.IsEnabled() {
				otel.RecordCount(otel.AuthFail, nil)
			}
			retList = append(retList, wire.NewForwardFailedEntry("", werr.ErrNoOf(err)))
			glog.Errorf("receive msgs: %v", err)
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

	// the aggregated path accepts an inline return list
	if hdr.RetCnt > 0 {
		retList = hdr.RetList
		for _, e := range retList {
			if derr := wire.UnmarshalRetBody(e); derr != nil {
				glog.Errorf("decode ret entry for %s: %v", e.NodeName, derr)
				e.Type = wire.MsgTypeForwardFailed
				e.Err = werr.KErrIncompletePacket
			}
		}
	}
	if hdr.Forward.Cnt > 0 {
		glog.Errorf("message needs forwarding, use ReceiveAndForward instead")
	}

	blob, aerr := wire.UnpackCredential(b)
	if aerr != nil {
		err = werr.ErrProtoAuth
		return
	}
	cred, aerr := auth.Default().Unpack(wire.NewBuffer(blob), hdr.Version)
	if aerr != nil {
		err = werr.ErrProtoAuth
		return
	}
	defer auth.Default().Destroy(cred)
	if verr := auth.Default().Verify(cred, auth.SecretFor(hdr.Flags)); verr != nil {
		glog.Errorf("auth verify: %s has authentication error: %v", hdr.MsgType, verr)
		err = werr.ErrProtoAuth
		return
	}

	var msg wire.Msg
	msg.Forward.Init()
	msg.ProtocolVersion = hdr.Version
	msg.Type = hdr.MsgType
	msg.Flags = hdr.Flags
	if int(hdr.BodyLength) > b.Remaining() {
		err = werr.ErrIncompletePacket
		return
	}
	bodyRegion := make([]byte, hdr.BodyLength)
	copy(bodyRegion, b.Rest()[:hdr.BodyLength])
	if uerr := wire.UnmarshalBody(&msg, &hdr, b, true); uerr != nil {
		err = werr.ErrIncompletePacket
		return
	}

	// the peer's own reply rides along as one more entry, with the
	// payload region kept serialized so it can travel further upstream;
	// the caller knows which node it was talking to
	retList = append(retList, &wire.RetEntry{
		Type: msg.Type,
		Data: msg.Data,
		Body: bodyRegion,
	})
	return
}
