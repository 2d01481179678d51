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

package forward

import (
	"time"

	"warden/third_party/forked/golang/glog"

	"warden/pkg/cluster"
	"warden/pkg/conf"
	"warden/pkg/connmgr"
	"warden/pkg/engine"
	werr "warden/pkg/errors"
	"warden/pkg/logging/otel"
	"warden/pkg/util"
	"warden/pkg/wire"
)

func init() {
	engine.RegisterForwardDispatcher(Dispatch)
}

// Dispatch starts one child exchange per non-empty span bucket. Each
// child is an independent task delivering its results into the message's
// forward state; nothing here blocks on the children.
func Dispatch(msg *wire.Msg, hdr *wire.Header) error {
	state := msg.FwdState
	if state == nil {
		return werr.ErrCommSend
	}
	hosts := util.SplitHostList(hdr.Forward.HostList)
	if len(hosts) == 0 {
		state.Cnt = 0
		return nil
	}
	if len(hosts) != state.Cnt {
		glog.Errorf("forward count %d does not match hostlist size %d", state.Cnt, len(hosts))
		state.Cnt = len(hosts)
	}
	treeWidth := hdr.Forward.TreeWidth
	if treeWidth == 0 {
		treeWidth = conf.GetTransport().TreeWidth
	}

	span := Span(len(hosts), treeWidth)
	idx := 0
	for _, cnt := range span {
		if cnt == 0 {
			continue
		}
		bucket := hosts[idx : idx+cnt]
		idx += cnt
		go forwardToChild(state, hdr, treeWidth, bucket)
	}
	return nil
}

// failBucket accounts every host in the bucket as unreachable.
func failBucket(state *wire.ForwardState, bucket []string, errno uint32) {
	entries := make([]*wire.RetEntry, 0, len(bucket))
	for _, h := range bucket {
		entries = append(entries, wire.NewForwardFailedEntry(h, errno))
	}
	if otel.IsEnabled() {
		otel.RecordCount(otel.ForwardFail, []otel.Tags{{TagName: otel.Node, TagValue: bucket[0]}})
	}
	state.Deliver(entries)
}

func forwardToChild(state *wire.ForwardState, hdr *wire.Header, treeWidth uint16, bucket []string) {
	head := bucket[0]

	childHdr := *hdr
	childHdr.RetCnt = 0
	childHdr.RetList = nil
	childHdr.Forward.Set(util.JoinHostList(bucket[1:]), uint32(len(bucket)-1),
		uint32(state.Timeout/time.Millisecond), treeWidth)

	conn, err := connmgr.Connect(cluster.AddrForNode(head))
	if err != nil {
		glog.Errorf("forward connect to %s: %v", head, err)
		failBucket(state, bucket, werr.KErrCommConnection)
		return
	}
	defer conn.Close()

	b := wire.NewBuffer(make([]byte, 0, 128+len(state.Buf)))
	childHdr.Pack(b)
	b.PackRaw(state.Buf)
	if err = engine.WriteFrame(conn, b.Bytes(), state.Timeout); err != nil {
		glog.Errorf("forward send to %s: %v", head, err)
		failBucket(state, bucket, werr.KErrCommSend)
		return
	}

	// scale the wait to the subtree depth below this child
	steps := len(bucket)
	if treeWidth > 0 {
		steps /= int(treeWidth)
	}
	total := engine.MsgTimeout() * time.Duration(steps)
	steps++
	total += state.Timeout * time.Duration(steps)

	entries, rerr := engine.ReceiveMany(conn, steps, total)
	if rerr != nil {
		glog.Errorf("forward receive from %s: %v", head, rerr)
	}

	// the child's own reply has no node name yet; anything the child
	// could not account for is marked failed here
	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		if len(e.NodeName) == 0 {
			e.NodeName = head
		}
		known[e.NodeName] = true
	}
	for _, h := range bucket {
		if !known[h] {
			entries = append(entries, wire.NewForwardFailedEntry(h, werr.KErrCommReceive))
		}
	}
	if len(entries) > len(bucket) {
		entries = entries[:len(bucket)]
	}
	state.Deliver(entries)
}
