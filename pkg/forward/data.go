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
	"warden/pkg/util"
	"warden/pkg/wire"
)

// SendRecvNodes sends req to every node in the hostlist through a tree
// rooted at the first host and returns the merged per-node results.
func SendRecvNodes(hostlist string, req *wire.Msg, timeout time.Duration) ([]*wire.RetEntry, error) {
	hosts := util.SplitHostList(hostlist)
	if len(hosts) == 0 {
		return nil, werr.ErrNoConnection
	}
	head := hosts[0]

	var timeoutMs uint32
	if timeout > 0 {
		timeoutMs = uint32(timeout / time.Millisecond)
	}
	req.Forward.Set(util.JoinHostList(hosts[1:]), uint32(len(hosts)-1),
		timeoutMs, conf.GetTransport().TreeWidth)

	// the tree root carries the whole fan-out, so give it a short
	// bounded retry rather than one shot
	conn, err := connmgr.ConnectRetry(cluster.AddrForNode(head), 2)
	if err != nil {
		return nil, err
	}
	entries, err := engine.SendAndRecvRetList(conn, req, timeout)
	for _, e := range entries {
		if len(e.NodeName) == 0 {
			e.NodeName = head
		}
	}
	return entries, err
}

// ForwardData pushes an opaque blob to every node in the nodelist and
// collapses the per-node return codes. On partial failure the nodelist
// is rewritten to just the failed nodes so the caller can retry.
func ForwardData(nodelist *string, address string, data []byte) (rc int32, err error) {
	glog.Debugf("forward data: nodelist=%s, address=%s, len=%d", *nodelist, address, len(data))

	req := wire.NewMsg(wire.MsgTypeForwardData, &wire.ForwardDataMsg{
		Address: address,
		Data:    data,
	})

	entries, err := SendRecvNodes(*nodelist, req, 0)
	if len(entries) == 0 {
		glog.Errorf("forward data: no list was returned")
		if err == nil {
			err = werr.ErrCommReceive
		}
		return wire.RcError, err
	}

	var failed []string
	for _, e := range entries {
		var entryRc int32
		if e.Type == wire.MsgTypeForwardFailed {
			entryRc = int32(e.Err)
			if entryRc == 0 {
				entryRc = wire.RcError
			}
		} else if v, ok := wire.ReturnCodeOf(e.Type, e.Data); ok {
			entryRc = v
		}
		if entryRc != wire.RcSuccess {
			rc = entryRc
			failed = append(failed, e.NodeName)
		}
	}
	if len(failed) > 0 {
		*nodelist = util.JoinHostList(util.SortHostList(failed))
	}
	return rc, nil
}
