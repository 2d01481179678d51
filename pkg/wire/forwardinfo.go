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

package wire

// kForwardInit marks a ForwardInfo that went through Init; a zero Cnt with
// the marker set means "explicitly no forwarding" rather than "never
// initialized".
const kForwardInit uint16 = 0xfffe

// ForwardInfo names the nodes a receiver still has to reach below this
// hop, how wide to fan out and how long each hop may take.
type ForwardInfo struct {
	Cnt       uint32
	HostList  string
	Timeout   uint32 // milliseconds for one hop
	TreeWidth uint16

	initMark uint16
}

// Init resets the descriptor to the explicit "no forwarding" state.
func (f *ForwardInfo) Init() {
	*f = ForwardInfo{initMark: kForwardInit}
}

func (f *ForwardInfo) IsInit() bool {
	return f.initMark == kForwardInit
}

// Set installs a hostlist to fan out to.
func (f *ForwardInfo) Set(hostlist string, cnt uint32, timeoutMs uint32, treeWidth uint16) {
	f.initMark = kForwardInit
	f.HostList = hostlist
	f.Cnt = cnt
	f.Timeout = timeoutMs
	f.TreeWidth = treeWidth
}

func (f *ForwardInfo) pack(b *Buffer) {
	b.Pack32(f.Cnt)
	if f.Cnt > 0 {
		b.PackStr(f.HostList)
		b.Pack32(f.Timeout)
		b.Pack16(f.TreeWidth)
	}
}

func (f *ForwardInfo) unpack(b *Buffer) error {
	f.Init()
	if err := b.Unpack32(&f.Cnt); err != nil {
		return err
	}
	if f.Cnt == 0 {
		return nil
	}
	if err := b.UnpackStr(&f.HostList); err != nil {
		return err
	}
	if err := b.Unpack32(&f.Timeout); err != nil {
		return err
	}
	return b.Unpack16(&f.TreeWidth)
}
