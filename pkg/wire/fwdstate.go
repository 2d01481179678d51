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

import (
	"time"
)

// ForwardState tracks an in-flight fan-out below one hop. Child exchanges
// are independent tasks pushing their results into the channel; the
// parent drains it before replying upstream. Every host in the hop's
// hostlist is accounted for exactly once, by a reply or by a synthesized
// failure entry, so Wait can simply count.
type ForwardState struct {
	// Buf is the credential+payload region of the inbound frame; children
	// get a fresh header in front of the same bytes.
	Buf     []byte
	Timeout time.Duration
	Cnt     int

	ch chan []*RetEntry
}

func NewForwardState(buf []byte, cnt int, timeout time.Duration) *ForwardState {
	return &ForwardState{
		Buf:     buf,
		Timeout: timeout,
		Cnt:     cnt,
		ch:      make(chan []*RetEntry, cnt),
	}
}

// Deliver accounts a batch of per-node results.
func (s *ForwardState) Deliver(entries []*RetEntry) {
	if len(entries) > 0 {
		s.ch <- entries
	}
}

// Wait blocks until every host below this hop is accounted for and
// returns the merged result list.
func (s *ForwardState) Wait() (all []*RetEntry) {
	for len(all) < s.Cnt {
		batch := <-s.ch
		all = append(all, batch...)
	}
	return
}
