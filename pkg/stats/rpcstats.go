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

// Package stats keeps per message type latency histograms for the RPC
// paths. Values are microseconds.
package stats

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"

	"warden/pkg/wire"
)

const (
	kMinValue = 1
	kMaxValue = int64(10 * time.Minute / time.Microsecond)
	kSigFigs  = 3
)

type RPCStats struct {
	mtx   sync.Mutex
	hists map[wire.MsgType]*hdrhistogram.Histogram
}

func NewRPCStats() *RPCStats {
	return &RPCStats{hists: make(map[wire.MsgType]*hdrhistogram.Histogram)}
}

func (s *RPCStats) Record(t wire.MsgType, elapsed time.Duration) {
	v := int64(elapsed / time.Microsecond)
	if v < kMinValue {
		v = kMinValue
	} else if v > kMaxValue {
		v = kMaxValue
	}
	s.mtx.Lock()
	h, ok := s.hists[t]
	if !ok {
		h = hdrhistogram.New(kMinValue, kMaxValue, kSigFigs)
		s.hists[t] = h
	}
	h.RecordValue(v)
	s.mtx.Unlock()
}

func (s *RPCStats) Count(t wire.MsgType) int64 {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if h, ok := s.hists[t]; ok {
		return h.TotalCount()
	}
	return 0
}

func (s *RPCStats) Percentile(t wire.MsgType, q float64) int64 {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if h, ok := s.hists[t]; ok {
		return h.ValueAtQuantile(q)
	}
	return 0
}

// WriteTo dumps one line per message type, sorted, for the state log.
func (s *RPCStats) WriteTo(w io.Writer) {
	s.mtx.Lock()
	types := make([]wire.MsgType, 0, len(s.hists))
	for t := range s.hists {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		h := s.hists[t]
		fmt.Fprintf(w, "%s cnt=%d p50=%dus p99=%dus max=%dus\n",
			t, h.TotalCount(), h.ValueAtQuantile(50), h.ValueAtQuantile(99), h.Max())
	}
	s.mtx.Unlock()
}

var (
	defaultOnce  sync.Once
	defaultStats *RPCStats
)

// Default is the process wide collector the engine records into.
func Default() *RPCStats {
	defaultOnce.Do(func() {
		defaultStats = NewRPCStats()
	})
	return defaultStats
}
