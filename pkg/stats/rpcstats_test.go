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

package stats

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"warden/pkg/wire"
)

func TestRecordAndQuery(t *testing.T) {
	s := NewRPCStats()
	for i := 1; i <= 100; i++ {
		s.Record(wire.MsgTypePing, time.Duration(i)*time.Millisecond)
	}
	if got := s.Count(wire.MsgTypePing); got != 100 {
		t.Errorf("count: %d", got)
	}
	p50 := s.Percentile(wire.MsgTypePing, 50)
	if p50 < 40000 || p50 > 60000 {
		t.Errorf("p50: %dus", p50)
	}
	if s.Count(wire.MsgTypePong) != 0 {
		t.Errorf("pong count not zero")
	}
}

func TestRecordClampsOutliers(t *testing.T) {
	s := NewRPCStats()
	s.Record(wire.MsgTypePing, 0)
	s.Record(wire.MsgTypePing, 24*time.Hour)
	if got := s.Count(wire.MsgTypePing); got != 2 {
		t.Errorf("count: %d", got)
	}
}

func TestWriteTo(t *testing.T) {
	s := NewRPCStats()
	s.Record(wire.MsgTypePing, 2*time.Millisecond)
	s.Record(wire.MsgTypePong, 3*time.Millisecond)
	var buf bytes.Buffer
	s.WriteTo(&buf)
	out := buf.String()
	if !strings.Contains(out, "Ping") || !strings.Contains(out, "Pong") {
		t.Errorf("dump: %q", out)
	}
}

func TestConcurrentRecord(t *testing.T) {
	s := NewRPCStats()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				s.Record(wire.MsgTypePing, time.Millisecond)
			}
		}()
	}
	wg.Wait()
	if got := s.Count(wire.MsgTypePing); got != 8000 {
		t.Errorf("count: %d", got)
	}
}
