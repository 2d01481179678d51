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
	"bytes"
	"testing"

	werr "warden/pkg/errors"
)

func newTestMsg() *Msg {
	msg := NewMsg(MsgTypePing, nil)
	msg.Flags = FlagKeepBuffer
	msg.RawBody = []byte{0xde, 0xad}
	msg.OrigAddr = Addr{IP: [4]byte{10, 0, 0, 7}, Port: 6818}
	return msg
}

var testCred = []byte("test-credential-blob")

// decodeFrame replays the receive side piece by piece so the test does
// not depend on the engine package.
func decodeFrame(t *testing.T, frame []byte) (hdr Header, cred []byte, msg Msg) {
	t.Helper()
	b := NewBuffer(frame)
	if err := hdr.Unpack(b); err != nil {
		t.Fatalf("unpack header: %v", err)
	}
	if err := hdr.CheckVersion(); err != nil {
		t.Fatalf("check version: %v", err)
	}
	var err error
	if cred, err = UnpackCredential(b); err != nil {
		t.Fatalf("unpack credential: %v", err)
	}
	msg.Forward.Init()
	if err = UnmarshalBody(&msg, &hdr, b, true); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	return
}

func TestFrameRoundTrip(t *testing.T) {
	msg := newTestMsg()
	frame, err := EncodeFrame(msg, testCred)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	hdr, cred, got := decodeFrame(t, frame)
	if hdr.Version != ProtocolVersion() {
		t.Errorf("version: got %#04x", hdr.Version)
	}
	if hdr.MsgType != MsgTypePing || hdr.Flags != FlagKeepBuffer {
		t.Errorf("header fields: type=%v flags=%#x", hdr.MsgType, hdr.Flags)
	}
	if !bytes.Equal(cred, testCred) {
		t.Errorf("credential: got %q", cred)
	}
	if !bytes.Equal(got.RawBody, msg.RawBody) {
		t.Errorf("body: got %x want %x", got.RawBody, msg.RawBody)
	}
	if hdr.OrigAddr != msg.OrigAddr {
		t.Errorf("orig addr: got %v want %v", hdr.OrigAddr, msg.OrigAddr)
	}
	if hdr.Forward.Cnt != 0 || hdr.RetCnt != 0 {
		t.Errorf("unexpected routing state: fwd=%d ret=%d", hdr.Forward.Cnt, hdr.RetCnt)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	msg := newTestMsg()
	a, err := EncodeFrame(msg, testCred)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := EncodeFrame(msg, testCred)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("two encodes of the same message differ")
	}
}

func TestForwardDescriptorRoundTrip(t *testing.T) {
	msg := newTestMsg()
	msg.Forward.Set("n1,n2,n3", 3, 5000, 16)

	frame, err := EncodeFrame(msg, testCred)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b := NewBuffer(frame)
	var hdr Header
	if err = hdr.Unpack(b); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	f := hdr.Forward
	if !f.IsInit() || f.Cnt != 3 || f.HostList != "n1,n2,n3" || f.Timeout != 5000 || f.TreeWidth != 16 {
		t.Errorf("forward: %+v", f)
	}
}

func TestForwardInitDistinguishesUnset(t *testing.T) {
	var f ForwardInfo
	if f.IsInit() {
		t.Errorf("zero value must not read as initialized")
	}
	f.Init()
	if !f.IsInit() || f.Cnt != 0 {
		t.Errorf("explicit no-forwarding state: %+v", f)
	}
}

func TestBodyLengthBoundsChecked(t *testing.T) {
	msg := newTestMsg()
	frame, err := EncodeFrame(msg, testCred)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// inflate body_length past the end of the buffer
	var hdr Header
	b := NewBuffer(frame)
	if err = hdr.Unpack(b); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	hdr.BodyLength = uint32(len(frame)) * 2
	credPos := b.Offset()
	b.SetOffset(0)
	hdr.Pack(b)
	b.SetOffset(credPos)

	if _, err = UnpackCredential(b); err != nil {
		t.Fatalf("unpack credential: %v", err)
	}
	var got Msg
	got.Forward.Init()
	if err = UnmarshalBody(&got, &hdr, b, true); err != werr.ErrIncompletePacket {
		t.Errorf("got %v, want ErrIncompletePacket", err)
	}
}

func TestVersionRejectedBeforePayload(t *testing.T) {
	msg := newTestMsg()
	frame, err := EncodeFrame(msg, testCred)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// bump version beyond the window
	EncByteOrder.PutUint16(frame[0:2], ProtocolVersion()+1)

	b := NewBuffer(frame)
	var hdr Header
	if err = hdr.Unpack(b); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if err = hdr.CheckVersion(); err != werr.ErrProtoVersion {
		t.Errorf("got %v, want ErrProtoVersion", err)
	}
}

func TestTruncatedHeader(t *testing.T) {
	msg := newTestMsg()
	frame, err := EncodeFrame(msg, testCred)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, n := range []int{0, 1, 5, 9} {
		var hdr Header
		if err = hdr.Unpack(NewBuffer(frame[:n])); err == nil {
			t.Errorf("truncated header of %d bytes accepted", n)
		}
	}
}

func TestRetListRoundTrip(t *testing.T) {
	msg := newTestMsg()
	msg.Type = MsgTypeReturnCode
	msg.Data = &ReturnCodeMsg{ReturnCode: RcSuccess}
	msg.RawBody = nil
	msg.RetList = []*RetEntry{
		{NodeName: "n1", Type: MsgTypeReturnCode, Body: packRC(t, 7)},
		NewForwardFailedEntry("n2", werr.KErrCommReceive),
	}

	frame, err := EncodeFrame(msg, testCred)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b := NewBuffer(frame)
	var hdr Header
	if err = hdr.Unpack(b); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if hdr.RetCnt != 2 || len(hdr.RetList) != 2 {
		t.Fatalf("ret cnt: %d", hdr.RetCnt)
	}
	e0, e1 := hdr.RetList[0], hdr.RetList[1]
	if e0.NodeName != "n1" || e0.Type != MsgTypeReturnCode {
		t.Errorf("entry 0: %+v", e0)
	}
	if err = UnmarshalRetBody(e0); err != nil {
		t.Fatalf("decode entry 0: %v", err)
	}
	if rc, ok := ReturnCodeOf(e0.Type, e0.Data); !ok || rc != 7 {
		t.Errorf("entry 0 rc: %d %v", rc, ok)
	}
	if e1.Type != MsgTypeForwardFailed || e1.Err != werr.KErrCommReceive || e1.NodeName != "n2" {
		t.Errorf("entry 1: %+v", e1)
	}
}

// packRC serializes a ReturnCode body as it would ride in a ret entry.
func packRC(t *testing.T, rc int32) []byte {
	t.Helper()
	b := NewBuffer(make([]byte, 0, 8))
	if err := (returnCodeCodec{}).Pack(&ReturnCodeMsg{ReturnCode: rc}, b); err != nil {
		t.Fatalf("pack rc: %v", err)
	}
	var p Payload
	p.SetWithClearValue(b.Bytes())
	out := NewBuffer(make([]byte, 0, 8))
	p.Encode(out)
	return out.Bytes()
}

func TestAddrArray(t *testing.T) {
	addrs := []Addr{
		{IP: [4]byte{127, 0, 0, 1}, Port: 6817},
		{IP: [4]byte{192, 168, 1, 2}, Port: 6818},
	}
	b := NewBuffer(make([]byte, 0, 32))
	PackAddrArray(addrs, b)

	b.SetOffset(0)
	got, err := UnpackAddrArray(b)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if len(got) != 2 || got[0] != addrs[0] || got[1] != addrs[1] {
		t.Errorf("addrs: %v", got)
	}

	// count above NoVal is hostile
	bad := NewBuffer(make([]byte, 0, 4))
	bad.Pack32(NoVal + 1)
	bad.SetOffset(0)
	if _, err = UnpackAddrArray(bad); err != werr.ErrIncompletePacket {
		t.Errorf("got %v, want ErrIncompletePacket", err)
	}
}

func TestPayloadCompression(t *testing.T) {
	big := bytes.Repeat([]byte("abcdefgh"), 512)
	var p Payload
	p.SetWithCompression(big)
	if p.GetCompressionType() != CompressionSnappy {
		t.Fatalf("expected snappy for compressible value")
	}
	clear, err := p.GetClearValue()
	if err != nil {
		t.Fatalf("get clear: %v", err)
	}
	if !bytes.Equal(clear, big) {
		t.Errorf("round trip mismatch")
	}
}

func TestReturnCodeMsgCodec(t *testing.T) {
	b := NewBuffer(make([]byte, 0, 8))
	if err := (returnCodeCodec{}).Pack(&ReturnCodeMsg{ReturnCode: RcInStandbyMode}, b); err != nil {
		t.Fatalf("pack: %v", err)
	}
	b.SetOffset(0)
	data, err := (returnCodeCodec{}).Unpack(b)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if rc := data.(*ReturnCodeMsg).ReturnCode; rc != RcInStandbyMode {
		t.Errorf("rc: %d", rc)
	}
}

func TestRerouteMsgCodec(t *testing.T) {
	in := &RerouteMsg{ClusterName: "east", Host: "ctl-east", Port: 6817, ProtoVersion: ProtocolVersion()}
	b := NewBuffer(make([]byte, 0, 32))
	if err := (rerouteCodec{}).Pack(in, b); err != nil {
		t.Fatalf("pack: %v", err)
	}
	b.SetOffset(0)
	data, err := (rerouteCodec{}).Unpack(b)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got := data.(*RerouteMsg); *got != *in {
		t.Errorf("got %+v", got)
	}
}

func BenchmarkEncodeFrame(b *testing.B) {
	msg := newTestMsg()
	for i := 0; i < b.N; i++ {
		if _, err := EncodeFrame(msg, testCred); err != nil {
			b.FailNow()
		}
	}
}

func BenchmarkDecodeFrame(b *testing.B) {
	msg := newTestMsg()
	frame, _ := EncodeFrame(msg, testCred)
	for i := 0; i < b.N; i++ {
		buf := NewBuffer(frame)
		var hdr Header
		if hdr.Unpack(buf) != nil {
			b.FailNow()
		}
		if _, err := UnpackCredential(buf); err != nil {
			b.FailNow()
		}
		var got Msg
		got.Forward.Init()
		if UnmarshalBody(&got, &hdr, buf, false) != nil {
			b.FailNow()
		}
	}
}
