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

// Built-in payload schemas the transport itself needs. Everything else is
// registered by the daemons.

type ReturnCodeMsg struct {
	ReturnCode int32
}

type returnCodeCodec struct{}

func (returnCodeCodec) Pack(data interface{}, b *Buffer) error {
	m, ok := data.(*ReturnCodeMsg)
	if !ok {
		return ErrBadPayloadType
	}
	b.Pack32(uint32(m.ReturnCode))
	return nil
}

func (returnCodeCodec) Unpack(b *Buffer) (interface{}, error) {
	var v uint32
	if err := b.Unpack32(&v); err != nil {
		return nil, err
	}
	return &ReturnCodeMsg{ReturnCode: int32(v)}, nil
}

// RerouteMsg tells a client to reissue its request to another cluster.
type RerouteMsg struct {
	ClusterName  string
	Host         string
	Port         uint16
	ProtoVersion uint16
}

type rerouteCodec struct{}

func (rerouteCodec) Pack(data interface{}, b *Buffer) error {
	m, ok := data.(*RerouteMsg)
	if !ok {
		return ErrBadPayloadType
	}
	b.PackStr(m.ClusterName)
	b.PackStr(m.Host)
	b.Pack16(m.Port)
	b.Pack16(m.ProtoVersion)
	return nil
}

func (rerouteCodec) Unpack(b *Buffer) (interface{}, error) {
	m := &RerouteMsg{}
	if err := b.UnpackStr(&m.ClusterName); err != nil {
		return nil, err
	}
	if err := b.UnpackStr(&m.Host); err != nil {
		return nil, err
	}
	if err := b.Unpack16(&m.Port); err != nil {
		return nil, err
	}
	if err := b.Unpack16(&m.ProtoVersion); err != nil {
		return nil, err
	}
	return m, nil
}

// ForwardDataMsg pushes an opaque blob to every node in a tree fan-out.
type ForwardDataMsg struct {
	Address string
	Data    []byte
}

type forwardDataCodec struct{}

func (forwardDataCodec) Pack(data interface{}, b *Buffer) error {
	m, ok := data.(*ForwardDataMsg)
	if !ok {
		return ErrBadPayloadType
	}
	b.PackStr(m.Address)
	b.PackMem(m.Data)
	return nil
}

func (forwardDataCodec) Unpack(b *Buffer) (interface{}, error) {
	m := &ForwardDataMsg{}
	if err := b.UnpackStr(&m.Address); err != nil {
		return nil, err
	}
	var data []byte
	if err := b.UnpackMem(&data); err != nil {
		return nil, err
	}
	m.Data = make([]byte, len(data))
	copy(m.Data, data)
	return m, nil
}

func init() {
	RegisterCodec(MsgTypeReturnCode, returnCodeCodec{})
	RegisterCodec(MsgTypeReroute, rerouteCodec{})
	RegisterCodec(MsgTypeForwardData, forwardDataCodec{})
}
