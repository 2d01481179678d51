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
	"fmt"
	"net"

	werr "warden/pkg/errors"
)

const kAddrFamilyInet uint16 = 2

// Addr is an IPv4 endpoint in the fixed 8 byte wire form.
type Addr struct {
	IP   [4]byte
	Port uint16
}

func (a Addr) IsSet() bool {
	return a.IP != [4]byte{} || a.Port != 0
}

func (a Addr) String() string {
	return fmt.Sprintf("%d.%d.%d.%d:%d", a.IP[0], a.IP[1], a.IP[2], a.IP[3], a.Port)
}

func AddrFromNetAddr(na net.Addr) (a Addr) {
	tcp, ok := na.(*net.TCPAddr)
	if !ok {
		return
	}
	if ip4 := tcp.IP.To4(); ip4 != nil {
		copy(a.IP[:], ip4)
	}
	a.Port = uint16(tcp.Port)
	return
}

func (a Addr) TCPAddr() *net.TCPAddr {
	return &net.TCPAddr{IP: net.IP(a.IP[:]), Port: int(a.Port)}
}

// Pack writes the 8 byte sockaddr record; family is zero for an unset
// address so receivers can distinguish "local" from a real origin.
func (a Addr) Pack(b *Buffer) {
	if a.IsSet() {
		b.Pack16(kAddrFamilyInet)
	} else {
		b.Pack16(0)
	}
	b.Pack16(a.Port)
	b.PackRaw(a.IP[:])
}

func (a *Addr) Unpack(b *Buffer) error {
	var family uint16
	if err := b.Unpack16(&family); err != nil {
		return err
	}
	if err := b.Unpack16(&a.Port); err != nil {
		return err
	}
	raw, err := b.UnpackRaw(4)
	if err != nil {
		return err
	}
	copy(a.IP[:], raw)
	if family == 0 {
		*a = Addr{}
	}
	return nil
}

// PackAddrArray writes a u32 count followed by fixed size records.
func PackAddrArray(addrs []Addr, b *Buffer) {
	b.Pack32(uint32(len(addrs)))
	for _, a := range addrs {
		a.Pack(b)
	}
}

func UnpackAddrArray(b *Buffer) (addrs []Addr, err error) {
	var cnt uint32
	if err = b.Unpack32(&cnt); err != nil {
		return
	}
	if cnt > NoVal {
		err = werr.ErrIncompletePacket
		return
	}
	addrs = make([]Addr, 0, cnt)
	for i := uint32(0); i < cnt; i++ {
		var a Addr
		if err = a.Unpack(b); err != nil {
			addrs = nil
			return
		}
		addrs = append(addrs, a)
	}
	return
}
