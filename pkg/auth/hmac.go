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

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"os"
	"time"

	uuid "github.com/satori/go.uuid"

	werr "warden/pkg/errors"
	"warden/pkg/wire"
)

// hmacAuthenticator is the default plugin: an HMAC-SHA256 over the
// credential fields, keyed by the configured secret, with a uuid nonce so
// two credentials for the same uid never share bytes.
type hmacAuthenticator struct{}

type hmacCredential struct {
	index   uint32
	uid     uint32
	created uint64
	nonce   [16]byte
	mac     []byte
}

func (c *hmacCredential) sign(secret string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	var b [16]byte
	wire.EncByteOrder.PutUint32(b[0:4], c.index)
	wire.EncByteOrder.PutUint32(b[4:8], c.uid)
	wire.EncByteOrder.PutUint64(b[8:16], c.created)
	h.Write(b[:])
	h.Write(c.nonce[:])
	return h.Sum(nil)
}

func (a *hmacAuthenticator) Create(index uint32, secret string) (ICredential, error) {
	cred := &hmacCredential{
		index:   index,
		uid:     uint32(os.Getuid()),
		created: uint64(time.Now().Unix()),
	}
	copy(cred.nonce[:], uuid.NewV4().Bytes())
	cred.mac = cred.sign(secret)
	return cred, nil
}

func (a *hmacAuthenticator) Pack(cred ICredential, b *wire.Buffer, version uint16) error {
	c, ok := cred.(*hmacCredential)
	if !ok {
		return werr.ErrProtoAuth
	}
	b.Pack32(c.index)
	b.Pack32(c.uid)
	b.Pack64(c.created)
	b.PackRaw(c.nonce[:])
	b.PackMem(c.mac)
	return nil
}

func (a *hmacAuthenticator) Unpack(b *wire.Buffer, version uint16) (ICredential, error) {
	c := &hmacCredential{}
	if err := b.Unpack32(&c.index); err != nil {
		return nil, werr.ErrProtoAuth
	}
	if err := b.Unpack32(&c.uid); err != nil {
		return nil, werr.ErrProtoAuth
	}
	if err := b.Unpack64(&c.created); err != nil {
		return nil, werr.ErrProtoAuth
	}
	raw, err := b.UnpackRaw(16)
	if err != nil {
		return nil, werr.ErrProtoAuth
	}
	copy(c.nonce[:], raw)
	var mac []byte
	if err := b.UnpackMem(&mac); err != nil {
		return nil, werr.ErrProtoAuth
	}
	c.mac = make([]byte, len(mac))
	copy(c.mac, mac)
	return c, nil
}

func (a *hmacAuthenticator) Verify(cred ICredential, secret string) error {
	c, ok := cred.(*hmacCredential)
	if !ok {
		return werr.ErrProtoAuth
	}
	if !hmac.Equal(c.mac, c.sign(secret)) {
		return werr.ErrProtoAuth
	}
	if ttl := TTL(); ttl > 0 {
		age := time.Now().Unix() - int64(c.created)
		if age > int64(ttl) {
			return werr.ErrProtoAuth
		}
	}
	return nil
}

func (a *hmacAuthenticator) GetUID(cred ICredential) uint32 {
	if c, ok := cred.(*hmacCredential); ok {
		return c.uid
	}
	return ^uint32(0)
}

func (a *hmacAuthenticator) IndexOf(cred ICredential) uint32 {
	if c, ok := cred.(*hmacCredential); ok {
		return c.index
	}
	return 0
}

func (a *hmacAuthenticator) Destroy(cred ICredential) {
	if c, ok := cred.(*hmacCredential); ok {
		c.mac = nil
	}
}
