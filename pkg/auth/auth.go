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

// Package auth is the pluggable authentication adapter. The transport
// treats credentials as opaque values produced and consumed here.
package auth

import (
	"sync"

	"warden/pkg/wire"
)

// ICredential is opaque outside the plugin that created it.
type ICredential interface{}

type IAuthenticator interface {
	// Create mints a credential for this process under the given secret.
	Create(index uint32, secret string) (ICredential, error)
	Pack(cred ICredential, b *wire.Buffer, version uint16) error
	Unpack(b *wire.Buffer, version uint16) (ICredential, error)
	Verify(cred ICredential, secret string) error
	GetUID(cred ICredential) uint32
	IndexOf(cred ICredential) uint32
	Destroy(cred ICredential)
}

var (
	defaultLock   sync.RWMutex
	defaultAuthor IAuthenticator = &hmacAuthenticator{}
)

// Default returns the process authenticator.
func Default() IAuthenticator {
	defaultLock.RLock()
	defer defaultLock.RUnlock()
	return defaultAuthor
}

// SetDefault installs a different plugin; intended for daemon start-up
// and tests.
func SetDefault(a IAuthenticator) {
	defaultLock.Lock()
	defaultAuthor = a
	defaultLock.Unlock()
}
