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
	"strconv"
	"strings"
	"sync"

	"warden/pkg/conf"
	"warden/pkg/wire"
)

// The AuthInfo option string has the form "key=value[,key=value]*".
// Recognized keys: ttl=<seconds>, socket=<path>. A value with no '=' at
// all is the old format naming the socket directly.

var (
	ttlOnce   sync.Once
	cachedTTL int

	globalKeyOnce   sync.Once
	cachedGlobalKey string
)

// TTL returns the credential time-to-live in seconds, 0 when not
// configured. Cached on first access.
func TTL() int {
	ttlOnce.Do(func() {
		cachedTTL = ParseTTL(conf.GetTransport().AuthInfo)
	})
	return cachedTTL
}

func ParseTTL(authInfo string) int {
	i := strings.Index(authInfo, "ttl=")
	if i < 0 {
		return 0
	}
	v := authInfo[i+4:]
	if j := strings.IndexByte(v, ','); j >= 0 {
		v = v[:j]
	}
	ttl, err := strconv.Atoi(v)
	if err != nil || ttl < 0 {
		return 0
	}
	return ttl
}

// OptsToSocket extracts the socket path from an AuthInfo string.
func OptsToSocket(opts string) string {
	if len(opts) == 0 {
		return ""
	}
	if i := strings.Index(opts, "socket="); i >= 0 {
		s := opts[i+7:]
		if j := strings.IndexByte(s, ','); j >= 0 {
			s = s[:j]
		}
		return s
	}
	if strings.IndexByte(opts, '=') >= 0 {
		// new format, socket not specified
		return ""
	}
	return opts
}

// GlobalKey returns the process wide secret, cached on first access.
func GlobalKey() string {
	globalKeyOnce.Do(func() {
		cachedGlobalKey = conf.GetTransport().GlobalAuthKey
	})
	return cachedGlobalKey
}

// SecretFor selects the signing secret for a message by its flags.
func SecretFor(flags wire.MsgFlag) string {
	if flags&wire.FlagGlobalAuthKey != 0 {
		return GlobalKey()
	}
	return conf.GetTransport().AuthInfo
}
