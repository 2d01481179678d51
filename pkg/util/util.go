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

/*
Package util implements some utility functions.
*/
package util

import (
	"bytes"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/spaolacci/murmur3"
)

// http://blog.sgmansfield.com/2015/12/goroutine-ids/
// Goroutine Id, used for debugging purpose
func GetGID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	b = b[:bytes.IndexByte(b, ' ')]
	n, _ := strconv.ParseUint(string(b), 10, 64)
	return n
}

func Murmur3Hash(data []byte) uint32 {
	return murmur3.Sum32(data)
}

// LocalSeed hashes hostname and pid into a stable per-process value, used
// to spread port selection across co-located processes.
func LocalSeed() uint32 {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	b := append([]byte(host), byte(os.Getpid()), byte(os.Getpid()>>8),
		byte(os.Getpid()>>16), byte(os.Getpid()>>24))
	return Murmur3Hash(b)
}

type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() (text []byte, err error) {
	text = []byte(d.Duration.String())
	return
}

func Now() uint32 {
	return uint32(time.Now().Unix())
}

func Now64() uint64 {
	return uint64(time.Now().Unix())
}

func HexToChar(v int) int {
	if v >= 0 && v < 10 {
		return '0' + v
	} else if v >= 10 && v < 16 {
		return ('a' - 10) + v
	}
	return -1
}

func CharToHex(c int) int {
	if c >= '0' && c <= '9' {
		return c - '0'
	}
	cl := c | 0x20
	if cl >= 'a' && cl <= 'f' {
		return cl + (10 - 'a')
	}
	return -1
}
