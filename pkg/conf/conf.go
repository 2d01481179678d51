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

// Package conf holds the process wide transport configuration snapshot.
// Readers take a copy via Get; writers replace the whole snapshot via Set.
package conf

import (
	"fmt"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"warden/pkg/util"
)

type Transport struct {
	// ControllerHosts lists the controller replicas; index 0 is the
	// primary, the rest are backups in failover order.
	ControllerHosts []string
	// ControllerVIP, when set, is tried instead of ControllerHosts.
	ControllerVIP     string
	ControllerPort    int
	PortCount         int
	NodePort          int
	MsgTimeout        util.Duration
	ControllerTimeout util.Duration
	TreeWidth         uint16
	AuthInfo          string
	GlobalAuthKey     string
	CommParameters    string
	// ConnectRetryMax bounds the controller connect retry loop in seconds;
	// 0 means MsgTimeout seconds.
	ConnectRetryMax int
}

type Config struct {
	Transport Transport
	LogLevel  string
}

var defaultTransport = Transport{
	ControllerPort:    6817,
	PortCount:         1,
	NodePort:          6818,
	MsgTimeout:        util.Duration{Duration: 10 * time.Second},
	ControllerTimeout: util.Duration{Duration: 120 * time.Second},
	TreeWidth:         50,
}

var (
	confLock sync.RWMutex
	current  = Config{Transport: defaultTransport, LogLevel: "info"}
)

func (t *Transport) SetDefaultIfNotDefined() {
	if t.ControllerPort == 0 {
		t.ControllerPort = defaultTransport.ControllerPort
	}
	if t.PortCount <= 0 {
		t.PortCount = defaultTransport.PortCount
	}
	if t.NodePort == 0 {
		t.NodePort = defaultTransport.NodePort
	}
	if t.MsgTimeout.Duration == 0 {
		t.MsgTimeout = defaultTransport.MsgTimeout
	}
	if t.ControllerTimeout.Duration == 0 {
		t.ControllerTimeout = defaultTransport.ControllerTimeout
	}
	if t.TreeWidth == 0 {
		t.TreeWidth = defaultTransport.TreeWidth
	}
}

func (t *Transport) Validate() error {
	if len(t.ControllerHosts) == 0 && len(t.ControllerVIP) == 0 {
		return fmt.Errorf("config: no controller host specified")
	}
	if t.PortCount < 1 {
		return fmt.Errorf("config: PortCount must be >= 1")
	}
	return nil
}

// Get returns a copy of the current snapshot.
func Get() Config {
	confLock.RLock()
	defer confLock.RUnlock()
	return current
}

// GetTransport is the common read path.
func GetTransport() Transport {
	confLock.RLock()
	defer confLock.RUnlock()
	return current.Transport
}

// Set atomically replaces the snapshot after applying defaults.
func Set(c Config) error {
	c.Transport.SetDefaultIfNotDefined()
	if err := c.Transport.Validate(); err != nil {
		return err
	}
	confLock.Lock()
	current = c
	confLock.Unlock()
	return nil
}

// SetTransport replaces only the transport section.
func SetTransport(t Transport) error {
	c := Get()
	c.Transport = t
	return Set(c)
}

func ReadFromTomlFile(file string) (c Config, err error) {
	c = Config{Transport: defaultTransport, LogLevel: "info"}
	if _, err = toml.DecodeFile(file, &c); err != nil {
		return
	}
	c.Transport.SetDefaultIfNotDefined()
	err = c.Transport.Validate()
	return
}

// Initialize loads the TOML file given as the first argument and installs
// it as the process snapshot. The three commands call it directly; it is
// not registered with initmgr.
func Initialize(args ...interface{}) (err error) {
	if len(args) < 1 {
		return fmt.Errorf("config file name expected")
	}
	file, ok := args[0].(string)
	if !ok {
		return fmt.Errorf("a string config file name expected")
	}
	var c Config
	if c, err = ReadFromTomlFile(file); err != nil {
		return
	}
	return Set(c)
}

func Finalize() {
}
