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

package etcd

import (
	"testing"
)

func TestParseClusterVal(t *testing.T) {
	host, port, version := parseClusterVal("host=ctl-east,port=6817,version=544")
	if host != "ctl-east" || port != 6817 || version != 544 {
		t.Errorf("got %q %d %d", host, port, version)
	}

	host, port, version = parseClusterVal("garbage")
	if host != "" || port != 0 || version != 0 {
		t.Errorf("garbage parsed: %q %d %d", host, port, version)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("e1:2379", "e2:2379")
	if len(cfg.Endpoints) != 2 {
		t.Errorf("endpoints: %v", cfg.Endpoints)
	}
	if cfg.KeyPrefix != "warden." {
		t.Errorf("prefix: %q", cfg.KeyPrefix)
	}
}

func TestNewEtcdClientRequiresEndpoints(t *testing.T) {
	cfg := Config{}
	if _, err := NewEtcdClient(&cfg); err == nil {
		t.Errorf("empty endpoint list accepted")
	}
}
