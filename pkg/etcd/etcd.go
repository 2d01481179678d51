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

// Package etcd publishes and resolves cluster records, so a controller
// can advertise its active endpoint and clients in other clusters can
// find it without static configuration.
package etcd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"warden/third_party/forked/golang/glog"

	"warden/pkg/cluster"
	"warden/pkg/util"
)

var (
	errNotInitialized = errors.New("etcd client not initialized")
)

type Config struct {
	clientv3.Config
	RequestTimeout     util.Duration
	MaxConnectAttempts int
	KeyPrefix          string
}

var defaultConfig = Config{
	Config: clientv3.Config{
		DialTimeout: 1 * time.Second,
	},
	RequestTimeout:     util.Duration{Duration: 2 * time.Second},
	MaxConnectAttempts: 3,
	KeyPrefix:          "warden.",
}

func DefaultConfig() Config {
	return defaultConfig
}

func NewConfig(addrs ...string) (cfg *Config) {
	cfg = &Config{}
	*cfg = defaultConfig
	cfg.Config.Endpoints = append(cfg.Config.Endpoints, addrs...)
	return cfg
}

// EtcdClient wraps one clientv3 connection.
type EtcdClient struct {
	config Config
	client *clientv3.Client
}

func NewEtcdClient(cfg *Config) (*EtcdClient, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, errNotInitialized
	}

	// shuffle to balance load across the etcd members
	m := time.Now().Second() % len(cfg.Endpoints)
	if m > 0 {
		endp := make([]string, len(cfg.Endpoints))
		copy(endp, cfg.Endpoints)
		copy(cfg.Endpoints[0:], endp[m:])
		copy(cfg.Endpoints[len(cfg.Endpoints)-m:], endp[0:m])
	}

	var client *clientv3.Client
	var err error
	for i := 0; i < cfg.MaxConnectAttempts; i++ {
		if client, err = clientv3.New(cfg.Config); err == nil {
			break
		}
		if client != nil {
			client.Close()
		}
		glog.Warningf("etcd connect attempt %d: %v", i, err)
		time.Sleep(time.Second)
	}
	if err != nil {
		return nil, err
	}
	return &EtcdClient{config: *cfg, client: client}, nil
}

func (c *EtcdClient) Close() {
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
}

func (c *EtcdClient) clusterKey(name string) string {
	return c.config.KeyPrefix + "cluster/" + name
}

// PublishClusterRec advertises a cluster's active controller endpoint.
func (c *EtcdClient) PublishClusterRec(rec *cluster.Rec) error {
	if c.client == nil {
		return errNotInitialized
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.config.RequestTimeout.Duration)
	defer cancel()
	val := fmt.Sprintf("host=%s,port=%d,version=%d", rec.Host, rec.Port, rec.ProtoVersion)
	_, err := c.client.Put(ctx, c.clusterKey(rec.Name), val)
	if err != nil {
		glog.Errorf("etcd publish cluster %s: %v", rec.Name, err)
	}
	return err
}

// GetClusterRec resolves a published cluster record by name.
func (c *EtcdClient) GetClusterRec(name string) (*cluster.Rec, error) {
	if c.client == nil {
		return nil, errNotInitialized
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.config.RequestTimeout.Duration)
	defer cancel()
	resp, err := c.client.Get(ctx, c.clusterKey(name))
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("cluster %s not published", name)
	}
	rec := &cluster.Rec{Name: name}
	var version int
	rec.Host, rec.Port, version = parseClusterVal(string(resp.Kvs[0].Value))
	rec.ProtoVersion = uint16(version)
	if len(rec.Host) == 0 {
		return nil, fmt.Errorf("cluster %s record malformed", name)
	}
	return rec, nil
}

func parseClusterVal(s string) (host string, port int, version int) {
	for _, kv := range strings.Split(s, ",") {
		i := strings.IndexByte(kv, '=')
		if i < 0 {
			continue
		}
		switch kv[:i] {
		case "host":
			host = kv[i+1:]
		case "port":
			port, _ = strconv.Atoi(kv[i+1:])
		case "version":
			version, _ = strconv.Atoi(kv[i+1:])
		}
	}
	return
}
