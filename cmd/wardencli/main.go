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

// wardencli pings the active controller, or fans a blob out to a set of
// nodes, using the same transport the daemons use.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"warden/third_party/forked/golang/glog"

	"warden/pkg/cluster"
	"warden/pkg/conf"
	"warden/pkg/ctlclient"
	"warden/pkg/etcd"
	"warden/pkg/forward"
	"warden/pkg/version"
	"warden/pkg/wire"
)

func main() {
	var configFile, nodes, remoteCluster, etcdAddrs string
	var showVersion bool
	flag.StringVar(&configFile, "config", "", "specify config file")
	flag.StringVar(&nodes, "nodes", "", "comma separated node list to fan out to")
	flag.StringVar(&remoteCluster, "cluster", "", "send to a published remote cluster")
	flag.StringVar(&etcdAddrs, "etcd", "", "etcd endpoints for resolving -cluster")
	flag.BoolVar(&showVersion, "version", false, "display version info")
	flag.Parse()

	if showVersion {
		version.PrintVersionInfo()
		return
	}
	if len(configFile) == 0 {
		glog.Exitf("missing config file")
	}
	if err := conf.Initialize(configFile); err != nil {
		glog.Exitf("config: %v", err)
	}
	glog.InitLogging(conf.Get().LogLevel, "wardencli")
	defer glog.Finalize()

	if len(nodes) > 0 {
		fanOut(nodes)
		return
	}
	ping(resolveCluster(remoteCluster, etcdAddrs))
}

func resolveCluster(name, etcdAddrs string) *cluster.Rec {
	if len(name) == 0 {
		return nil
	}
	if len(etcdAddrs) == 0 {
		glog.Exitf("-cluster needs -etcd endpoints")
	}
	cli, err := etcd.NewEtcdClient(etcd.NewConfig(strings.Split(etcdAddrs, ",")...))
	if err != nil {
		glog.Exitf("etcd: %v", err)
	}
	defer cli.Close()
	rec, err := cli.GetClusterRec(name)
	if err != nil {
		glog.Exitf("resolve cluster %s: %v", name, err)
	}
	return rec
}

func ping(rec *cluster.Rec) {
	req := wire.NewMsg(wire.MsgTypePing, nil)
	req.RawBody = []byte("ping")

	var resp wire.Msg
	if err := ctlclient.SendRecvController(req, &resp, rec); err != nil {
		glog.Errorf("ping: %v", err)
		os.Exit(1)
	}
	fmt.Printf("controller answered msg_type=%s body=%q\n", resp.Type, resp.RawBody)
}

func fanOut(nodes string) {
	rc, err := forward.ForwardData(&nodes, "wardencli", []byte("hello"))
	if err != nil {
		glog.Errorf("forward data: %v", err)
		os.Exit(1)
	}
	if rc != wire.RcSuccess {
		fmt.Printf("failed nodes: %s (rc=%d)\n", nodes, rc)
		os.Exit(1)
	}
	fmt.Println("all nodes acknowledged")
}
