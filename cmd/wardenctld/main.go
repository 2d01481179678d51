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

// wardenctld is the controller daemon: it accepts client and node-agent
// RPCs on the controller port. Run with -standby it answers every
// request with the standby return code, which is how a backup behaves
// before taking over.
package main

import (
	"flag"
	"net"
	"os"
	"strings"

	"warden/third_party/forked/golang/glog"

	"warden/pkg/cluster"
	"warden/pkg/conf"
	"warden/pkg/connmgr"
	"warden/pkg/engine"
	"warden/pkg/etcd"
	"warden/pkg/initmgr"
	"warden/pkg/logging/otel"
	otelCfg "warden/pkg/logging/otel/config"
	"warden/pkg/version"
	"warden/pkg/wire"
)

var inStandby bool

func main() {
	var configFile, clusterName, etcdAddrs string
	var showVersion bool
	flag.StringVar(&configFile, "config", "", "specify config file")
	flag.StringVar(&clusterName, "cluster", "warden", "cluster name to publish")
	flag.StringVar(&etcdAddrs, "etcd", "", "comma separated etcd endpoints to publish the cluster record to")
	flag.BoolVar(&inStandby, "standby", false, "answer with the standby return code")
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
	initmgr.RegisterWithFuncs(glog.Initialize, glog.Finalize, conf.Get().LogLevel, "wardenctld")
	initmgr.RegisterWithFuncs(otel.Initialize, otel.Finalize, &otelCfg.Config{Poolname: "wardenctld"})
	initmgr.Init()
	defer initmgr.Finalize()

	connmgr.SetControllerRole(true)
	ln, err := connmgr.Listen(conf.GetTransport().ControllerPort)
	if err != nil {
		glog.Exitf("cannot listen: %v", err)
	}
	glog.Infof("wardenctld listening on %s", ln.Addr().String())

	if len(etcdAddrs) > 0 {
		publishClusterRec(clusterName, strings.Split(etcdAddrs, ","), ln.Addr())
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			glog.Errorf("accept: %v", err)
			os.Exit(1)
		}
		if otel.IsEnabled() {
			otel.RecordCount(otel.Accept, nil)
		}
		go serveConn(conn)
	}
}

func publishClusterRec(name string, addrs []string, bound net.Addr) {
	host, _ := os.Hostname()
	port := conf.GetTransport().ControllerPort
	if tcp, ok := bound.(*net.TCPAddr); ok {
		port = tcp.Port
	}
	cli, err := etcd.NewEtcdClient(etcd.NewConfig(addrs...))
	if err != nil {
		glog.Errorf("etcd: %v", err)
		return
	}
	defer cli.Close()
	rec := &cluster.Rec{
		Name:         name,
		Host:         host,
		Port:         port,
		ProtoVersion: wire.ProtocolVersion(),
	}
	if err = cli.PublishClusterRec(rec); err == nil {
		glog.Infof("published cluster record %s at %s:%d", name, host, port)
	}
}

func serveConn(conn net.Conn) {
	defer func() {
		conn.Close()
		if otel.IsEnabled() {
			otel.RecordCount(otel.Close, nil)
		}
	}()

	msg := wire.NewMsg(wire.MsgTypeInvalid, nil)
	if err := engine.Receive(conn, msg, 0); err != nil {
		glog.Errorf("receive: %v", err)
		return
	}

	if inStandby {
		if err := engine.SendRC(msg, wire.RcInStandbyMode); err != nil {
			glog.Errorf("standby rc: %v", err)
		}
		return
	}

	switch msg.Type {
	case wire.MsgTypePing:
		pong := msg.SetupResponse(wire.MsgTypePong, nil)
		pong.RawBody = msg.RawBody
		if err := engine.Send(conn, pong); err != nil {
			glog.Errorf("pong: %v", err)
		}
	default:
		if err := engine.SendRC(msg, wire.RcSuccess); err != nil {
			glog.Errorf("rc: %v", err)
		}
	}
}
