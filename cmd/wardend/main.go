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

// wardend is the per-node agent: it receives framed messages, forwards
// them down the tree when asked to, runs the local handler and merges
// the replies going back upstream.
package main

import (
	"flag"
	"net"
	"os"

	"warden/third_party/forked/golang/glog"

	"warden/pkg/conf"
	"warden/pkg/connmgr"
	"warden/pkg/engine"
	_ "warden/pkg/forward"
	"warden/pkg/initmgr"
	"warden/pkg/logging/otel"
	otelCfg "warden/pkg/logging/otel/config"
	"warden/pkg/version"
	"warden/pkg/wire"
)

func main() {
	var configFile string
	var showVersion bool
	flag.StringVar(&configFile, "config", "", "specify config file")
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
	initmgr.RegisterWithFuncs(glog.Initialize, glog.Finalize, conf.Get().LogLevel, "wardend")
	initmgr.RegisterWithFuncs(otel.Initialize, otel.Finalize, &otelCfg.Config{Poolname: "wardend"})
	initmgr.Init()
	defer initmgr.Finalize()

	connmgr.SetControllerRole(false)
	ln, err := connmgr.Listen(conf.GetTransport().NodePort)
	if err != nil {
		glog.Exitf("cannot listen: %v", err)
	}
	glog.Infof("wardend listening on %s", ln.Addr().String())

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

func serveConn(conn net.Conn) {
	defer func() {
		conn.Close()
		if otel.IsEnabled() {
			otel.RecordCount(otel.Close, nil)
		}
	}()

	msg := wire.NewMsg(wire.MsgTypeInvalid, nil)
	origAddr := wire.AddrFromNetAddr(conn.RemoteAddr())
	if err := engine.ReceiveAndForward(conn, origAddr, msg, 0); err != nil {
		glog.Errorf("receive: %v", err)
		return
	}

	switch msg.Type {
	case wire.MsgTypePing:
		resp := make([]byte, len(msg.RawBody))
		copy(resp, msg.RawBody)
		pong := msg.SetupResponse(wire.MsgTypePong, nil)
		pong.RawBody = resp
		pong.FwdState = msg.FwdState
		msg.FwdState = nil
		if err := engine.Send(conn, pong); err != nil {
			glog.Errorf("pong: %v", err)
		}
	case wire.MsgTypeForwardData:
		if err := engine.SendResponse(msg, wire.MsgTypeReturnCode,
			&wire.ReturnCodeMsg{ReturnCode: wire.RcSuccess}); err != nil {
			glog.Errorf("forward data ack: %v", err)
		}
	case wire.MsgTypeCompositeBatch:
		// already acknowledged on the receive path
	default:
		glog.Warningf("unhandled msg_type=%s", msg.Type)
		if err := engine.SendRC(msg, wire.RcError); err != nil {
			glog.Errorf("rc: %v", err)
		}
	}
}
