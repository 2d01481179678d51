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

package wire

import (
	"fmt"
	"strings"

	"warden/third_party/forked/golang/glog"
)

// LogHex dumps a frame at verbose level, 16 bytes per line.
func LogHex(tag string, data []byte) {
	if !glog.LOG_VERBOSE {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %d bytes", tag, len(data))
	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Fprintf(&sb, "\n%04x:", i)
		for _, c := range data[i:end] {
			fmt.Fprintf(&sb, " %02x", c)
		}
	}
	glog.Verboseln(sb.String())
}
