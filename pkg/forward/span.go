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

// Package forward fans a message out to a named set of nodes along a
// tree and merges the per-node results.
package forward

import (
	"warden/pkg/conf"
)

// Span distributes total nodes over at most treeWidth buckets. Each
// bucket is one child subtree: its first host is dialed directly and the
// rest ride in that child's forwarding descriptor. Buckets always sum to
// total; zero buckets are unused branches.
func Span(total int, treeWidth uint16) []int {
	if treeWidth == 0 {
		treeWidth = conf.GetTransport().TreeWidth
	}
	if treeWidth == 0 {
		treeWidth = 1
	}
	w := int(treeWidth)
	span := make([]int, w)
	left := total

	for left > 0 {
		for i := 0; i < w; i++ {
			if w-i >= left {
				span[i] += left
				left = 0
				break
			} else if left <= w {
				span[i] += left
				left = 0
				break
			}
			span[i] += w
			left -= w
		}
	}
	return span
}
