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
Package wire implements the warden binary message envelope.

A frame on the wire looks like

	+-----------------+--------+-----------------+---------------------+
	| 4-byte length   | header | auth credential | payload             |
	| (big endian)    |        | (u32 len + blob)| (body_length bytes) |
	+-----------------+--------+-----------------+---------------------+

The length prefix covers header, credential and payload. All sizing
fields are big endian.

Header layout

	version      u16   compatibility checked against [kMinProtocolVersion, kProtocolVersion]
	flags        u16   0x1 FlagGlobalAuthKey, 0x2 FlagKeepBuffer
	msg_type     u16   selects the payload codec
	body_length  u32   bytes in the payload region
	forward.cnt  u32   number of nodes still to be reached below this hop
	  hostlist   str   present iff cnt > 0
	  timeout    u32   milliseconds, present iff cnt > 0
	  tree_width u16   present iff cnt > 0
	ret_cnt      u16   0 on requests
	ret_list     var   ret_cnt serialized return entries
	orig_addr    8B    IPv4 sockaddr (family, port, address), zero when local

A string is a u32 byte count followed by the bytes; address arrays are a
u32 count (rejected when above NoVal) followed by fixed 8 byte sockaddr
records. A return entry is msg_type u16, error u32, node name string and
a u32 length prefixed body blob.

The payload region is opaque to this package except for the codecs
registered per message type; unregistered types round trip as raw bytes.
*/
package wire
