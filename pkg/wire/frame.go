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
	werr "warden/pkg/errors"
)

// EncodeFrame serializes a message and its packed credential blob into a
// contiguous frame (without the outer length prefix). The header is
// written first with a placeholder body length, then rewritten in place
// once the payload size is known.
func EncodeFrame(msg *Msg, cred []byte) ([]byte, error) {
	var hdr Header
	hdr.InitFromMsg(msg, msg.Flags)

	b := NewBuffer(make([]byte, 0, 512))
	hdr.Pack(b)
	b.PackMem(cred)

	bodyOff := b.Len()
	payload, err := MarshalBody(msg)
	if err != nil {
		return nil, err
	}
	payload.Encode(b)
	hdr.UpdateBodyLength(uint32(b.Len() - bodyOff))

	// repack the header over its original region; every field but the
	// body length is unchanged so the size cannot drift
	end := b.Offset()
	b.SetOffset(0)
	hdr.Pack(b)
	b.SetOffset(end)
	return b.Bytes(), nil
}

// UnpackCredential consumes the length prefixed credential blob.
func UnpackCredential(b *Buffer) ([]byte, error) {
	var blob []byte
	if err := b.UnpackMem(&blob); err != nil {
		return nil, werr.ErrProtoAuth
	}
	return blob, nil
}
