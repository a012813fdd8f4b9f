// Copyright 2026 The PicoRPC Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fieldcodec

import (
	"encoding/base64"
	"strings"
)

func init() {
	Register(base64Codec{})
}

// base64Codec encodes with standard padded base64. Go's base64 library
// does not support decoding while allowing either padded or unpadded input
// simultaneously, so Decode normalizes the padding before handing off.
type base64Codec struct{}

func (base64Codec) Name() string { return "base64" }

func (base64Codec) Encode(src []byte) string {
	return base64.StdEncoding.EncodeToString(src)
}

func (base64Codec) Decode(s string) ([]byte, error) {
	if n := len(s) % 4; n != 0 {
		s += strings.Repeat(string(base64.StdPadding), 4-n)
	}
	return base64.StdEncoding.DecodeString(s)
}
