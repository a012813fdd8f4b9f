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

package picorpc

import (
	"bytes"
	"sync"
)

// Request and response bodies flow through pooled buffers. Oversized
// buffers aren't returned to the pool, so one pathological message doesn't
// pin memory forever.
const (
	initialBufferSize   = 512
	maxRecycleBufferCap = 1024 * 1024
)

var bufferPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, initialBufferSize))
	},
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxRecycleBufferCap {
		return
	}
	bufferPool.Put(buf)
}
