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
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
)

const (
	compressionGzip     = "gzip"
	compressionIdentity = "identity"

	// Compressing tiny messages burns CPU without shrinking anything, so
	// bodies below this size are sent as-is unless configured otherwise.
	defaultCompressMinBytes = 1024
)

var (
	gzipWriterPool = sync.Pool{
		New: func() any {
			return gzip.NewWriter(io.Discard)
		},
	}
	gzipReaderPool = sync.Pool{
		New: func() any {
			return new(gzip.Reader)
		},
	}
)

// gzipCompress returns the gzipped form of data.
func gzipCompress(data []byte) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)
	gzipWriter := gzipWriterPool.Get().(*gzip.Writer)
	gzipWriter.Reset(buf)
	if _, err := gzipWriter.Write(data); err != nil {
		_ = gzipWriter.Close()
		gzipWriterPool.Put(gzipWriter)
		return nil, err
	}
	if err := gzipWriter.Close(); err != nil {
		gzipWriterPool.Put(gzipWriter)
		return nil, err
	}
	gzipWriter.Reset(io.Discard) // don't keep a reference to buf
	gzipWriterPool.Put(gzipWriter)
	compressed := make([]byte, buf.Len())
	copy(compressed, buf.Bytes())
	return compressed, nil
}

// gzipDecompress inflates data, stopping with an error if the inflated
// message would exceed readMaxBytes (zero means unlimited).
func gzipDecompress(data []byte, readMaxBytes int64) ([]byte, error) {
	gzipReader := gzipReaderPool.Get().(*gzip.Reader)
	if err := gzipReader.Reset(bytes.NewReader(data)); err != nil {
		gzipReaderPool.Put(gzipReader)
		return nil, Errorf(CodeInvalidArgument, "decompress gzip: %w", err)
	}
	reader := io.Reader(gzipReader)
	if readMaxBytes > 0 {
		reader = io.LimitReader(gzipReader, readMaxBytes+1)
	}
	decompressed, err := io.ReadAll(reader)
	_ = gzipReader.Close()
	gzipReaderPool.Put(gzipReader)
	if err != nil {
		return nil, Errorf(CodeInvalidArgument, "decompress gzip: %w", err)
	}
	if readMaxBytes > 0 && int64(len(decompressed)) > readMaxBytes {
		return nil, errMessageTooLarge(readMaxBytes)
	}
	return decompressed, nil
}

func errMessageTooLarge(limit int64) *Error {
	return Errorf(CodeInvalidArgument, "message exceeds %d byte read limit", limit)
}

// acceptsGzip reports whether an Accept-Encoding header allows gzip
// responses. A gzip entry with an explicit zero quality value opts out.
func acceptsGzip(acceptEncoding string) bool {
	for _, entry := range strings.Split(acceptEncoding, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(entry), ";")
		// Content-coding names are case-insensitive.
		if strings.ToLower(strings.TrimSpace(name)) != compressionGzip {
			continue
		}
		params = strings.ReplaceAll(params, " ", "")
		if value, ok := strings.CutPrefix(params, "q="); ok {
			if quality, err := strconv.ParseFloat(value, 64); err == nil && quality == 0 {
				return false
			}
		}
		return true
	}
	return false
}
