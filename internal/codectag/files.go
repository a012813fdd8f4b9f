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

package codectag

import (
	"bytes"
	"os"
)

// A FileResult is the outcome of rewriting one file. Output holds the
// complete rewritten contents whether or not anything changed.
type FileResult struct {
	Path    string
	Output  []byte
	Changed bool
}

// RewriteFiles rewrites every named file in order and returns the results
// only when all of them succeed. A diagnostic in any file aborts the whole
// batch with nil results, so callers never write a partial run to disk.
func RewriteFiles(paths []string, options Options) ([]FileResult, error) {
	results := make([]FileResult, 0, len(paths))
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		output, err := Rewrite(path, src, options)
		if err != nil {
			return nil, err
		}
		results = append(results, FileResult{
			Path:    path,
			Output:  output,
			Changed: !bytes.Equal(src, output),
		})
	}
	return results, nil
}
