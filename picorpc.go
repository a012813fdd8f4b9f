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
	"fmt"
	"net/http"
	"strings"
)

// Version is the semantic version of the picorpc module.
const Version = "0.1.0"

// IsAtLeastVersion0_1_0 is used in compile-time handshakes with picorpc's
// generated code.
const IsAtLeastVersion0_1_0 = true

const (
	headerContentType     = "Content-Type"
	headerContentEncoding = "Content-Encoding"
	headerAcceptEncoding  = "Accept-Encoding"
	headerUserAgent       = "User-Agent"
	headerAllow           = "Allow"
	headerAcceptPost      = "Accept-Post"
)

// HTTPClient is the transport-level interface picorpc expects HTTP clients
// to implement. The standard library's *http.Client satisfies it.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// validateProcedure checks the "/package.Service/Method" shape shared by
// clients and handlers. Prefixed paths are allowed, so handlers can be
// mounted below a routing prefix. Generated code always passes well-formed
// procedures, so failures here almost always mean a hand-written caller.
func validateProcedure(procedure string) error {
	if !strings.HasPrefix(procedure, "/") {
		return fmt.Errorf(`procedure %q must start with "/"`, procedure)
	}
	if strings.Count(procedure, "/") < 2 || strings.HasSuffix(procedure, "/") {
		return fmt.Errorf(`procedure %q must end with "/package.Service/Method"`, procedure)
	}
	return nil
}
