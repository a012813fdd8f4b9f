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

// Package picorpc is a small unary RPC runtime built on protocol buffers
// and net/http. Servers expose procedures as plain http.Handlers, clients
// call them with strongly-typed generics, and both sides speak either the
// binary protobuf codec or JSON selected by Content-Type.
//
// The JSON side uses the tagjson package, so protobuf bytes fields
// annotated with codec:"name" struct tags (injected by the
// picorpc-codectag tool) render through named fieldcodec codecs, for
// example as 0x-prefixed hex instead of base64.
//
// Most users interact with code generated by protoc-gen-picorpc rather
// than with this package's constructors directly: the plugin wires
// NewClient and NewUnaryHandler for every unary method of a service.
package picorpc
