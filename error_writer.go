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
	"errors"
	"net/http"

	"google.golang.org/protobuf/encoding/protowire"
)

// wireError is the error envelope carried in the body of non-200 responses.
// In the binary protobuf codec it is hand-encoded with protowire (field 1
// is the message, field 2 the snake_case code); every other codec marshals
// the struct itself.
type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	wireErrorFieldMessage = 1
	wireErrorFieldCode    = 2
)

func encodeWireError(picoErr *Error) []byte {
	codeText, err := picoErr.code.MarshalText()
	if err != nil {
		codeText, _ = CodeUnknown.MarshalText()
	}
	var data []byte
	data = protowire.AppendTag(data, wireErrorFieldMessage, protowire.BytesType)
	data = protowire.AppendString(data, picoErr.Message())
	data = protowire.AppendTag(data, wireErrorFieldCode, protowire.BytesType)
	data = protowire.AppendBytes(data, codeText)
	return data
}

// decodeWireError parses the protowire form, skipping unrecognized fields
// so the envelope can grow without breaking old clients.
func decodeWireError(data []byte) (*Error, bool) {
	var message, codeText string
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, false
		}
		data = data[n:]
		switch {
		case num == wireErrorFieldMessage && typ == protowire.BytesType:
			value, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, false
			}
			message, data = value, data[n:]
		case num == wireErrorFieldCode && typ == protowire.BytesType:
			value, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, false
			}
			codeText, data = value, data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, false
			}
			data = data[n:]
		}
	}
	code := CodeUnknown
	if codeText != "" {
		if err := code.UnmarshalText([]byte(codeText)); err != nil {
			code = CodeUnknown
		}
	}
	return NewError(code, errors.New(message)), true
}

// writeError sends err as an error envelope using the request's negotiated
// codec. It must be called before any body bytes are written.
func writeError(w http.ResponseWriter, codec Codec, err error) {
	picoErr, _ := asError(wrapIfUncoded(err))
	var body []byte
	if codec.Name() == codecNameProto {
		body = encodeWireError(picoErr)
	} else {
		codeText, textErr := picoErr.code.MarshalText()
		if textErr != nil {
			codeText, _ = CodeUnknown.MarshalText()
		}
		marshaled, marshalErr := codec.Marshal(&wireError{
			Code:    string(codeText),
			Message: picoErr.Message(),
		})
		if marshalErr != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		body = marshaled
	}
	w.Header().Set(headerContentType, contentTypeFromCodecName(codec.Name()))
	w.WriteHeader(picoErr.code.http())
	_, _ = w.Write(body)
}

// readError reconstructs an *Error from a non-200 response body, falling
// back to the HTTP status when the body isn't a parseable envelope.
func readError(status int, codecs readOnlyCodecs, contentType string, body []byte) *Error {
	if len(body) == 0 {
		return Errorf(codeFromHTTP(status), "HTTP %d", status)
	}
	codecName := codecNameFromContentType(contentType)
	if codecName == codecNameProto {
		if picoErr, ok := decodeWireError(body); ok {
			return picoErr
		}
	} else if codec := codecs.Get(codecName); codec != nil {
		var wire wireError
		if err := codec.Unmarshal(body, &wire); err == nil && (wire.Code != "" || wire.Message != "") {
			code := CodeUnknown
			if wire.Code != "" {
				if err := code.UnmarshalText([]byte(wire.Code)); err != nil {
					code = CodeUnknown
				}
			}
			return NewError(code, errors.New(wire.Message))
		}
	}
	return Errorf(codeFromHTTP(status), "HTTP %d", status)
}
