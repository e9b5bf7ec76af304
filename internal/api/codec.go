// Package api defines the tripmate RPC surface: wire messages, procedure names,
// and Connect handler and client constructors for each service.
//
// Messages are plain Go structs carried with a JSON codec registered under the
// "json" name, so browsers can call every procedure with the Connect protocol
// using Content-Type: application/json.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
)

// Codec marshals messages as JSON. Unknown fields in requests are rejected.
type Codec struct{}

var _ connect.Codec = Codec{}

// Name implements connect.Codec.
func (Codec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// Unmarshal implements connect.Codec. An empty body decodes to the zero message.
func (Codec) Unmarshal(data []byte, msg any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(msg); err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}
	return nil
}

// handlerOptions puts the JSON codec in front of caller-supplied options.
func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
}

// routeByPath dispatches to the handler registered for the exact request path.
func routeByPath(routes map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}
