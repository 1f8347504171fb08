// Package rpcjson lets connect handlers and clients exchange plain Go
// structs encoded as JSON.
package rpcjson

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// Codec replaces connect's protobuf JSON codec under the same name, so the
// wire content type stays application/json.
type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("rpcjson marshal %T: %w", msg, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("rpcjson unmarshal %T: %w", msg, err)
	}
	return nil
}

// WithCodec is the option both handlers and clients need.
func WithCodec() connect.Option {
	return connect.WithCodec(Codec{})
}
