package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type jsonCodec struct{}

// JSON returns the application/json codec.
func JSON() Codec { return jsonCodec{} }

func (jsonCodec) MediaType() string { return "application/json" }

func (jsonCodec) Decode(data []byte, v any) (bool, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if err := dec.Decode(v); err != nil {
		return false, err
	}
	if dec.More() {
		return false, fmt.Errorf("codec: trailing data after JSON value")
	}
	return true, nil
}

func (jsonCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
