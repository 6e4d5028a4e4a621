package codec

import "encoding/json"

// JSON is the standard-library JSON codec.
//
// It is the most portable option: any snapshot written with it can be decoded
// without third-party dependencies. Documents are JSON value trees, so there
// is no fidelity loss relative to the default codec.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }
