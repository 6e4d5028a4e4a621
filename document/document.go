// Package document defines the payload type stored alongside vectors and the
// dot-path key extraction used to pick the text that gets embedded.
package document

import (
	"bytes"
	"fmt"

	gojson "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Document is an arbitrary JSON value tree: field names mapped to strings,
// numbers, booleans, nested objects, or arrays. A store owns its documents
// once they are inserted.
type Document map[string]any

// KeyError reports a dot-path that does not resolve within a document.
type KeyError struct {
	Path string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("key %q not found in document", e.Path)
}

// Equal reports field-for-field equality with other.
//
// Both documents are compared through their canonical JSON encoding (map keys
// sorted), so 1 and 1.0 compare equal and field order never matters. Documents
// that fail to encode compare unequal.
func (d Document) Equal(other Document) bool {
	if d == nil && other == nil {
		return true
	}
	a, err := gojson.Marshal(d)
	if err != nil {
		return false
	}
	b, err := gojson.Marshal(other)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Clone returns a deep copy of d via its JSON encoding.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	data, err := gojson.Marshal(d)
	if err != nil {
		return nil
	}
	var out Document
	if err := gojson.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// Key resolves a dot-separated path (e.g. "product.name") within the document
// and returns the value as a string. Non-string leaf values are stringified
// using their JSON representation; nested objects and arrays resolve to their
// raw JSON. A path that is absent at any segment returns a *KeyError.
func (d Document) Key(path string) (string, error) {
	if path == "" {
		return "", &KeyError{Path: path}
	}
	data, err := gojson.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode document for key lookup: %w", err)
	}
	res := gjson.GetBytes(data, path)
	if !res.Exists() {
		return "", &KeyError{Path: path}
	}
	if res.Type == gjson.String {
		return res.Str, nil
	}
	return res.Raw, nil
}

// KeyValues resolves path in every document and returns the extracted strings
// in input order. It fails on the first document missing the key, identifying
// its position.
func KeyValues(docs []Document, path string) ([]string, error) {
	out := make([]string, len(docs))
	for i, d := range docs {
		s, err := d.Key(path)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}
