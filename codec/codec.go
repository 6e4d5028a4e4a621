// Package codec centralizes document payload encoding for persisted
// partition snapshots.
//
// Snapshots are self-describing: they record the codec name in their header,
// and the matching codec is selected by name on load. Changing the default
// codec therefore never breaks existing snapshot files.
package codec

// Codec encodes/decodes document payloads.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// Default is the codec used for newly written snapshots.
var Default Codec = GoJSON{}
