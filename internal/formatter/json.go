package formatter

import (
	"encoding/json"
)

// JSONCodec encodes artifacts as UTF-8 JSON documents.
type JSONCodec struct {
	Pretty bool // Pretty emits indented documents for human inspection
}

// NewJSONCodec returns the default pretty-printing JSON codec.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Pretty: true}
}

// Encode marshals v into a JSON document.
func (c *JSONCodec) Encode(v any) ([]byte, error) {
	if c.Pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// Decode unmarshals a JSON document into v.
func (c *JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Ext returns ".json".
func (c *JSONCodec) Ext() string { return ".json" }
