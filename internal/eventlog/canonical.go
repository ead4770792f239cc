// Package eventlog implements the per-run append-only event log: envelope
// construction, the SHA-256 hash chain, the appender (with torn-tail
// recovery), and the tolerant replay reader.
package eventlog

import (
	"bytes"
	"encoding/json"
)

// canonicalJSON re-encodes an arbitrary JSON value with map keys sorted
// lexicographically at every depth and no insignificant whitespace, so
// event_hash is stable regardless of the Go map iteration order that
// produced the envelope. Numbers keep Go's default json.Marshal decimal
// form, which already emits the minimal representation for float64/int.
func canonicalJSON(v interface{}) ([]byte, error) {
	normalized, err := normalize(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(normalized)
}

// normalize round-trips v through encoding/json with UseNumber so nested
// maps decode as map[string]interface{} (sorted by Marshal's own key-sort
// for maps) and nested arrays preserve order. Go's json.Marshal already
// sorts map[string]any keys lexicographically, so the only work here is
// making sure every nested object becomes a plain map rather than a
// struct with field-declaration order.
func normalize(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
