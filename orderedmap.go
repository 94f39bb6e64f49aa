// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import "bytes"

// Payload is an insertion-order-preserving string-keyed map, the Go
// stand-in for Java's LinkedHashMap used by the original payload
// builder. It implements json.Marshaler so its iteration order becomes
// the serialized key order.
type Payload struct {
	entries []payloadEntry
}

type payloadEntry struct {
	key   string
	value any
}

// payloadCapacity mirrors the original's capacityFor(expectedEntries):
// the smallest backing capacity that holds expected entries without a
// rehash at a 0.75 load factor, computed with integer-only arithmetic.
func payloadCapacity(expected int) int {
	if expected <= 0 {
		return 1
	}
	// ceil(4*expected/3) + 1
	return (4*expected+2)/3 + 1
}

// NewPayload allocates a Payload sized for expectedEntries without
// rehashing.
func NewPayload(expectedEntries int) *Payload {
	return &Payload{entries: make([]payloadEntry, 0, payloadCapacity(expectedEntries))}
}

// Set appends a key/value pair. Callers are responsible for not
// inserting the same key twice; PayloadAssembler's algorithm never does.
func (p *Payload) Set(key string, value any) {
	p.entries = append(p.entries, payloadEntry{key: key, value: value})
}

// Len returns the number of entries.
func (p *Payload) Len() int { return len(p.entries) }

// Get returns the value for key and whether it was present. Linear scan;
// payloads are small (one per row) and this is used only by tests.
func (p *Payload) Get(key string) (any, bool) {
	for _, e := range p.entries {
		if e.key == key {
			return e.value, true
		}
	}
	return nil, false
}

// Keys returns the keys in insertion order.
func (p *Payload) Keys() []string {
	out := make([]string, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.key
	}
	return out
}

// MarshalJSON serializes the payload as a JSON object with keys in
// insertion order.
func (p *Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range p.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := marshalJSONValue(e.key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valJSON, err := marshalJSONValue(e.value)
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
