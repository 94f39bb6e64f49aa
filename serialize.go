// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import (
	"bytes"
	"encoding/json"
	"math/big"
)

// rawBytes marshals as a JSON array of byte values rather than the
// base64 string encoding/json gives a bare []byte. It is how raw and
// BINARY/VARBINARY column values reach the wire, matching the source
// decoder's array-of-numbers rendering of pass-through byte data.
type rawBytes []byte

// MarshalJSON implements json.Marshaler.
func (b rawBytes) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}
	nums := make([]int, len(b))
	for i, v := range b {
		nums[i] = int(v)
	}
	return json.Marshal(nums)
}

// decimalValue marshals a *big.Rat as a plain decimal-literal JSON
// number (e.g. 12.34) instead of the reduced-fraction string
// (e.g. "617/50") that big.Rat's default MarshalText-based encoding
// would otherwise produce. DECIMAL/NUMERIC/NUMBER columns always
// parse from a finite decimal string, so in lowest terms the
// denominator has only 2 and 5 as prime factors and decimalScale
// recovers the exact number of fractional digits needed to render it
// without rounding.
type decimalValue struct {
	r *big.Rat
}

// MarshalJSON implements json.Marshaler.
func (d decimalValue) MarshalJSON() ([]byte, error) {
	if d.r == nil {
		return []byte("null"), nil
	}
	scale := decimalScale(d.r.Denom())
	return []byte(d.r.FloatString(scale)), nil
}

// decimalScale returns the number of digits after the decimal point
// needed to render 1/denom exactly, by counting denom's factors of 2
// and 5 (the only factors a reduced finite-decimal denominator can
// have).
func decimalScale(denom *big.Int) int {
	d := new(big.Int).Set(denom)
	two, five, zero := big.NewInt(2), big.NewInt(5), big.NewInt(0)
	rem := new(big.Int)

	count2 := 0
	for {
		rem.Mod(d, two)
		if rem.Cmp(zero) != 0 {
			break
		}
		d.Div(d, two)
		count2++
	}

	count5 := 0
	for {
		rem.Mod(d, five)
		if rem.Cmp(zero) != 0 {
			break
		}
		d.Div(d, five)
		count5++
	}

	if count2 > count5 {
		return count2
	}
	return count5
}

// marshalJSONValue serializes v with HTML-escaping disabled, matching
// the "JSON serializer" external collaborator described in §6: it
// preserves map iteration order (Payload already guarantees this via
// MarshalJSON) and never escapes '<', '>', '&'.
func marshalJSONValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encode appends a trailing newline; strip it so values compose.
	out := buf.Bytes()
	if n := len(out); n > 0 && out[n-1] == '\n' {
		out = out[:n-1]
	}
	return out, nil
}

// MarshalPayload serializes a Payload to UTF-8 JSON bytes.
func MarshalPayload(p *Payload) ([]byte, error) {
	return p.MarshalJSON()
}
