// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadCapacity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expected int
		want     int
	}{
		{-1, 1},
		{0, 1},
		{1, 3},
		{3, 5},
		{4, 7},
		{12, 17},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, payloadCapacity(tt.expected), "expected=%d", tt.expected)
	}
}

func TestPayload_PreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	p := NewPayload(4)
	p.Set("z", 1)
	p.Set("a", 2)
	p.Set("m", 3)

	assert.Equal(t, []string{"z", "a", "m"}, p.Keys())
	assert.Equal(t, 3, p.Len())

	v, ok := p.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = p.Get("missing")
	assert.False(t, ok)
}

func TestPayload_MarshalJSON_OrderMatchesInsertion(t *testing.T) {
	t.Parallel()

	p := NewPayload(3)
	p.Set("table", "T1")
	p.Set("rowkey", "abcd")
	p.Set("event_version", 1)

	data, err := p.MarshalJSON()
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Len(t, raw, 3)

	want := `{"table":"T1","rowkey":"abcd","event_version":1}`
	assert.JSONEq(t, want, string(data))

	// Key order within the raw bytes should match insertion order, not
	// alphabetical order a naive map would produce.
	assert.True(t, indexOf(string(data), `"table"`) < indexOf(string(data), `"rowkey"`))
	assert.True(t, indexOf(string(data), `"rowkey"`) < indexOf(string(data), `"event_version"`))
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
