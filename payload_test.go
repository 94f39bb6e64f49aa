// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildConfig(t *testing.T, mutate func(b *ConfigBuilder)) *Config {
	t.Helper()
	b := NewConfigBuilder().BrokerBootstrap("localhost:9092")
	if mutate != nil {
		mutate(b)
	}
	cfg, err := b.Build()
	require.NoError(t, err)
	return cfg
}

func TestPayloadAssembler_Build_Basic(t *testing.T) {
	t.Parallel()

	cfg := buildConfig(t, nil)
	asm := NewPayloadAssembler(RawDecoder{}, cfg)

	table := TableName{Namespace: "ns", Qualifier: "T"}
	cells := []Cell{
		{Row: []byte("r1"), Family: []byte("0"), Qualifier: []byte("a"), Value: []byte("va"), Timestamp: 10},
		{Row: []byte("r1"), Family: []byte("0"), Qualifier: []byte("b"), Value: []byte("vb"), Timestamp: 20},
		{Row: []byte("r1"), Family: []byte("1"), Qualifier: []byte("c"), Value: []byte("vc"), Timestamp: 30},
	}
	rk, err := RowKeyOf([]byte("r1"), 0, 2)
	require.NoError(t, err)

	p, err := asm.Build(table, cells, &rk, 5, 1000)
	require.NoError(t, err)

	v, ok := p.Get("a")
	require.True(t, ok)
	assert.Equal(t, rawBytes("va"), v)

	v, ok = p.Get("b")
	require.True(t, ok)
	assert.Equal(t, rawBytes("vb"), v)

	// Column "c" belongs to a different family and must be excluded.
	_, ok = p.Get("c")
	assert.False(t, ok)

	v, ok = p.Get(keyEventVersion)
	require.True(t, ok)
	assert.Equal(t, int64(20), v)

	_, ok = p.Get(keyRowKeyHex)
	require.True(t, ok)
}

func TestPayloadAssembler_Build_DeleteFlag(t *testing.T) {
	t.Parallel()

	cfg := buildConfig(t, nil)
	asm := NewPayloadAssembler(RawDecoder{}, cfg)

	table := TableName{Qualifier: "T"}
	cells := []Cell{
		{Family: []byte("0"), Qualifier: []byte("a"), Tombstone: true, Timestamp: 5},
	}
	rk := RowKeyEmpty()

	p, err := asm.Build(table, cells, &rk, -1, -1)
	require.NoError(t, err)

	v, ok := p.Get(keyDelete)
	require.True(t, ok)
	assert.Equal(t, true, v)

	_, ok = p.Get("a")
	assert.False(t, ok)
}

func TestPayloadAssembler_Build_IncludeMetaAndWal(t *testing.T) {
	t.Parallel()

	cfg := buildConfig(t, func(b *ConfigBuilder) {
		b.IncludeMeta(true).IncludeMetaWal(true)
	})
	asm := NewPayloadAssembler(RawDecoder{}, cfg)

	table := TableName{Namespace: "ns", Qualifier: "T"}
	cells := []Cell{
		{Family: []byte("0"), Qualifier: []byte("a"), Value: []byte("va"), Timestamp: 1},
	}
	rk := RowKeyEmpty()

	p, err := asm.Build(table, cells, &rk, 7, 12345)
	require.NoError(t, err)

	v, _ := p.Get(keyTable)
	assert.Equal(t, "ns:T", v)
	v, _ = p.Get(keyNamespace)
	assert.Equal(t, "ns", v)
	v, _ = p.Get(keyQualifier)
	assert.Equal(t, "T", v)
	v, _ = p.Get(keyCF)
	assert.Equal(t, "0", v)
	v, _ = p.Get(keyCellsTotal)
	assert.Equal(t, 1, v)
	v, _ = p.Get(keyCellsCF)
	assert.Equal(t, 1, v)
	v, _ = p.Get(keyWalSeq)
	assert.Equal(t, int64(7), v)
	v, _ = p.Get(keyWalWriteTime)
	assert.Equal(t, int64(12345), v)
}

func TestPayloadAssembler_Build_RowKeyBase64(t *testing.T) {
	t.Parallel()

	cfg := buildConfig(t, func(b *ConfigBuilder) {
		b.RowkeyEncoding(RowkeyBase64Encoding)
	})
	asm := NewPayloadAssembler(RawDecoder{}, cfg)

	rk, err := RowKeyOf([]byte("abcdef"), 0, 6)
	require.NoError(t, err)

	p, err := asm.Build(TableName{Qualifier: "T"}, nil, &rk, -1, -1)
	require.NoError(t, err)

	_, hasHex := p.Get(keyRowKeyHex)
	assert.False(t, hasHex)
	v, ok := p.Get(keyRowKeyB64)
	require.True(t, ok)
	assert.NotEmpty(t, v)
}

func TestPayloadAssembler_Build_NoRowKeyWhenNil(t *testing.T) {
	t.Parallel()

	cfg := buildConfig(t, nil)
	asm := NewPayloadAssembler(RawDecoder{}, cfg)

	p, err := asm.Build(TableName{Qualifier: "T"}, nil, nil, -1, -1)
	require.NoError(t, err)

	_, ok := p.Get(keyRowKeyHex)
	assert.False(t, ok)
	_, ok = p.Get(keyRowKeyB64)
	assert.False(t, ok)
}

func TestPayloadAssembler_Build_SerializeNulls(t *testing.T) {
	t.Parallel()

	// RawDecoder returns nil for a nil value; default serializeNulls=false
	// should omit the key, true should include it.
	table := TableName{Qualifier: "T"}
	cells := []Cell{
		{Family: []byte("0"), Qualifier: []byte("a"), Value: nil, Timestamp: 1},
	}
	rk := RowKeyEmpty()

	cfgOmit := buildConfig(t, nil)
	asmOmit := NewPayloadAssembler(RawDecoder{}, cfgOmit)
	p, err := asmOmit.Build(table, cells, &rk, -1, -1)
	require.NoError(t, err)
	_, ok := p.Get("a")
	assert.False(t, ok)

	cfgKeep := buildConfig(t, func(b *ConfigBuilder) { b.SerializeNulls(true) })
	asmKeep := NewPayloadAssembler(RawDecoder{}, cfgKeep)
	p, err = asmKeep.Build(table, cells, &rk, -1, -1)
	require.NoError(t, err)
	v, ok := p.Get("a")
	require.True(t, ok)
	assert.Nil(t, v)
}

func TestPayloadAssembler_Build_PKDecode(t *testing.T) {
	t.Parallel()

	cfg := buildConfig(t, func(b *ConfigBuilder) {
		b.IncludeMeta(true).RowkeyPKDecode(true, false, 0)
	})
	asm := NewPayloadAssembler(RawDecoder{}, cfg)

	rkBytes := buildPKRowKey("pk-value", 3, 1700000000000, 0)
	rk := RowKeyWhole(rkBytes)

	p, err := asm.Build(TableName{Qualifier: "T"}, nil, &rk, -1, -1)
	require.NoError(t, err)

	v, ok := p.Get(keyPKC)
	require.True(t, ok)
	assert.Equal(t, "pk-value", v)

	v, ok = p.Get(keyPKT)
	require.True(t, ok)
	assert.Equal(t, 3, v)

	v, ok = p.Get(keyPKOpdMs)
	require.True(t, ok)
	assert.Equal(t, int64(1700000000000), v)
}

func TestPayloadAssembler_Build_DecodeErrorPropagates(t *testing.T) {
	t.Parallel()

	cfg := buildConfig(t, nil)
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(schemaPath, []byte(`{"T":{"columns":{"a":"INTEGER"}}}`), 0o644))

	reg := NewSchemaRegistry(schemaPath, NopLogger)
	dec := NewTypedDecoder(reg, NopLogger)
	asm := NewPayloadAssembler(dec, cfg)

	table := TableName{Qualifier: "T"}
	cells := []Cell{
		{Family: []byte("0"), Qualifier: []byte("a"), Value: []byte{1, 2}, Timestamp: 1},
	}
	rk := RowKeyEmpty()

	_, err := asm.Build(table, cells, &rk, -1, -1)
	require.Error(t, err)
}

func TestHexEncodingSanity(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "6162", hex.EncodeToString([]byte("ab")))
}
