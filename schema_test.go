// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchemaJSON = `{
	"ns:EVENTS": {
		"columns": {
			"amount": "DECIMAL(10,2)",
			"Created": "TIMESTAMP"
		}
	},
	"NOPREFIX": {
		"columns": {
			"flag": "bool"
		}
	}
}`

func writeTestSchema(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(testSchemaJSON), 0o644))
	return path
}

func TestSchemaRegistry_AliasResolution(t *testing.T) {
	t.Parallel()

	path := writeTestSchema(t)
	reg := NewSchemaRegistry(path, NopLogger)

	full := TableName{Namespace: "ns", Qualifier: "EVENTS"}
	short := TableName{Qualifier: "EVENTS"}

	typ, ok := reg.ColumnType(full, "amount")
	require.True(t, ok)
	assert.Equal(t, "DECIMAL", typ)

	// Short qualifier-only alias for a namespaced table.
	typ, ok = reg.ColumnType(short, "amount")
	require.True(t, ok)
	assert.Equal(t, "DECIMAL", typ)

	// Table alias case-folding.
	typ, ok = reg.ColumnType(TableName{Namespace: "NS", Qualifier: "EVENTS"}, "amount")
	require.True(t, ok)
	assert.Equal(t, "DECIMAL", typ)

	// Column alias relaxed lookup.
	typ, ok = reg.ColumnTypeRelaxed(full, "CREATED")
	require.True(t, ok)
	assert.Equal(t, "TIMESTAMP", typ)

	// Unknown column.
	_, ok = reg.ColumnType(full, "nope")
	assert.False(t, ok)

	// Unknown table.
	_, ok = reg.ColumnType(TableName{Qualifier: "NOPE"}, "amount")
	assert.False(t, ok)

	// Table with no namespace.
	typ, ok = reg.ColumnType(TableName{Qualifier: "NOPREFIX"}, "flag")
	require.True(t, ok)
	assert.Equal(t, "BOOL", typ)
}

func TestSchemaRegistry_LoadFailureYieldsEmptySnapshot(t *testing.T) {
	t.Parallel()

	reg := NewSchemaRegistry(filepath.Join(t.TempDir(), "missing.json"), NopLogger)

	_, ok := reg.ColumnType(TableName{Qualifier: "ANY"}, "any")
	assert.False(t, ok)
}

func TestSchemaRegistry_MalformedJSONYieldsEmptySnapshot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"T": not valid json`), 0o644))

	var reg *SchemaRegistry
	assert.NotPanics(t, func() {
		reg = NewSchemaRegistry(path, NopLogger)
	})

	_, ok := reg.ColumnType(TableName{Qualifier: "T"}, "any")
	assert.False(t, ok)
}

func TestSchemaRegistry_Refresh(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"T":{"columns":{"c":"VARCHAR"}}}`), 0o644))

	reg := NewSchemaRegistry(path, NopLogger)
	typ, ok := reg.ColumnType(TableName{Qualifier: "T"}, "c")
	require.True(t, ok)
	assert.Equal(t, "VARCHAR", typ)

	require.NoError(t, os.WriteFile(path, []byte(`{"T":{"columns":{"c":"BIGINT"}}}`), 0o644))
	reg.Refresh()

	typ, ok = reg.ColumnType(TableName{Qualifier: "T"}, "c")
	require.True(t, ok)
	assert.Equal(t, "BIGINT", typ)
}
