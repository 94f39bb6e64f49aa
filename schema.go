// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import (
	"encoding/json"
	"os"
	"strings"
	"sync/atomic"
)

// schemaTable is the JSON shape of one table entry in the schema
// source: { "columns": { "<col>": "<TYPE>" } }.
type schemaTable struct {
	Columns map[string]string `json:"columns"`
}

// SchemaSnapshot is an immutable mapping table-alias -> qualifier-alias
// -> canonical type name, produced by loading a schema source. It is
// never mutated after construction; SchemaRegistry.Refresh replaces the
// whole snapshot atomically.
type SchemaSnapshot struct {
	tables map[string]map[string]string
}

// emptySchemaSnapshot is returned whenever loading fails; errors never
// propagate out of schema loading (§4.2/§7 SchemaLoadError).
func emptySchemaSnapshot() *SchemaSnapshot {
	return &SchemaSnapshot{tables: map[string]map[string]string{}}
}

// loadSchemaSnapshot parses the schema source JSON and publishes every
// alias described in §4.2: each column under its original/upper/lower
// qualifier spelling, each table under up to six aliases (original,
// upper, lower of the full "ns:qual" form, plus the same three of the
// short qualifier-only form when a namespace is present). Malformed JSON
// yields an empty snapshot together with the parse error.
func loadSchemaSnapshot(data []byte) (*SchemaSnapshot, error) {
	var raw map[string]schemaTable
	if err := json.Unmarshal(data, &raw); err != nil {
		return emptySchemaSnapshot(), err
	}

	snap := &SchemaSnapshot{tables: make(map[string]map[string]string, len(raw)*2)}
	for tableKey, entry := range raw {
		columns := make(map[string]string, len(entry.Columns)*3)
		for qualifier, typeName := range entry.Columns {
			canon := normalizeTypeName(typeName)
			for _, alias := range qualifierAliases(qualifier) {
				columns[alias] = canon
			}
		}
		for _, alias := range tableAliases(tableKey) {
			snap.tables[alias] = columns
		}
	}
	return snap, nil
}

func qualifierAliases(qualifier string) []string {
	return []string{qualifier, strings.ToUpper(qualifier), strings.ToLower(qualifier)}
}

// tableAliases returns up to six aliases for a "ns:qual" table key: the
// original/upper/lower of the full key, plus the same three of the part
// after ':' when a namespace is present.
func tableAliases(tableKey string) []string {
	aliases := []string{tableKey, strings.ToUpper(tableKey), strings.ToLower(tableKey)}
	if idx := strings.IndexByte(tableKey, ':'); idx >= 0 {
		short := tableKey[idx+1:]
		aliases = append(aliases, short, strings.ToUpper(short), strings.ToLower(short))
	}
	return aliases
}

// columnType looks up the canonical type name for table+qualifier, nil
// (ok=false) when the table alias or column alias is unknown.
func (s *SchemaSnapshot) columnType(table TableName, qualifier string) (string, bool) {
	columns, ok := s.tables[table.String()]
	if !ok {
		return "", false
	}
	t, ok := columns[qualifier]
	return t, ok
}

// SchemaRegistry produces the declared type name for a column, loaded
// from a JSON source and hot-reloadable via Refresh. The snapshot is
// held behind an atomic pointer so refresh never exposes a partially
// rebuilt view to concurrent readers.
type SchemaRegistry struct {
	path     string
	snapshot atomic.Pointer[SchemaSnapshot]
	logger   Logger
}

// NewSchemaRegistry loads path once at construction. A missing or
// malformed source yields an empty registry (ErrSchemaLoad is logged,
// never returned).
func NewSchemaRegistry(path string, logger Logger) *SchemaRegistry {
	if logger == nil {
		logger = NopLogger
	}
	r := &SchemaRegistry{path: path, logger: logger}
	r.snapshot.Store(r.load())
	return r
}

func (r *SchemaRegistry) load() *SchemaSnapshot {
	data, err := os.ReadFile(r.path)
	if err != nil {
		logAt(r.logger, LogLevelWarn, "schema load failed, using empty snapshot",
			"path", r.path, "err", err, "metric", errorMetric(ErrSchemaLoad))
		return emptySchemaSnapshot()
	}
	snap, err := loadSchemaSnapshot(data)
	if err != nil {
		logAt(r.logger, LogLevelWarn, "schema parse failed, using empty snapshot",
			"path", r.path, "err", err, "metric", errorMetric(ErrSchemaLoad))
	}
	return snap
}

// Refresh reloads the schema source and atomically swaps the snapshot.
// Readers in flight see either the old or the new snapshot, never a
// torn view.
func (r *SchemaRegistry) Refresh() {
	r.snapshot.Store(r.load())
}

// ColumnType returns the exact-match canonical type name for
// table.Qualifier, or "", false when not declared.
func (r *SchemaRegistry) ColumnType(table TableName, qualifier string) (string, bool) {
	return r.snapshot.Load().columnType(table, qualifier)
}

// ColumnTypeRelaxed tries the qualifier as given, then upper-cased, then
// lower-cased.
func (r *SchemaRegistry) ColumnTypeRelaxed(table TableName, qualifier string) (string, bool) {
	snap := r.snapshot.Load()
	if t, ok := snap.columnType(table, qualifier); ok {
		return t, ok
	}
	if t, ok := snap.columnType(table, strings.ToUpper(qualifier)); ok {
		return t, ok
	}
	return snap.columnType(table, strings.ToLower(qualifier))
}
