// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
)

// Decoder converts a raw column value to its typed representation. It
// is the tagged-variant replacement for the source's decoder class
// hierarchy (§9 design note): RawDecoder and TypedDecoder both satisfy
// it, and TypedDecoder's unknown-type fallback is state, not a subtype.
type Decoder interface {
	Decode(table TableName, qualifier string, value []byte) (any, error)
}

// RawDecoder returns the input byte slice unchanged. Stateless,
// thread-safe, the default decode.mode.
type RawDecoder struct{}

// Decode implements Decoder; nil input returns nil without allocating.
func (RawDecoder) Decode(_ TableName, _ string, value []byte) (any, error) {
	if value == nil {
		return nil, nil
	}
	return rawBytes(value), nil
}

type columnTypeCacheKey struct {
	table     string
	qualifier string
}

// TypedDecoder converts raw bytes to a logical value using a
// SchemaRegistry-declared type name, caching the resolved type per
// column and warning at most once per column on an unknown type name.
type TypedDecoder struct {
	registry *SchemaRegistry
	logger   Logger

	typeCache sync.Map // columnTypeCacheKey -> string (resolved type name)
	warned    sync.Map // columnTypeCacheKey -> struct{}
}

// NewTypedDecoder builds a TypedDecoder over registry. logger may be
// nil (defaults to NopLogger).
func NewTypedDecoder(registry *SchemaRegistry, logger Logger) *TypedDecoder {
	if logger == nil {
		logger = NopLogger
	}
	return &TypedDecoder{registry: registry, logger: logger}
}

// Decode implements Decoder.
func (d *TypedDecoder) Decode(table TableName, qualifier string, value []byte) (any, error) {
	if value == nil {
		return nil, nil
	}
	key := columnTypeCacheKey{table: table.String(), qualifier: qualifier}
	typ := d.resolveCached(key, table, qualifier)

	v, err := convert(typ, value)
	if err != nil {
		return nil, &DecodeError{Table: table, Qualifier: qualifier, Type: typ, Cause: err}
	}
	return v, nil
}

// resolveCached consults the per-column cache, resolving and storing on
// first use. Falls back to VARCHAR with a once-per-column warning when
// the registry has no declaration or declares an unrecognized type.
func (d *TypedDecoder) resolveCached(key columnTypeCacheKey, table TableName, qualifier string) string {
	if cached, ok := d.typeCache.Load(key); ok {
		return cached.(string)
	}

	declared, ok := d.registry.ColumnType(table, qualifier)
	typ := "VARCHAR"
	switch {
	case !ok:
		d.warnUnknownOnce(key, table, qualifier, "")
	case !isKnownType(resolveTypeName(declared)):
		d.warnUnknownOnce(key, table, qualifier, declared)
	default:
		typ = resolveTypeName(declared)
	}

	actual, _ := d.typeCache.LoadOrStore(key, typ)
	return actual.(string)
}

func (d *TypedDecoder) warnUnknownOnce(key columnTypeCacheKey, table TableName, qualifier, declared string) {
	if _, loaded := d.warned.LoadOrStore(key, struct{}{}); loaded {
		logAt(d.logger, LogLevelDebug, "unknown column type, using VARCHAR fallback",
			"table", table.String(), "qualifier", qualifier, "declared", declared)
		return
	}
	logAt(d.logger, LogLevelWarn, "unknown column type, using VARCHAR fallback",
		"table", table.String(), "qualifier", qualifier, "declared", declared)
}

// arraySuffix marks a canonical "T ARRAY" type name.
const arraySuffix = " ARRAY"

func isKnownType(typ string) bool {
	if strings.HasSuffix(typ, arraySuffix) {
		return isKnownScalarType(strings.TrimSuffix(typ, arraySuffix))
	}
	return isKnownScalarType(typ)
}

func isKnownScalarType(typ string) bool {
	switch typ {
	case "VARCHAR", "CHAR", "STRING",
		"TINYINT", "SMALLINT", "INTEGER", "INT", "BIGINT", "LONG",
		"UNSIGNED TINYINT", "UNSIGNED SMALLINT", "UNSIGNED INT", "UNSIGNED INTEGER", "UNSIGNED LONG", "UNSIGNED BIGINT",
		"FLOAT", "DOUBLE",
		"DECIMAL", "NUMERIC", "NUMBER",
		"BOOLEAN", "BOOL",
		"DATE", "TIME", "TIMESTAMP",
		"BINARY", "VARBINARY":
		return true
	default:
		return false
	}
}

// convert performs the raw-bytes-to-value conversion described in §4.3.
func convert(typ string, value []byte) (any, error) {
	if strings.HasSuffix(typ, arraySuffix) {
		return convertArray(strings.TrimSuffix(typ, arraySuffix), value)
	}
	return convertScalar(typ, value)
}

func convertScalar(typ string, value []byte) (any, error) {
	switch typ {
	case "VARCHAR", "CHAR", "STRING":
		return string(value), nil

	case "TINYINT":
		return decodeSignedInt(value, 1)
	case "SMALLINT":
		return decodeSignedInt(value, 2)
	case "INTEGER", "INT":
		return decodeSignedInt(value, 4)
	case "BIGINT", "LONG":
		return decodeSignedInt(value, 8)

	case "UNSIGNED TINYINT":
		return decodeUnsignedInt(value, 1)
	case "UNSIGNED SMALLINT":
		return decodeUnsignedInt(value, 2)
	case "UNSIGNED INT", "UNSIGNED INTEGER":
		return decodeUnsignedInt(value, 4)
	case "UNSIGNED LONG", "UNSIGNED BIGINT":
		return decodeUnsignedInt(value, 8)

	case "FLOAT":
		if len(value) != 4 {
			return nil, fmt.Errorf("FLOAT requires 4 bytes, got %d", len(value))
		}
		return math.Float32frombits(binary.BigEndian.Uint32(value)), nil
	case "DOUBLE":
		if len(value) != 8 {
			return nil, fmt.Errorf("DOUBLE requires 8 bytes, got %d", len(value))
		}
		return math.Float64frombits(binary.BigEndian.Uint64(value)), nil

	case "DECIMAL", "NUMERIC", "NUMBER":
		r, ok := new(big.Rat).SetString(string(value))
		if !ok {
			return nil, fmt.Errorf("invalid decimal literal %q", value)
		}
		return decimalValue{r: r}, nil

	case "BOOLEAN", "BOOL":
		if len(value) == 0 {
			return nil, fmt.Errorf("BOOLEAN requires 1 byte, got 0")
		}
		return value[0] != 0, nil

	case "DATE", "TIME", "TIMESTAMP":
		if len(value) != 8 {
			return nil, fmt.Errorf("%s requires 8 bytes, got %d", typ, len(value))
		}
		return int64(binary.BigEndian.Uint64(value)), nil

	case "BINARY", "VARBINARY":
		return rawBytes(value), nil

	default:
		return string(value), nil
	}
}

// convertArray decodes a length-prefixed sequence of base-typed
// elements: a 4-byte big-endian element count, followed by each
// element as a 4-byte big-endian byte length plus its bytes.
func convertArray(base string, value []byte) (any, error) {
	if len(value) == 0 {
		return []any{}, nil
	}
	if len(value) < 4 {
		return nil, fmt.Errorf("array header truncated, got %d bytes", len(value))
	}
	count := binary.BigEndian.Uint32(value[:4])
	out := make([]any, 0, count)
	pos := 4
	for i := uint32(0); i < count; i++ {
		if pos+4 > len(value) {
			return nil, fmt.Errorf("array element %d length truncated", i)
		}
		elemLen := int(binary.BigEndian.Uint32(value[pos : pos+4]))
		pos += 4
		if pos+elemLen > len(value) {
			return nil, fmt.Errorf("array element %d truncated", i)
		}
		elem, err := convertScalar(base, value[pos:pos+elemLen])
		if err != nil {
			return nil, fmt.Errorf("array element %d: %w", i, err)
		}
		out = append(out, elem)
		pos += elemLen
	}
	return out, nil
}

func decodeSignedInt(value []byte, width int) (int64, error) {
	if len(value) != width {
		return 0, fmt.Errorf("integer requires %d bytes, got %d", width, len(value))
	}
	var u uint64
	for _, b := range value {
		u = u<<8 | uint64(b)
	}
	shift := uint(64 - 8*width)
	return int64(u<<shift) >> shift, nil
}

func decodeUnsignedInt(value []byte, width int) (int64, error) {
	if len(value) != width {
		return 0, fmt.Errorf("unsigned integer requires %d bytes, got %d", width, len(value))
	}
	var u uint64
	for _, b := range value {
		u = u<<8 | uint64(b)
	}
	return int64(u), nil
}
