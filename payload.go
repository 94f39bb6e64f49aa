// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
)

// Reserved payload keys (§3).
const (
	keyTable        = "_table"
	keyNamespace    = "_namespace"
	keyQualifier    = "_qualifier"
	keyCF           = "_cf"
	keyCellsTotal   = "_cells_total"
	keyCellsCF      = "_cells_cf"
	keyEventVersion = "event_version"
	keyDelete       = "delete"
	keyRowKeyHex    = "rowkey_hex"
	keyRowKeyB64    = "rowkey_b64"
	keyWalSeq       = "_wal_seq"
	keyWalWriteTime = "_wal_write_time"
	keyPKC          = "_pk_c"
	keyPKT          = "_pk_t"
	keyPKOpdMs      = "_pk_opd_ms"
)

// PayloadAssembler groups one row's cells into an ordered key-value
// Payload, per the algorithm in §4.4, without side effects: it neither
// logs nor mutates its inputs.
type PayloadAssembler struct {
	decoder Decoder
	cfg     *Config
}

// NewPayloadAssembler builds an assembler over decoder using cfg for
// its feature flags (target family, meta/rowkey/WAL inclusion,
// null-serialization, row-key encoding, PK decoding).
func NewPayloadAssembler(decoder Decoder, cfg *Config) *PayloadAssembler {
	return &PayloadAssembler{decoder: decoder, cfg: cfg}
}

// Build assembles the payload for one row. rowKey may be the zero value
// (RowKeyEmpty) when the source provides no row-key.
func (a *PayloadAssembler) Build(table TableName, cells []Cell, rowKey *RowKeyView, walSeq, walWriteTime int64) (*Payload, error) {
	includeMeta := a.cfg.IncludeMeta()
	includeWalMeta := includeMeta && a.cfg.IncludeMetaWal()
	includeRowKey := a.cfg.IncludeRowKey() && rowKey != nil
	pkDecode := includeMeta && a.cfg.PKDecode() && rowKey != nil

	cap := 1 + len(cells)
	if includeMeta {
		cap += 5
	}
	if includeRowKey {
		cap++
	}
	if includeWalMeta {
		cap += 2
	}
	if pkDecode {
		cap += 3
	}

	p := NewPayload(cap)

	if includeMeta {
		p.Set(keyTable, table.String())
		p.Set(keyNamespace, table.Namespace)
		p.Set(keyQualifier, table.Qualifier)
		p.Set(keyCF, a.cfg.FamilyName())
		p.Set(keyCellsTotal, len(cells))
	}

	cf := a.cfg.FamilyBytes()
	serializeNulls := a.cfg.SerializeNulls()

	var maxTs int64
	var hasDelete bool
	var cfCells int

	for _, cell := range cells {
		if !bytes.Equal(cell.Family, cf) {
			continue
		}
		cfCells++
		if cell.Timestamp > maxTs {
			maxTs = cell.Timestamp
		}
		if cell.Tombstone {
			hasDelete = true
			continue
		}
		decoded, err := a.decoder.Decode(table, string(cell.Qualifier), cell.Value)
		if err != nil {
			return nil, err
		}
		if decoded != nil || serializeNulls {
			p.Set(string(cell.Qualifier), decoded)
		}
	}

	if includeMeta {
		p.Set(keyCellsCF, cfCells)
	}
	p.Set(keyEventVersion, maxTs)
	if hasDelete {
		p.Set(keyDelete, true)
	}

	if includeRowKey {
		rkBytes := rowKey.ToBytes()
		if a.cfg.RowkeyBase64() {
			p.Set(keyRowKeyB64, base64.StdEncoding.EncodeToString(rkBytes))
		} else {
			p.Set(keyRowKeyHex, hex.EncodeToString(rkBytes))
		}
	}

	if includeWalMeta {
		if walSeq >= 0 {
			p.Set(keyWalSeq, walSeq)
		}
		if walWriteTime >= 0 {
			p.Set(keyWalWriteTime, walWriteTime)
		}
	}

	if pkDecode {
		pk := decodePK(rowKey.rawBytes(), 0, rowKey.Len(), a.cfg.RowkeySalted(), a.cfg.RowkeySaltBytes())

		p.Set(keyPKC, pk.C)
		p.Set(keyPKT, int(pk.T))
		p.Set(keyPKOpdMs, pk.OpdMs)
	}

	return p, nil
}
