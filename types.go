// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

// TableName identifies a source table by namespace and qualifier. The
// canonical string form is "namespace:qualifier"; namespace may be
// empty, in which case the canonical form omits the colon.
type TableName struct {
	Namespace string
	Qualifier string
}

// String returns the canonical "namespace:qualifier" form, or just the
// qualifier when namespace is empty.
func (t TableName) String() string {
	if t.Namespace == "" {
		return t.Qualifier
	}
	return t.Namespace + ":" + t.Qualifier
}

// Cell is a single host-supplied column write. All byte slices are
// read-only views into host-owned buffers and must not be retained
// beyond the processing of the WAL batch that produced them; copy via
// RowKeyView.ToBytes or an explicit slice copy before storing.
type Cell struct {
	Row       []byte
	Family    []byte
	Qualifier []byte
	Value     []byte
	Timestamp int64
	Tombstone bool
}

// WalEntry is one unit of replication traffic: the cells of one or more
// rows of one table, in host-provided order. SequenceID and WriteTime
// are negative when the host does not supply them.
type WalEntry struct {
	Table      TableName
	SequenceID int64
	WriteTime  int64
	Cells      []Cell
}
