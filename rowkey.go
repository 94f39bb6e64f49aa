// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import "fmt"

// RowKeyView is a zero-copy view over a byte range owned by the host's
// WAL batch, with a precomputed content hash. It must never escape the
// processing of the batch that produced it; call ToBytes to obtain a
// copy suitable for longer-lived storage.
type RowKeyView struct {
	data []byte
	h    uint64
}

// rowKeyEmptyView is the shared singleton for the zero-length view.
var rowKeyEmptyView = RowKeyView{data: []byte{}, h: hashBytes(nil)}

// RowKeyOf returns a view over array[offset : offset+length]. It fails
// with ErrInvalidInput wrapped in a descriptive error when the range is
// out of bounds.
func RowKeyOf(array []byte, offset, length int) (RowKeyView, error) {
	if offset < 0 || length < 0 || offset+length > len(array) {
		return RowKeyView{}, fmt.Errorf("%w: row-key range [%d:%d+%d] out of bounds for length %d",
			ErrInvalidInput, offset, offset, length, len(array))
	}
	if length == 0 {
		return RowKeyEmpty(), nil
	}
	view := array[offset : offset+length]
	return RowKeyView{data: view, h: hashBytes(view)}, nil
}

// RowKeyEmpty returns the singleton zero-length view.
func RowKeyEmpty() RowKeyView { return rowKeyEmptyView }

// RowKeyWhole is a convenience for RowKeyOf(array, 0, len(array)).
func RowKeyWhole(array []byte) RowKeyView {
	if len(array) == 0 {
		return RowKeyEmpty()
	}
	return RowKeyView{data: array, h: hashBytes(array)}
}

// rawBytes returns the underlying view without copying. Callers must
// not retain it beyond the batch's processing scope.
func (r RowKeyView) rawBytes() []byte { return r.data }

// ToBytes returns a freshly allocated copy of the view's bytes. This is
// the only supported way to retain row-key data beyond the lifetime of
// the batch it came from.
func (r RowKeyView) ToBytes() []byte {
	out := make([]byte, len(r.data))
	copy(out, r.data)
	return out
}

// Hash returns the cached content hash.
func (r RowKeyView) Hash() uint64 { return r.h }

// Len returns the number of bytes in the view.
func (r RowKeyView) Len() int { return len(r.data) }

// Equal compares by cached hash, then length, then byte content.
func (r RowKeyView) Equal(other RowKeyView) bool {
	if r.h != other.h || len(r.data) != len(other.data) {
		return false
	}
	for i := range r.data {
		if r.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// String returns a short diagnostic preview: up to the first 16 bytes in
// hex, with a truncation marker when longer.
func (r RowKeyView) String() string {
	const maxPreview = 16
	n := len(r.data)
	if n <= maxPreview {
		return fmt.Sprintf("rowkey(%d:%x)", n, r.data)
	}
	return fmt.Sprintf("rowkey(%d:%x...)", n, r.data[:maxPreview])
}
