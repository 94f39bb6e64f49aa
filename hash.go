// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import "github.com/cespare/xxhash/v2"

// hashBytes computes a 64-bit content hash of a byte range, used as the
// cached hash for RowKeyView. xxhash gives a fast, well-distributed
// non-cryptographic hash appropriate for a map key computed once per
// row and compared many times within a batch.
func hashBytes(b []byte) uint64 {
	return xxhash.Sum64(b)
}
