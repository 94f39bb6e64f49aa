// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import "encoding/binary"

// DecodedPK is the composite primary key decoded out of a Phoenix-style
// row-key: (c VARCHAR, t UNSIGNED_TINYINT, opd TIMESTAMP). Supplemental
// feature (SPEC_FULL.md §12): only ascending-order columns are
// supported, consistent with the base spec's non-goal of not handling
// descending-order key components.
type DecodedPK struct {
	C     string
	T     uint8
	OpdMs int64
}

// decodePK decodes rk[off:off+len), optionally skipping a fixed-width
// salt prefix. Never fails: malformed or short row-keys yield zero
// values, matching PhoenixRowKeyDecoder's no-exceptions-on-hot-path
// contract.
func decodePK(rk []byte, off, length int, salted bool, saltBytes int) DecodedPK {
	if len(rk) == 0 || length <= 0 {
		return DecodedPK{}
	}
	if off < 0 {
		off = 0
	}
	end := off + length
	if end > len(rk) {
		end = len(rk)
	}
	if off > end {
		off = end
	}

	start := off
	if salted {
		skip := saltBytes
		if max := end - off; skip > max {
			skip = max
		}
		if skip < 0 {
			skip = 0
		}
		start = off + skip
	}

	segEnd, escapePairs, termFound := scanVarchar(rk, start, end)
	c := decodeVarcharSegment(rk, start, segEnd, escapePairs)
	pos := segEnd
	if termFound {
		pos++
	}

	var t uint8
	if pos < end {
		t = rk[pos]
	}
	pos++

	var ms int64
	if pos+8 <= end {
		ms = int64(binary.BigEndian.Uint64(rk[pos : pos+8]))
	}
	pos += 8

	var nanos int32
	if pos+4 <= end {
		nanos = int32(binary.BigEndian.Uint32(rk[pos : pos+4]))
	}

	return DecodedPK{C: c, T: t, OpdMs: ms + int64(nanos)/1_000_000}
}

// scanVarchar walks a zero-escaped VARCHAR segment starting at off,
// stopping at an unescaped 0x00 terminator or at end. A 0x00 0xFF pair
// is an escaped literal zero byte within the string. Returns the
// segment's end index, the count of escape pairs found, and whether a
// terminator was found.
func scanVarchar(rk []byte, off, end int) (segEnd, escapePairs int, termFound bool) {
	i := off
	for i < end {
		if rk[i] == 0 {
			if i+1 < end && rk[i+1] == 0xFF {
				escapePairs++
				i += 2
				continue
			}
			return i, escapePairs, true
		}
		i++
	}
	return end, escapePairs, false
}

// decodeVarcharSegment unpacks rk[off:segEnd), replacing 0x00 0xFF
// escape pairs with a literal 0x00 byte.
func decodeVarcharSegment(rk []byte, off, segEnd, escapePairs int) string {
	encodedLen := segEnd - off
	if encodedLen <= 0 {
		return ""
	}
	if escapePairs == 0 {
		return string(rk[off:segEnd])
	}
	out := make([]byte, encodedLen-escapePairs)
	readIdx, writeIdx := off, 0
	for readIdx < segEnd {
		if rk[readIdx] == 0 && readIdx+1 < segEnd && rk[readIdx+1] == 0xFF {
			out[writeIdx] = 0
			writeIdx++
			readIdx += 2
		} else {
			out[writeIdx] = rk[readIdx]
			writeIdx++
			readIdx++
		}
	}
	return string(out)
}
