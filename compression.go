// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import (
	"fmt"
	"strings"
)

// Compression selects the broker producer's compression codec, fed into
// the franz-go client via kgo.ProducerBatchCompression. Domain-stack
// addition (SPEC_FULL.md §11), not part of the base Configuration table.
type Compression string

const (
	CompressionNone   Compression = "none"
	CompressionGzip   Compression = "gzip"
	CompressionSnappy Compression = "snappy"
	CompressionLZ4    Compression = "lz4"
	CompressionZstd   Compression = "zstd"
)

var compressionTypes map[Compression]struct{}
var compressionList []string

func init() {
	list := []Compression{CompressionNone, CompressionGzip, CompressionSnappy, CompressionLZ4, CompressionZstd}
	compressionTypes = make(map[Compression]struct{}, len(list))
	for _, c := range list {
		compressionTypes[c] = struct{}{}
		compressionList = append(compressionList, string(c))
	}
}

func validateCompression(c Compression) error {
	if _, ok := compressionTypes[c]; ok {
		return nil
	}
	return fmt.Errorf("%w: compression %q invalid: must be one of '%s'", ErrConfiguration, c, strings.Join(compressionList, "', '"))
}
