// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestSplitBootstrap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single host", "localhost:9092", []string{"localhost:9092"}},
		{"multiple hosts", "a:9092,b:9092,c:9092", []string{"a:9092", "b:9092", "c:9092"}},
		{"whitespace trimmed", " a:9092 , b:9092 ", []string{"a:9092", "b:9092"}},
		{"empty segments skipped", "a:9092,,b:9092", []string{"a:9092", "b:9092"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, splitBootstrap(tt.in))
		})
	}
}

func TestSASLMechanism_NilWhenUsernameEmpty(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfigBuilder().BrokerBootstrap("localhost:9092").Build()
	require.NoError(t, err)
	assert.Nil(t, saslMechanism(cfg))
}

func TestSASLMechanism_PresentWhenUsernameSet(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfigBuilder().
		BrokerBootstrap("localhost:9092").
		SASL("user", "pass").
		Build()
	require.NoError(t, err)

	mech := saslMechanism(cfg)
	require.NotNil(t, mech)
	assert.Equal(t, "PLAIN", mech.Name())
}

func TestAcksToKgo(t *testing.T) {
	t.Parallel()

	assert.Equal(t, kgo.NoAck(), acksToKgo(AcksNone))
	assert.Equal(t, kgo.LeaderAck(), acksToKgo(AcksLeader))
	assert.Equal(t, kgo.AllISRAcks(), acksToKgo(AcksAll))
}

func TestCompressionToKgo_ReturnsOneCodecPerSetting(t *testing.T) {
	t.Parallel()

	tests := []Compression{CompressionNone, CompressionGzip, CompressionSnappy, CompressionLZ4, CompressionZstd}
	for _, c := range tests {
		codecs := compressionToKgo(c)
		assert.Len(t, codecs, 1)
	}
}
