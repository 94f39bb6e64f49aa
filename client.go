// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import (
	"context"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl"
	"github.com/twmb/franz-go/pkg/sasl/plain"
)

// kafkaClient is the subset of *kgo.Client the producer path depends on.
// Mocked in tests; satisfied by the real client in production.
type kafkaClient interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Flush(ctx context.Context) error
	Close()
	BufferedProduceRecords() int64
}

var _ kafkaClient = (*kgo.Client)(nil)

// kadmClient is the subset of *kadm.Client the topic-ensure path
// depends on.
type kadmClient interface {
	ListTopics(ctx context.Context, topics ...string) (kadm.TopicDetails, error)
	CreateTopics(ctx context.Context, partitions int32, replicationFactor int16, configs map[string]*string, topics ...string) (kadm.CreateTopicResponses, error)
	Close()
}

var _ kadmClient = (*kadm.Client)(nil)

// clientFactory builds the production Kafka client from cfg. Exists so
// tests can inject a fake without touching the network.
type clientFactory func(cfg *Config) (kafkaClient, error)

// adminFactory builds the production admin client from cfg.
type adminFactory func(cfg *Config) (kadmClient, error)

// newKgoClient is the default clientFactory, grounded on the teacher's
// producer-option assembly in its own client construction path.
func newKgoClient(cfg *Config) (kafkaClient, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(splitBootstrap(cfg.BrokerBootstrap())...),
		kgo.ClientID(cfg.AdminClientID()),
		kgo.RequiredAcks(acksToKgo(cfg.Acks())),
		kgo.ProducerBatchCompression(compressionToKgo(cfg.Compression())...),
	}
	if mech := saslMechanism(cfg); mech != nil {
		opts = append(opts, kgo.SASL(mech))
	}
	return kgo.NewClient(opts...)
}

// newKadmClient is the default adminFactory, reusing a plain kgo.Client
// under the kadm wrapper.
func newKadmClient(cfg *Config) (kadmClient, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(splitBootstrap(cfg.BrokerBootstrap())...),
		kgo.ClientID(cfg.AdminClientID() + "-admin"),
	}
	if mech := saslMechanism(cfg); mech != nil {
		opts = append(opts, kgo.SASL(mech))
	}
	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	return kadm.NewClient(cl), nil
}

func saslMechanism(cfg *Config) sasl.Mechanism {
	if cfg.SASLUsername() == "" {
		return nil
	}
	return plain.Auth{User: cfg.SASLUsername(), Pass: cfg.SASLPassword()}.AsMechanism()
}

func splitBootstrap(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, trimSpaceASCII(s[start:i]))
			}
			start = i + 1
		}
	}
	return out
}

func trimSpaceASCII(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}

func acksToKgo(a Acks) kgo.Acks {
	switch a {
	case AcksNone:
		return kgo.NoAck()
	case AcksLeader:
		return kgo.LeaderAck()
	default:
		return kgo.AllISRAcks()
	}
}

func compressionToKgo(c Compression) []kgo.CompressionCodec {
	switch c {
	case CompressionGzip:
		return []kgo.CompressionCodec{kgo.GzipCompression()}
	case CompressionSnappy:
		return []kgo.CompressionCodec{kgo.SnappyCompression()}
	case CompressionLZ4:
		return []kgo.CompressionCodec{kgo.Lz4Compression()}
	case CompressionZstd:
		return []kgo.CompressionCodec{kgo.ZstdCompression()}
	default:
		return []kgo.CompressionCodec{kgo.NoCompression()}
	}
}

