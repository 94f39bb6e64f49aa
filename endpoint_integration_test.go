// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

//go:build integration

package h2k_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/twmb/franz-go/pkg/kgo"

	h2k "github.com/qazmarka/h2k-kafka"
)

const recordConsumeWait = 10 * time.Second

// setupKafka starts a Kafka broker in a container and returns its
// bootstrap address. Skipped in short-test mode since it needs Docker.
func setupKafka(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := kafka.Run(ctx, "confluentinc/confluent-local:7.8.0", kafka.WithClusterID("h2k-test-cluster"))
	require.NoError(t, err, "failed to start Kafka container")
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	require.NoError(t, waitForKafka(ctx, t, brokers[0]))
	return brokers[0]
}

func waitForKafka(ctx context.Context, t *testing.T, broker string) error {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		client, err := kgo.NewClient(kgo.SeedBrokers(broker), kgo.RequestTimeoutOverhead(5*time.Second))
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			pingErr := client.Ping(pingCtx)
			cancel()
			client.Close()
			if pingErr == nil {
				return nil
			}
		}
		time.Sleep(time.Second)
	}
	return context.DeadlineExceeded
}

func consumeRecords(t *testing.T, broker, topic string, timeout time.Duration) []*kgo.Record {
	t.Helper()
	client, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var records []*kgo.Record
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		fetches := client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			break
		}
		fetches.EachRecord(func(r *kgo.Record) { records = append(records, r) })
		if len(records) > 0 {
			time.Sleep(300 * time.Millisecond)
			client.PollFetches(ctx).EachRecord(func(r *kgo.Record) { records = append(records, r) })
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	return records
}

// TestIntegration_ReplicateToRealBroker exercises the endpoint against a
// real Kafka broker: one batch with two rows in one family should
// produce two records to the derived topic.
func TestIntegration_ReplicateToRealBroker(t *testing.T) {
	t.Parallel()
	broker := setupKafka(t)

	cfg, err := h2k.NewConfigBuilder().
		BrokerBootstrap(broker).
		TopicPattern("h2k-it-${qualifier}").
		TopicEnsure(true).
		Build()
	require.NoError(t, err)

	ep := h2k.NewReplicationEndpoint(cfg, h2k.NopLogger)
	require.NoError(t, ep.Start(context.Background()))
	defer ep.Stop(context.Background())

	entries := []h2k.WalEntry{
		{
			Table: h2k.TableName{Qualifier: "WIDGETS"},
			Cells: []h2k.Cell{
				{Row: []byte("row-1"), Family: []byte("0"), Qualifier: []byte("name"), Value: []byte("alpha"), Timestamp: 1},
				{Row: []byte("row-2"), Family: []byte("0"), Qualifier: []byte("name"), Value: []byte("beta"), Timestamp: 2},
			},
		},
	}

	ok := ep.Replicate(context.Background(), entries)
	require.True(t, ok)

	records := consumeRecords(t, broker, "h2k-it-WIDGETS", recordConsumeWait)
	require.Len(t, records, 2)
}

// TestIntegration_StartStopMultipleCycles mirrors the lifecycle-reuse
// scenario: an endpoint can be started, used, stopped, and started again.
func TestIntegration_StartStopMultipleCycles(t *testing.T) {
	t.Parallel()
	broker := setupKafka(t)

	cfg, err := h2k.NewConfigBuilder().
		BrokerBootstrap(broker).
		TopicPattern("h2k-it-lifecycle").
		TopicEnsure(true).
		Build()
	require.NoError(t, err)

	ep := h2k.NewReplicationEndpoint(cfg, h2k.NopLogger)

	require.NoError(t, ep.Start(context.Background()))
	entries := []h2k.WalEntry{{
		Table: h2k.TableName{Qualifier: "X"},
		Cells: []h2k.Cell{{Row: []byte("r1"), Family: []byte("0"), Qualifier: []byte("c"), Value: []byte("v1")}},
	}}
	require.True(t, ep.Replicate(context.Background(), entries))
	require.NoError(t, ep.Stop(context.Background()))

	require.NoError(t, ep.Start(context.Background()))
	entries[0].Cells[0].Value = []byte("v2")
	require.True(t, ep.Replicate(context.Background(), entries))
	require.NoError(t, ep.Stop(context.Background()))

	records := consumeRecords(t, broker, "h2k-it-lifecycle", recordConsumeWait)
	require.GreaterOrEqual(t, len(records), 2)
}
