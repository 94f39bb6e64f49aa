// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package h2k implements a write-ahead-log replication endpoint that
// transforms committed row edits into JSON documents and publishes them
// to Kafka, one document per source row-key per WAL batch.
//
// # Overview
//
// A host replication framework streams batches of WalEntry values to
// ReplicationEndpoint.Replicate. Each entry's cells are grouped by
// row-key without copying the underlying byte slices (RowKeyView),
// decoded through a Decoder (RawDecoder passthrough or schema-typed TypedDecoder),
// assembled into an ordered payload (PayloadAssembler), serialized to
// JSON, and handed to a Kafka producer. Outstanding sends are tracked by
// a BatchSender that enforces a bounded in-flight window and a single
// batch-wide flush deadline. Target topics are created on demand by a
// TopicEnsurer that caches positive results and backs off on ambiguous
// admin-API outcomes.
//
// # Quick start
//
//	cfg, err := h2k.NewConfigBuilder().
//		BrokerBootstrap("localhost:9092").
//		TopicPattern("${table}").
//		Build()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ep := h2k.NewReplicationEndpoint(cfg, h2k.NopLogger)
//	if err := ep.Start(context.Background()); err != nil {
//		log.Fatal(err)
//	}
//	defer ep.Stop(context.Background())
//
//	ok := ep.Replicate(context.Background(), batch)
//
// # Decode modes
//
// decode.mode="raw" passes column values through unchanged;
// decode.mode="typed" requires schema.path and converts values per the
// declared Phoenix-style type name (VARCHAR, BIGINT, DECIMAL, TIMESTAMP,
// T ARRAY, ...), caching the resolved type per column.
//
// # Delivery guarantees
//
// BatchSender.Flush (strict) waits for every outstanding send against a
// single deadline computed once at the start of the call; failure never
// clears the pending buffer, so a retried batch does not lose track of
// unconfirmed sends. ReplicationEndpoint.Replicate performs this strict
// flush at the end of every batch and returns false on any failure so
// the host resubmits.
//
// # Thread safety
//
// ReplicationEndpoint is safe for the host's normal single-goroutine-
// per-invocation usage described in the host framework's contract: the
// producer, topic ensurer, schema snapshot and column-type cache are
// safe for concurrent readers across invocations. Row-grouping state is
// local to each Replicate call, but the BatchSender is built once by
// Start and shared by every Replicate call until Stop; it is not safe
// for concurrent use, so concurrent Replicate calls share one unguarded
// sender.
package h2k
