// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/xmidt-org/eventor"
)

// ReplicateEvent reports the outcome of publishing one row to Kafka.
// Mirrors the teacher's PublishEvent so a host can observe per-row
// results without polling counters.
type ReplicateEvent struct {
	Table    TableName
	Topic    string
	RowKey   []byte
	Err      error
	Duration time.Duration
}

// rowGroup is one row's cells, keyed by the zero-copy view of its
// row-key for the duration of a single Replicate call.
type rowGroup struct {
	key   RowKeyView
	cells []Cell
}

// groupByRow groups cells by row-key, preserving first-seen row
// order. RowKeyView cannot be a native Go map key (it embeds a
// []byte), so grouping is done by hash bucket with an Equal()
// collision check, mirroring the teacher's hashCode/equals
// RowKeySlice used as a LinkedHashMap key.
func groupByRow(cells []Cell) []rowGroup {
	groups := make([]rowGroup, 0, len(cells))
	index := make(map[uint64][]int, len(cells))

	for _, cell := range cells {
		view := RowKeyWhole(cell.Row)
		bucket := index[view.Hash()]

		found := -1
		for _, gi := range bucket {
			if groups[gi].key.Equal(view) {
				found = gi
				break
			}
		}
		if found == -1 {
			groups = append(groups, rowGroup{key: view, cells: make([]Cell, 0, 8)})
			found = len(groups) - 1
			index[view.Hash()] = append(bucket, found)
		}
		groups[found].cells = append(groups[found].cells, cell)
	}
	return groups
}

// groupHasFreshFamilyCell reports whether group contains at least one
// cell of family with a timestamp at or after minTs. The wal-min-ts
// filter is a per-row decision, not a per-entry one: a single WAL
// entry can carry rows spanning both old and new writes, so each row
// group is judged on its own cells rather than the entry's WriteTime.
func groupHasFreshFamilyCell(group rowGroup, family []byte, minTs int64) bool {
	for _, cell := range group.cells {
		if bytes.Equal(cell.Family, family) && cell.Timestamp >= minTs {
			return true
		}
	}
	return false
}

// ReplicationEndpoint is the top-level WAL-to-Kafka pipeline: for each
// incoming batch it groups cells by row, assembles a JSON payload per
// row, ensures the target topic exists, and produces to Kafka with
// bounded in-flight confirmation waits.
type ReplicationEndpoint struct {
	cfg          *Config
	dynCfg       *DynamicConfigHolder
	logger       Logger
	clientFactory clientFactory
	adminFactory  adminFactory

	client   kafkaClient
	admin    kadmClient
	ensurer  *TopicEnsurer
	sender   *BatchSender
	assembler *PayloadAssembler
	schema   *SchemaRegistry

	started atomic.Bool
	mu      sync.Mutex

	replicateListeners eventor.Eventor[func(*ReplicateEvent)]
}

// NewReplicationEndpoint builds an endpoint from cfg using the
// production kgo/kadm client factories.
func NewReplicationEndpoint(cfg *Config, logger Logger) *ReplicationEndpoint {
	return newReplicationEndpoint(cfg, logger, newKgoClient, newKadmClient)
}

func newReplicationEndpoint(cfg *Config, logger Logger, cf clientFactory, af adminFactory) *ReplicationEndpoint {
	if logger == nil {
		logger = NopLogger
	}
	return &ReplicationEndpoint{
		cfg:           cfg,
		dynCfg:        NewDynamicConfigHolder(cfg),
		logger:        logger,
		clientFactory: cf,
		adminFactory:  af,
	}
}

// AddReplicateEventListener registers fn for every ReplicateEvent;
// the returned func unregisters it.
func (ep *ReplicationEndpoint) AddReplicateEventListener(fn func(*ReplicateEvent)) func() {
	return ep.replicateListeners.Add(fn)
}

func (ep *ReplicationEndpoint) dispatchEvent(ev *ReplicateEvent) {
	ep.replicateListeners.Visit(func(fn func(*ReplicateEvent)) {
		fn(ev)
	})
}

// Start builds the producer/admin clients and supporting components.
// Idempotent: a second call is a no-op.
func (ep *ReplicationEndpoint) Start(ctx context.Context) error {
	if !ep.started.CompareAndSwap(false, true) {
		return nil
	}

	client, err := ep.clientFactory(ep.cfg)
	if err != nil {
		ep.started.Store(false)
		return errors.Join(ErrFatal, err)
	}
	ep.client = client

	if ep.cfg.TopicEnsure() {
		admin, err := ep.adminFactory(ep.cfg)
		if err != nil {
			ep.started.Store(false)
			client.Close()
			return errors.Join(ErrConfiguration, err)
		}
		ep.admin = admin
		ep.ensurer = NewTopicEnsurer(ep.cfg, admin, ep.logger)
	}

	var decoder Decoder
	switch ep.cfg.DecodeMode() {
	case DecodeModeTyped:
		ep.schema = NewSchemaRegistry(ep.cfg.SchemaPath(), ep.logger)
		decoder = NewTypedDecoder(ep.schema, ep.logger)
	default:
		decoder = RawDecoder{}
	}
	ep.assembler = NewPayloadAssembler(decoder, ep.cfg)

	awaitEvery := ep.cfg.ProducerAwaitEvery()
	awaitTimeout := time.Duration(ep.cfg.ProducerAwaitTimeoutMs()) * time.Millisecond
	var sender *BatchSender
	if ep.cfg.ProducerCountersEnabled() {
		sender, err = NewBatchSenderWithCounters(awaitEvery, awaitTimeout, ep.cfg.ProducerDebugOnFailure(), ep.logger)
	} else {
		sender, err = NewBatchSender(awaitEvery, awaitTimeout, ep.logger)
	}
	if err != nil {
		ep.started.Store(false)
		client.Close()
		return err
	}
	ep.sender = sender

	logAt(ep.logger, LogLevelInfo, "endpoint started", "decodeMode", ep.cfg.DecodeMode(), "topicEnsure", ep.cfg.TopicEnsure())
	return nil
}

// Stop strictly flushes any pending sends and releases the clients.
// Idempotent: a second call is a no-op.
func (ep *ReplicationEndpoint) Stop(ctx context.Context) error {
	if !ep.started.CompareAndSwap(true, false) {
		return nil
	}

	var flushErr error
	if ep.sender != nil {
		flushErr = ep.sender.Flush()
	}
	if ep.ensurer != nil {
		ep.ensurer.Close()
	}
	if ep.client != nil {
		if err := ep.client.Flush(ctx); err != nil && flushErr == nil {
			flushErr = err
		}
		ep.client.Close()
	}
	return flushErr
}

// PeerUUID has no analog in the destination Kafka cluster's
// replication protocol, so it always returns the empty string,
// matching the original endpoint's null return under HBase 1.4.
func (ep *ReplicationEndpoint) PeerUUID() string { return "" }

// Replicate processes one batch of WAL entries: groups cells by row,
// assembles and produces a JSON record per row, and waits for
// confirmation of the whole batch before returning. Returns false
// (meaning: retry this batch) on any unrecoverable error, mirroring
// the original's boolean contract with HBase's replication source.
func (ep *ReplicationEndpoint) Replicate(ctx context.Context, entries []WalEntry) bool {
	if len(entries) == 0 {
		return true
	}
	if !ep.started.Load() {
		logAt(ep.logger, LogLevelError, "replicate called before Start")
		return false
	}

	dyn := ep.dynCfg.Load()

	for _, entry := range entries {
		topic := deriveTopicWithPattern(ep.cfg, dyn.TopicPattern, entry.Table)

		if ep.ensurer != nil {
			ep.ensurer.EnsureTopic(ctx, topic)
		}

		groups := groupByRow(entry.Cells)
		for _, group := range groups {
			if dyn.WalFilterOn && !groupHasFreshFamilyCell(group, ep.cfg.FamilyBytes(), dyn.WalMinTs) {
				continue
			}

			rk := group.key
			payload, err := ep.assembler.Build(entry.Table, group.cells, &rk, entry.SequenceID, entry.WriteTime)
			if err != nil {
				logAt(ep.logger, LogLevelWarn, "replicate: payload assembly failed", "table", entry.Table.String(), "err", err)
				return false
			}

			data, err := MarshalPayload(payload)
			if err != nil {
				logAt(ep.logger, LogLevelWarn, "replicate: marshal failed", "table", entry.Table.String(), "err", err)
				return false
			}

			rowKeyBytes := rk.ToBytes()
			rec := &kgo.Record{Topic: topic, Key: rowKeyBytes, Value: data}

			start := time.Now()
			ep.sender.send(ctx, ep.client, rec, func(sendErr error) {
				ep.dispatchEvent(&ReplicateEvent{
					Table:    entry.Table,
					Topic:    topic,
					RowKey:   rowKeyBytes,
					Err:      sendErr,
					Duration: time.Since(start),
				})
			})
		}
	}

	if err := ep.sender.Flush(); err != nil {
		logAt(ep.logger, LogLevelError, "replicate: flush failed", "err", err)
		return false
	}
	return true
}

// deriveTopicWithPattern mirrors Config.DeriveTopic but substitutes
// pattern for the static cfg.TopicPattern(), so DynamicConfig's
// hot-swapped pattern takes effect without rebuilding Config.
func deriveTopicWithPattern(cfg *Config, pattern string, table TableName) string {
	tmp := *cfg
	tmp.topicPattern = pattern
	return tmp.DeriveTopic(table)
}
