// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import (
	"context"
	"errors"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/franz-go/pkg/kgo"
)

// counterValue reads a prometheus.Counter's current value directly via
// its Write method, avoiding a test-only package dependency from
// production code.
func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// sendHandle is the completion handle for one produced record. The
// producer's promise callback records the outcome and closes done once;
// every later wait, including one from a retried flush, returns that
// same outcome. A wait that outlives its deadline returns ErrTimeout.
type sendHandle struct {
	done chan struct{}
	err  error
}

func newSendHandle() *sendHandle {
	return &sendHandle{done: make(chan struct{})}
}

func (h *sendHandle) complete(err error) {
	h.err = err
	close(h.done)
}

func (h *sendHandle) wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return errors.Join(ErrTimeout, ctx.Err())
	}
}

type batchSenderMetrics struct {
	confirmed prometheus.Counter
	flushes   prometheus.Counter
	failures  prometheus.Counter
}

func newBatchSenderMetrics() *batchSenderMetrics {
	return &batchSenderMetrics{
		confirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "h2k_batch_confirmed_total",
			Help: "Records confirmed by the broker across successful flushes.",
		}),
		flushes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "h2k_batch_flushes_total",
			Help: "Successful flush/tryFlush calls.",
		}),
		failures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "h2k_batch_flush_failures_total",
			Help: "Failed flush/tryFlush calls.",
		}),
	}
}

// BatchSender accumulates send completion handles and periodically
// waits for broker confirmation, bounding in-flight records without
// blocking every single produce call. Not safe for concurrent use by
// more than one goroutine; intended for a single owner per batch.
type BatchSender struct {
	awaitEvery     int
	awaitTimeout   time.Duration
	debugOnFailure bool
	logger         Logger

	pending []*sendHandle

	autoFlushSuspended bool
	metrics            *batchSenderMetrics
}

// NewBatchSender builds a sender with counters disabled.
func NewBatchSender(awaitEvery int, awaitTimeout time.Duration, logger Logger) (*BatchSender, error) {
	return newBatchSender(awaitEvery, awaitTimeout, false, false, logger)
}

// NewBatchSenderWithCounters builds a sender with prometheus counters
// enabled, and optionally logs the cause of quiet-flush failures at
// debug level.
func NewBatchSenderWithCounters(awaitEvery int, awaitTimeout time.Duration, debugOnFailure bool, logger Logger) (*BatchSender, error) {
	return newBatchSender(awaitEvery, awaitTimeout, true, debugOnFailure, logger)
}

func newBatchSender(awaitEvery int, awaitTimeout time.Duration, enableCounters, debugOnFailure bool, logger Logger) (*BatchSender, error) {
	if awaitEvery <= 0 {
		return nil, errors.Join(ErrConfiguration, errors.New("awaitEvery must be > 0"))
	}
	if awaitTimeout <= 0 {
		return nil, errors.Join(ErrConfiguration, errors.New("awaitTimeout must be > 0"))
	}
	bs := &BatchSender{
		awaitEvery:     awaitEvery,
		awaitTimeout:   awaitTimeout,
		debugOnFailure: debugOnFailure,
		logger:         logger,
		pending:        make([]*sendHandle, 0, awaitEvery),
	}
	if enableCounters {
		bs.metrics = newBatchSenderMetrics()
	}
	return bs, nil
}

// send issues client.Produce for rec and returns the handle tracking
// its completion; the handle is also appended to the pending buffer.
// onComplete, if non-nil, runs before the handle is marked done so
// callers can observe the per-record outcome (e.g. to dispatch an
// event) without racing Flush/TryFlush.
func (b *BatchSender) send(ctx context.Context, client kafkaClient, rec *kgo.Record, onComplete func(error)) *sendHandle {
	h := newSendHandle()
	client.Produce(ctx, rec, func(_ *kgo.Record, err error) {
		if onComplete != nil {
			onComplete(err)
		}
		h.complete(err)
	})
	b.Add(h)
	return h
}

// Add appends h to the pending buffer. When the buffer reaches
// awaitEvery, it quietly auto-flushes; a failed auto-flush suspends
// further auto-flushing until the next successful Flush/TryFlush.
func (b *BatchSender) Add(h *sendHandle) {
	if h == nil {
		return
	}
	b.pending = append(b.pending, h)
	if len(b.pending) >= b.awaitEvery && !b.autoFlushSuspended {
		if !b.quietFlush("add") {
			b.autoFlushSuspended = true
		}
	}
}

// AddAll appends a batch of handles, auto-flushing whenever the
// threshold is crossed partway through.
func (b *BatchSender) AddAll(hs []*sendHandle) {
	if len(hs) == 0 {
		return
	}
	for _, h := range hs {
		b.Add(h)
	}
}

// PendingCount returns the number of unconfirmed handles buffered.
func (b *BatchSender) PendingCount() int { return len(b.pending) }

// HasPending reports whether any handles are buffered.
func (b *BatchSender) HasPending() bool { return len(b.pending) > 0 }

// AwaitEvery returns the pending-count threshold that triggers a quiet
// auto-flush.
func (b *BatchSender) AwaitEvery() int { return b.awaitEvery }

// AwaitTimeoutMs returns the shared deadline applied to one flush, in
// milliseconds.
func (b *BatchSender) AwaitTimeoutMs() int64 { return b.awaitTimeout.Milliseconds() }

// AutoFlushSuspended reports whether a failed auto-flush has disabled
// further threshold-triggered auto-flushing until the next explicit,
// successful Flush/TryFlush.
func (b *BatchSender) AutoFlushSuspended() bool { return b.autoFlushSuspended }

// Confirmed returns the number of records confirmed across successful
// flushes. Zero when counters are disabled (NewBatchSender).
func (b *BatchSender) Confirmed() float64 {
	if b.metrics == nil {
		return 0
	}
	return counterValue(b.metrics.confirmed)
}

// Flushes returns the number of successful Flush/TryFlush calls. Zero
// when counters are disabled (NewBatchSender).
func (b *BatchSender) Flushes() float64 {
	if b.metrics == nil {
		return 0
	}
	return counterValue(b.metrics.flushes)
}

// FailedFlushes returns the number of failed Flush/TryFlush calls. Zero
// when counters are disabled (NewBatchSender).
func (b *BatchSender) FailedFlushes() float64 {
	if b.metrics == nil {
		return 0
	}
	return counterValue(b.metrics.failures)
}

func (b *BatchSender) waitAll() error {
	if len(b.pending) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.awaitTimeout)
	defer cancel()
	for _, h := range b.pending {
		if h == nil {
			continue
		}
		if err := h.wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Flush strictly waits for every buffered handle with one shared
// deadline, returning the first error encountered. The buffer is left
// intact on failure, so a retried Flush observes the same error again
// for a handle that already failed.
func (b *BatchSender) Flush() error {
	n := len(b.pending)
	if n == 0 {
		return nil
	}
	if err := b.waitAll(); err != nil {
		if b.metrics != nil {
			b.metrics.failures.Inc()
		}
		return err
	}
	b.pending = b.pending[:0]
	b.autoFlushSuspended = false
	if b.metrics != nil {
		b.metrics.flushes.Inc()
		b.metrics.confirmed.Add(float64(n))
	}
	return nil
}

// TryFlush waits as Flush does but never returns an error: it reports
// success as a bool, leaving the buffer intact on failure.
func (b *BatchSender) TryFlush() bool {
	return b.quietFlush("tryFlush")
}

func (b *BatchSender) quietFlush(where string) bool {
	n := len(b.pending)
	if n == 0 {
		return true
	}
	if err := b.waitAll(); err != nil {
		if b.metrics != nil {
			b.metrics.failures.Inc()
		}
		if b.debugOnFailure {
			logAt(b.logger, LogLevelDebug, "batch sender: quiet flush failed", "where", where, "pending", n, "err", err)
		}
		return false
	}
	b.pending = b.pending[:0]
	b.autoFlushSuspended = false
	if b.metrics != nil {
		b.metrics.flushes.Inc()
		b.metrics.confirmed.Add(float64(n))
	}
	return true
}

// FlushUpToFirstFailure waits sequentially for each buffered handle
// and returns the number confirmed before the first failure. The
// buffer is never mutated by this call; it exists for diagnostics.
func (b *BatchSender) FlushUpToFirstFailure() (int, error) {
	if len(b.pending) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.awaitTimeout)
	defer cancel()
	ok := 0
	for _, h := range b.pending {
		if h == nil {
			continue
		}
		if err := h.wait(ctx); err != nil {
			if b.debugOnFailure {
				logAt(b.logger, LogLevelDebug, "batch sender: first failure", "confirmed", ok, "err", err)
			}
			return ok, err
		}
		ok++
	}
	return ok, nil
}

// Close performs a strict Flush, matching the teacher's
// try-with-resources-equivalent pattern of a final blocking drain.
func (b *BatchSender) Close() error {
	return b.Flush()
}
