// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/franz-go/pkg/kerr"
)

const topicNameMaxLen = 249

// topicEnsurerMetrics holds the process-wide counters from §4.6's
// State: ensure.invocations, ensure.cache.hit, exists.{true,false,
// unknown}, create.{ok,race,fail}. Shared across every TopicEnsurer
// instance via a package-level sync.Once so that constructing more than
// one ensurer in a process (every long-running host does this at most
// once, but tests construct many) never double-registers a collector.
type topicEnsurerMetrics struct {
	invocations prometheus.Counter
	cacheHits   prometheus.Counter
	exists      *prometheus.CounterVec
	creates     *prometheus.CounterVec
}

var (
	sharedTopicEnsurerMetrics     *topicEnsurerMetrics
	sharedTopicEnsurerMetricsOnce sync.Once
)

// topicEnsurerMetricsInstance returns the shared counter set, registering
// it lazily on first use.
func topicEnsurerMetricsInstance() *topicEnsurerMetrics {
	sharedTopicEnsurerMetricsOnce.Do(func() {
		sharedTopicEnsurerMetrics = &topicEnsurerMetrics{
			invocations: promauto.NewCounter(prometheus.CounterOpts{
				Name: "h2k_topic_ensure_invocations_total",
				Help: "EnsureTopic/EnsureTopics calls per topic.",
			}),
			cacheHits: promauto.NewCounter(prometheus.CounterOpts{
				Name: "h2k_topic_ensure_cache_hit_total",
				Help: "Calls served from the ensured-topic cache without an admin round trip.",
			}),
			exists: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "h2k_topic_exists_total",
				Help: "Topic existence classifications by outcome.",
			}, []string{"outcome"}),
			creates: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "h2k_topic_create_total",
				Help: "Topic creation attempts by outcome.",
			}, []string{"outcome"}),
		}
	})
	return sharedTopicEnsurerMetrics
}

// isValidTopicName checks Kafka's topic-name rules: length 1..249,
// charset [a-zA-Z0-9._-], and neither "." nor "..".
func isValidTopicName(t string) bool {
	n := len(t)
	if n == 0 || n > topicNameMaxLen {
		return false
	}
	if t == "." || t == ".." {
		return false
	}
	for i := 0; i < n; i++ {
		c := t[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

// TopicEnsurer checks for and, if missing, creates Kafka topics,
// applying per-topic configs from Config only at creation time. It
// never alters an already-existing topic's partitions, replication
// factor, or configs.
type TopicEnsurer struct {
	admin        kadmClient
	adminTimeout time.Duration
	partitions   int32
	replication  int16
	topicConfigs map[string]string
	backoff      time.Duration
	logger       Logger
	metrics      *topicEnsurerMetrics

	mu           sync.Mutex
	ensured      map[string]struct{}
	unknownUntil map[string]time.Time
}

// NewTopicEnsurer returns nil, matching the teacher's
// createIfEnabled(cfg)==null pattern, when topic.ensure is false or
// the bootstrap list is empty.
func NewTopicEnsurer(cfg *Config, admin kadmClient, logger Logger) *TopicEnsurer {
	if !cfg.TopicEnsure() || cfg.BrokerBootstrap() == "" {
		return nil
	}
	partitions := cfg.TopicPartitions()
	if partitions < 1 {
		partitions = 1
	}
	replication := cfg.TopicReplication()
	if replication < 1 {
		replication = 1
	}
	return &TopicEnsurer{
		admin:        admin,
		adminTimeout: time.Duration(cfg.AdminTimeoutMs()) * time.Millisecond,
		partitions:   partitions,
		replication:  replication,
		topicConfigs: cfg.TopicConfig(),
		backoff:      time.Duration(cfg.TopicUnknownBackoffMs()) * time.Millisecond,
		logger:       logger,
		metrics:      topicEnsurerMetricsInstance(),
		ensured:      make(map[string]struct{}),
		unknownUntil: make(map[string]time.Time),
	}
}

// markEnsured records t as verified/created and clears any backoff.
func (e *TopicEnsurer) markEnsured(t string) {
	e.mu.Lock()
	e.ensured[t] = struct{}{}
	delete(e.unknownUntil, t)
	e.mu.Unlock()
}

func (e *TopicEnsurer) fastCacheHit(t string) bool {
	e.mu.Lock()
	_, ok := e.ensured[t]
	e.mu.Unlock()
	return ok
}

// respectBackoffIfAny reports whether t is still within its
// unknown-state backoff window.
func (e *TopicEnsurer) respectBackoffIfAny(t string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	until, ok := e.unknownUntil[t]
	if !ok {
		return false
	}
	if time.Now().Before(until) {
		return true
	}
	delete(e.unknownUntil, t)
	return false
}

// scheduleUnknown sets a ~20%-jittered backoff window for t, jittered
// via crypto/rand rejection sampling to avoid thundering-herd retries.
func (e *TopicEnsurer) scheduleUnknown(t string) {
	jitter := e.backoff / 5
	if jitter <= 0 {
		jitter = time.Millisecond
	}
	delta := randomJitter(jitter)
	delay := e.backoff + delta
	if delay < time.Millisecond {
		delay = time.Millisecond
	}
	e.mu.Lock()
	e.unknownUntil[t] = time.Now().Add(delay)
	e.mu.Unlock()
}

// randomJitter returns a uniform value in [-span, +span] using
// crypto/rand with rejection sampling, avoiding math/rand's modulo
// bias.
func randomJitter(span time.Duration) time.Duration {
	n := big.NewInt(2*int64(span) + 1)
	v, err := rand.Int(rand.Reader, n)
	if err != nil {
		return 0
	}
	return time.Duration(v.Int64()) - span
}

// EnsureTopic checks for, and if missing creates, a single topic. It
// never returns an error; failures are logged and leave the topic
// outside the ensured cache so a later call retries.
func (e *TopicEnsurer) EnsureTopic(ctx context.Context, topic string) {
	if e == nil {
		return
	}
	t := topic
	if t == "" {
		logAt(e.logger, LogLevelWarn, "topic ensurer: empty topic name, skipping")
		return
	}
	if !isValidTopicName(t) {
		logAt(e.logger, LogLevelWarn, "topic ensurer: invalid topic name", "topic", t)
		return
	}
	e.metrics.invocations.Inc()
	if e.fastCacheHit(t) {
		e.metrics.cacheHits.Inc()
		return
	}
	if e.respectBackoffIfAny(t) {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, e.adminTimeout)
	defer cancel()

	exists, unknown := e.topicExists(ctx, t)
	switch {
	case exists:
		e.markEnsured(t)
	case unknown:
		e.scheduleUnknown(t)
	default:
		e.tryCreateTopic(ctx, t)
	}
}

// EnsureTopicOk is EnsureTopic plus a definite existence verdict.
func (e *TopicEnsurer) EnsureTopicOk(ctx context.Context, topic string) bool {
	if e == nil {
		return false
	}
	if e.fastCacheHit(topic) {
		return true
	}
	e.EnsureTopic(ctx, topic)
	return e.fastCacheHit(topic)
}

// topicExists describes topic and classifies the result as exists,
// definitively missing, or unknown (timeout/ACL/network).
func (e *TopicEnsurer) topicExists(ctx context.Context, topic string) (exists, unknown bool) {
	details, err := e.admin.ListTopics(ctx, topic)
	if err != nil {
		logAt(e.logger, LogLevelWarn, "topic ensurer: describe failed", "topic", topic, "err", err)
		e.metrics.exists.WithLabelValues("unknown").Inc()
		return false, true
	}
	detail, ok := details[topic]
	if !ok {
		e.metrics.exists.WithLabelValues("unknown").Inc()
		return false, true
	}
	if detail.Err == nil {
		e.metrics.exists.WithLabelValues("true").Inc()
		return true, false
	}
	if errors.Is(detail.Err, kerr.UnknownTopicOrPartition) {
		e.metrics.exists.WithLabelValues("false").Inc()
		return false, false
	}
	logAt(e.logger, LogLevelWarn, "topic ensurer: describe error", "topic", topic, "err", detail.Err)
	e.metrics.exists.WithLabelValues("unknown").Inc()
	return false, true
}

func (e *TopicEnsurer) tryCreateTopic(ctx context.Context, topic string) {
	cfg := topicConfigPointers(e.topicConfigs)
	resp, err := e.admin.CreateTopics(ctx, e.partitions, e.replication, cfg, topic)
	if err != nil {
		logAt(e.logger, LogLevelWarn, "topic ensurer: create failed", "topic", topic, "err", err)
		e.metrics.creates.WithLabelValues("fail").Inc()
		return
	}
	r, ok := resp[topic]
	if !ok {
		logAt(e.logger, LogLevelWarn, "topic ensurer: create returned no result", "topic", topic)
		e.metrics.creates.WithLabelValues("fail").Inc()
		return
	}
	if r.Err == nil {
		e.markEnsured(topic)
		e.metrics.creates.WithLabelValues("ok").Inc()
		logAt(e.logger, LogLevelInfo, "topic ensurer: created topic", "topic", topic, "partitions", e.partitions, "replication", e.replication)
		return
	}
	if errors.Is(r.Err, kerr.TopicAlreadyExists) {
		e.markEnsured(topic)
		e.metrics.creates.WithLabelValues("race").Inc()
		logAt(e.logger, LogLevelDebug, "topic ensurer: topic created concurrently", "topic", topic)
		return
	}
	logAt(e.logger, LogLevelWarn, "topic ensurer: create error", "topic", topic, "err", r.Err)
	e.metrics.creates.WithLabelValues("fail").Inc()
}

// EnsureTopics checks/creates multiple topics with minimal round
// trips: one batch describe, then one batch create for whatever is
// still missing.
func (e *TopicEnsurer) EnsureTopics(ctx context.Context, topics []string) {
	if e == nil || len(topics) == 0 {
		return
	}
	toCheck := e.normalizeCandidates(topics)
	if len(toCheck) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, e.adminTimeout)
	defer cancel()

	details, err := e.admin.ListTopics(ctx, toCheck...)
	if err != nil {
		for _, t := range toCheck {
			e.scheduleUnknown(t)
		}
		logAt(e.logger, LogLevelWarn, "topic ensurer: batch describe failed", "err", err)
		return
	}

	var missing []string
	for _, t := range toCheck {
		detail, ok := details[t]
		switch {
		case ok && detail.Err == nil:
			e.markEnsured(t)
			e.metrics.exists.WithLabelValues("true").Inc()
		case ok && errors.Is(detail.Err, kerr.UnknownTopicOrPartition):
			missing = append(missing, t)
			e.metrics.exists.WithLabelValues("false").Inc()
		default:
			e.scheduleUnknown(t)
			e.metrics.exists.WithLabelValues("unknown").Inc()
		}
	}
	if len(missing) == 0 {
		return
	}

	cfg := topicConfigPointers(e.topicConfigs)
	resp, err := e.admin.CreateTopics(ctx, e.partitions, e.replication, cfg, missing...)
	if err != nil {
		logAt(e.logger, LogLevelWarn, "topic ensurer: batch create failed", "err", err)
		for range missing {
			e.metrics.creates.WithLabelValues("fail").Inc()
		}
		return
	}
	for _, t := range missing {
		r, ok := resp[t]
		switch {
		case ok && r.Err == nil:
			e.markEnsured(t)
			e.metrics.creates.WithLabelValues("ok").Inc()
			logAt(e.logger, LogLevelInfo, "topic ensurer: created topic", "topic", t, "partitions", e.partitions, "replication", e.replication)
		case ok && errors.Is(r.Err, kerr.TopicAlreadyExists):
			e.markEnsured(t)
			e.metrics.creates.WithLabelValues("race").Inc()
		default:
			logAt(e.logger, LogLevelWarn, "topic ensurer: batch create error", "topic", t)
			e.metrics.creates.WithLabelValues("fail").Inc()
		}
	}
}

func (e *TopicEnsurer) normalizeCandidates(topics []string) []string {
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))
	for _, raw := range topics {
		t := raw
		if t == "" {
			continue
		}
		if !isValidTopicName(t) {
			logAt(e.logger, LogLevelWarn, "topic ensurer: invalid topic name", "topic", t)
			continue
		}
		e.metrics.invocations.Inc()
		if e.fastCacheHit(t) {
			e.metrics.cacheHits.Inc()
			continue
		}
		if e.respectBackoffIfAny(t) {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func topicConfigPointers(m map[string]string) map[string]*string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]*string, len(m))
	for k, v := range m {
		v := v
		out[k] = &v
	}
	return out
}

// Close releases the underlying admin client.
func (e *TopicEnsurer) Close() {
	if e == nil || e.admin == nil {
		return
	}
	e.admin.Close()
}
