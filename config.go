// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// RowkeyEncoding selects how the row-key is rendered into the payload.
type RowkeyEncoding string

const (
	RowkeyHex    RowkeyEncoding = "hex"
	RowkeyBase64Encoding RowkeyEncoding = "base64"
)

// DecodeMode selects the value decoder.
type DecodeMode string

const (
	DecodeModeRaw   DecodeMode = "raw"
	DecodeModeTyped DecodeMode = "typed"
)

// Config is the immutable, validated configuration described in §4.8,
// extended with the ambient/domain additions from SPEC_FULL.md §10-§12.
// Build it with NewConfigBuilder; there is no exported constructor that
// bypasses validation.
type Config struct {
	brokerBootstrap string
	topicPattern    string
	topicMaxLength  int

	familyName string

	includeRowKey  bool
	rowkeyEncoding RowkeyEncoding

	includeMeta    bool
	includeMetaWal bool

	serializeNulls bool

	walMinTs    int64
	walFilterOn bool

	topicEnsure          bool
	topicPartitions      int32
	topicReplication     int16
	adminTimeoutMs       int64
	adminClientID        string
	topicUnknownBackoffMs int64
	topicConfig          map[string]string

	producerAwaitEvery         int
	producerAwaitTimeoutMs     int
	producerCountersEnabled    bool
	producerDebugOnFailure     bool

	decodeMode DecodeMode
	schemaPath string

	acks        Acks
	compression Compression

	rowkeyPKDecode    bool
	rowkeySalted      bool
	rowkeyPKSaltBytes int

	saslUsername string
	saslPassword string
}

// --- accessors used by the rest of the package ---

func (c *Config) BrokerBootstrap() string     { return c.brokerBootstrap }
func (c *Config) TopicPattern() string        { return c.topicPattern }
func (c *Config) TopicMaxLength() int         { return c.topicMaxLength }
func (c *Config) FamilyName() string          { return c.familyName }
func (c *Config) FamilyBytes() []byte         { return []byte(c.familyName) }
func (c *Config) IncludeRowKey() bool         { return c.includeRowKey }
func (c *Config) RowkeyBase64() bool          { return c.rowkeyEncoding == RowkeyBase64Encoding }
func (c *Config) IncludeMeta() bool           { return c.includeMeta }
func (c *Config) IncludeMetaWal() bool        { return c.includeMetaWal }
func (c *Config) SerializeNulls() bool        { return c.serializeNulls }
func (c *Config) WalFilterOn() bool           { return c.walFilterOn }
func (c *Config) WalMinTs() int64             { return c.walMinTs }
func (c *Config) TopicEnsure() bool           { return c.topicEnsure }
func (c *Config) TopicPartitions() int32      { return c.topicPartitions }
func (c *Config) TopicReplication() int16     { return c.topicReplication }
func (c *Config) AdminTimeoutMs() int64       { return c.adminTimeoutMs }
func (c *Config) AdminClientID() string       { return c.adminClientID }
func (c *Config) TopicUnknownBackoffMs() int64 { return c.topicUnknownBackoffMs }
func (c *Config) TopicConfig() map[string]string {
	out := make(map[string]string, len(c.topicConfig))
	for k, v := range c.topicConfig {
		out[k] = v
	}
	return out
}
func (c *Config) ProducerAwaitEvery() int       { return c.producerAwaitEvery }
func (c *Config) ProducerAwaitTimeoutMs() int   { return c.producerAwaitTimeoutMs }
func (c *Config) ProducerCountersEnabled() bool { return c.producerCountersEnabled }
func (c *Config) ProducerDebugOnFailure() bool  { return c.producerDebugOnFailure }
func (c *Config) DecodeMode() DecodeMode        { return c.decodeMode }
func (c *Config) SchemaPath() string            { return c.schemaPath }
func (c *Config) Acks() Acks                    { return c.acks }
func (c *Config) Compression() Compression       { return c.compression }
func (c *Config) PKDecode() bool                { return c.rowkeyPKDecode }
func (c *Config) RowkeySalted() bool            { return c.rowkeySalted }
func (c *Config) RowkeySaltBytes() int          { return c.rowkeyPKSaltBytes }
func (c *Config) SASLUsername() string          { return c.saslUsername }
func (c *Config) SASLPassword() string          { return c.saslPassword }

// DeriveTopic expands topicPattern's ${table}/${namespace}/${qualifier}
// placeholders for table, sanitizes disallowed characters to '_', and
// truncates to topicMaxLength, per §4.8.
func (c *Config) DeriveTopic(table TableName) string {
	repl := strings.NewReplacer(
		"${table}", table.Namespace+"_"+table.Qualifier,
		"${namespace}", table.Namespace,
		"${qualifier}", table.Qualifier,
	)
	name := repl.Replace(c.topicPattern)
	name = sanitizeTopicName(name)
	if len(name) > c.topicMaxLength {
		name = name[:c.topicMaxLength]
	}
	return name
}

func sanitizeTopicName(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// ConfigBuilder builds a validated Config. Construct it with
// NewConfigBuilder, which seeds the defaults documented in §4.8; the
// zero value carries none of them.
type ConfigBuilder struct {
	cfg Config
	set map[string]bool
}

// NewConfigBuilder returns a builder pre-seeded with every default from
// §4.8.
func NewConfigBuilder() *ConfigBuilder {
	b := &ConfigBuilder{set: map[string]bool{}}
	b.cfg = Config{
		topicPattern:          "${table}",
		topicMaxLength:        249,
		familyName:            "0",
		includeRowKey:         true,
		rowkeyEncoding:        RowkeyHex,
		includeMeta:           false,
		includeMetaWal:        false,
		serializeNulls:        false,
		topicEnsure:           false,
		topicPartitions:       3,
		topicReplication:      1,
		adminTimeoutMs:        60000,
		topicUnknownBackoffMs: 15000,
		topicConfig:           map[string]string{},
		producerAwaitEvery:       500,
		producerAwaitTimeoutMs:   180000,
		producerCountersEnabled:  false,
		producerDebugOnFailure:   false,
		decodeMode:               DecodeModeRaw,
		acks:                     AcksAll,
		compression:              CompressionNone,
	}
	return b
}

func (b *ConfigBuilder) BrokerBootstrap(v string) *ConfigBuilder {
	b.cfg.brokerBootstrap = v
	return b
}
func (b *ConfigBuilder) TopicPattern(v string) *ConfigBuilder {
	b.cfg.topicPattern = v
	return b
}
func (b *ConfigBuilder) TopicMaxLength(v int) *ConfigBuilder {
	b.cfg.topicMaxLength = v
	return b
}
func (b *ConfigBuilder) FamilyName(v string) *ConfigBuilder {
	b.cfg.familyName = v
	return b
}
func (b *ConfigBuilder) IncludeRowKey(v bool) *ConfigBuilder {
	b.cfg.includeRowKey = v
	return b
}
func (b *ConfigBuilder) RowkeyEncoding(v RowkeyEncoding) *ConfigBuilder {
	b.cfg.rowkeyEncoding = v
	return b
}
func (b *ConfigBuilder) IncludeMeta(v bool) *ConfigBuilder {
	b.cfg.includeMeta = v
	return b
}
func (b *ConfigBuilder) IncludeMetaWal(v bool) *ConfigBuilder {
	b.cfg.includeMetaWal = v
	return b
}
func (b *ConfigBuilder) SerializeNulls(v bool) *ConfigBuilder {
	b.cfg.serializeNulls = v
	return b
}
func (b *ConfigBuilder) WalMinTs(v int64) *ConfigBuilder {
	b.cfg.walMinTs = v
	b.cfg.walFilterOn = true
	return b
}
func (b *ConfigBuilder) TopicEnsure(v bool) *ConfigBuilder {
	b.cfg.topicEnsure = v
	return b
}
func (b *ConfigBuilder) TopicPartitions(v int32) *ConfigBuilder {
	b.cfg.topicPartitions = v
	return b
}
func (b *ConfigBuilder) TopicReplication(v int16) *ConfigBuilder {
	b.cfg.topicReplication = v
	return b
}
func (b *ConfigBuilder) AdminTimeoutMs(v int64) *ConfigBuilder {
	b.cfg.adminTimeoutMs = v
	return b
}
func (b *ConfigBuilder) AdminClientID(v string) *ConfigBuilder {
	b.cfg.adminClientID = v
	b.set["adminClientID"] = true
	return b
}
func (b *ConfigBuilder) TopicUnknownBackoffMs(v int64) *ConfigBuilder {
	b.cfg.topicUnknownBackoffMs = v
	return b
}
func (b *ConfigBuilder) TopicConfigEntry(key, value string) *ConfigBuilder {
	b.cfg.topicConfig[key] = value
	return b
}
func (b *ConfigBuilder) ProducerAwaitEvery(v int) *ConfigBuilder {
	b.cfg.producerAwaitEvery = v
	return b
}
func (b *ConfigBuilder) ProducerAwaitTimeoutMs(v int) *ConfigBuilder {
	b.cfg.producerAwaitTimeoutMs = v
	return b
}
func (b *ConfigBuilder) ProducerCountersEnabled(v bool) *ConfigBuilder {
	b.cfg.producerCountersEnabled = v
	return b
}
func (b *ConfigBuilder) ProducerDebugOnFailure(v bool) *ConfigBuilder {
	b.cfg.producerDebugOnFailure = v
	return b
}
func (b *ConfigBuilder) DecodeMode(v DecodeMode) *ConfigBuilder {
	b.cfg.decodeMode = v
	return b
}
func (b *ConfigBuilder) SchemaPath(v string) *ConfigBuilder {
	b.cfg.schemaPath = v
	return b
}
func (b *ConfigBuilder) Acks(v Acks) *ConfigBuilder {
	b.cfg.acks = v
	return b
}
func (b *ConfigBuilder) Compression(v Compression) *ConfigBuilder {
	b.cfg.compression = v
	return b
}
func (b *ConfigBuilder) RowkeyPKDecode(v bool, salted bool, saltBytes int) *ConfigBuilder {
	b.cfg.rowkeyPKDecode = v
	b.cfg.rowkeySalted = salted
	b.cfg.rowkeyPKSaltBytes = saltBytes
	return b
}
func (b *ConfigBuilder) SASL(username, password string) *ConfigBuilder {
	b.cfg.saslUsername = username
	b.cfg.saslPassword = password
	return b
}

// Build validates and returns the Config, or an error wrapping
// ErrConfiguration describing every violation found.
func (b *ConfigBuilder) Build() (*Config, error) {
	cfg := b.cfg

	var errs []string
	if strings.TrimSpace(cfg.brokerBootstrap) == "" {
		errs = append(errs, "broker.bootstrap must be non-empty")
	}
	if cfg.topicMaxLength <= 0 {
		errs = append(errs, "topic.max-length must be > 0")
	}
	if cfg.topicPartitions <= 0 {
		errs = append(errs, "topic.partitions must be > 0")
	}
	if cfg.topicReplication <= 0 {
		errs = append(errs, "topic.replication must be > 0")
	}
	if cfg.adminTimeoutMs <= 0 {
		errs = append(errs, "admin.timeout-ms must be > 0")
	}
	if cfg.topicUnknownBackoffMs <= 0 {
		errs = append(errs, "topic.unknown-backoff-ms must be > 0")
	}
	if cfg.producerAwaitEvery <= 0 {
		errs = append(errs, "producer.await.every must be > 0")
	}
	if cfg.producerAwaitTimeoutMs <= 0 {
		errs = append(errs, "producer.await.timeout-ms must be > 0")
	}
	if cfg.decodeMode != DecodeModeRaw && cfg.decodeMode != DecodeModeTyped {
		errs = append(errs, fmt.Sprintf("decode.mode %q invalid: must be 'raw' or 'typed'", cfg.decodeMode))
	}
	if cfg.decodeMode == DecodeModeTyped && strings.TrimSpace(cfg.schemaPath) == "" {
		errs = append(errs, "schema.path is required when decode.mode=typed")
	}
	if cfg.rowkeyEncoding != RowkeyHex && cfg.rowkeyEncoding != RowkeyBase64Encoding {
		cfg.rowkeyEncoding = RowkeyHex
	}
	if err := validateAcks(cfg.acks); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateCompression(cfg.compression); err != nil {
		errs = append(errs, err.Error())
	}

	if !b.set["adminClientID"] || strings.TrimSpace(cfg.adminClientID) == "" {
		cfg.adminClientID = defaultClientID()
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(errs, "; "))
	}
	return &cfg, nil
}

// defaultClientID uses the local hostname, falling back to a random id
// when the hostname cannot be resolved (§9 open question, decided in
// SPEC_FULL.md §9/DESIGN.md).
func defaultClientID() string {
	if host, err := os.Hostname(); err == nil && strings.TrimSpace(host) != "" {
		return host
	}
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "h2k-kafka"
	}
	return "h2k-kafka-" + hex.EncodeToString(buf)
}
