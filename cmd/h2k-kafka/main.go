// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Command h2k-kafka is a standalone driver for the replication
// endpoint: it is not the HBase host process (out of scope), but a
// manual-testing tool that replays a newline-delimited JSON fixture
// of WAL batches through a real ReplicationEndpoint.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	h2k "github.com/qazmarka/h2k-kafka"
	"gopkg.in/yaml.v3"
)

// fileConfig is the optional on-disk overlay for -config: a thin YAML
// mirror of the flag surface, loaded before flags so flags still win.
type fileConfig struct {
	BrokerBootstrap string `yaml:"broker.bootstrap"`
	TopicPattern    string `yaml:"topic.pattern"`
	FamilyName      string `yaml:"family.name"`
	DecodeMode      string `yaml:"decode.mode"`
	SchemaPath      string `yaml:"schema.path"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "h2k-kafka:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile = flag.String("config", envOr("H2K_CONFIG_FILE", ""), "optional YAML config file overlay")
		bootstrap  = flag.String("broker.bootstrap", envOr("H2K_BROKER_BOOTSTRAP", ""), "comma-separated Kafka broker list")
		topicPat   = flag.String("topic.pattern", envOr("H2K_TOPIC_PATTERN", ""), "topic name pattern")
		familyName = flag.String("family.name", envOr("H2K_FAMILY_NAME", ""), "column family to replicate")
		decodeMode = flag.String("decode.mode", envOr("H2K_DECODE_MODE", ""), "raw or typed")
		schemaPath = flag.String("schema.path", envOr("H2K_SCHEMA_PATH", ""), "schema JSON path (typed mode)")
		fixture    = flag.String("fixture", "", "path to newline-delimited JSON WAL-batch fixture; '-' for stdin")
	)
	flag.Parse()

	fc, err := loadFileConfig(*configFile)
	if err != nil {
		return err
	}

	builder := h2k.NewConfigBuilder().
		BrokerBootstrap(firstNonEmpty(*bootstrap, fc.BrokerBootstrap)).
		FamilyName(firstNonEmpty(*familyName, fc.FamilyName, "0"))

	if pat := firstNonEmpty(*topicPat, fc.TopicPattern); pat != "" {
		builder = builder.TopicPattern(pat)
	}
	if mode := firstNonEmpty(*decodeMode, fc.DecodeMode); mode != "" {
		builder = builder.DecodeMode(h2k.DecodeMode(mode))
	}
	if sp := firstNonEmpty(*schemaPath, fc.SchemaPath); sp != "" {
		builder = builder.SchemaPath(sp)
	}

	cfg, err := builder.Build()
	if err != nil {
		return err
	}

	logger := h2k.NopLogger
	ep := h2k.NewReplicationEndpoint(cfg, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := ep.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer ep.Stop(ctx)

	if *fixture == "" {
		fmt.Fprintln(os.Stderr, "h2k-kafka: no -fixture given, started and idling; send SIGINT/SIGTERM to stop")
		<-ctx.Done()
		return nil
	}

	return replayFixture(ctx, ep, *fixture)
}

// fixtureBatch mirrors WalEntry for JSON decoding of a manual-testing
// fixture; one line is one batch of entries passed to Replicate.
type fixtureBatch struct {
	Entries []h2k.WalEntry `json:"entries"`
}

func replayFixture(ctx context.Context, ep *h2k.ReplicationEndpoint, path string) error {
	f := os.Stdin
	if path != "-" {
		opened, err := os.Open(path)
		if err != nil {
			return err
		}
		defer opened.Close()
		f = opened
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var batch fixtureBatch
		if err := json.Unmarshal(line, &batch); err != nil {
			return fmt.Errorf("decode fixture line: %w", err)
		}
		if ok := ep.Replicate(ctx, batch.Entries); !ok {
			return fmt.Errorf("replicate: batch rejected")
		}
	}
	return scanner.Err()
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// firstNonEmpty returns the first non-empty string among vals, in
// priority order (flag, then file overlay, then a default).
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
