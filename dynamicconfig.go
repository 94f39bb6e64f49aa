// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// DynamicConfig is the runtime-updatable configuration subset: the two
// fields operators are expected to tune without a restart. Everything
// else in Config is fixed at Build time.
type DynamicConfig struct {
	// TopicPattern overrides Config.topicPattern for topic derivation.
	TopicPattern string

	// WalMinTs, when WalFilterOn is true, drops every row none of whose
	// target-family cells has a timestamp at or after this value. Ignored
	// otherwise.
	WalMinTs int64

	// WalFilterOn toggles the WalMinTs filter.
	WalFilterOn bool
}

func (dc *DynamicConfig) validate() error {
	if dc.TopicPattern == "" {
		return errors.Join(ErrConfiguration, fmt.Errorf("topic pattern must not be empty"))
	}
	if dc.WalMinTs < 0 {
		return errors.Join(ErrConfiguration, fmt.Errorf("wal min-ts must be >= 0, got %d", dc.WalMinTs))
	}
	return nil
}

// DynamicConfigHolder is an atomically hot-swappable DynamicConfig. The
// zero value is not usable; construct with NewDynamicConfigHolder.
type DynamicConfigHolder struct {
	ptr atomic.Pointer[DynamicConfig]
}

// NewDynamicConfigHolder seeds the holder from cfg's static values.
func NewDynamicConfigHolder(cfg *Config) *DynamicConfigHolder {
	h := &DynamicConfigHolder{}
	h.ptr.Store(&DynamicConfig{
		TopicPattern: cfg.TopicPattern(),
		WalMinTs:     cfg.WalMinTs(),
		WalFilterOn:  cfg.WalFilterOn(),
	})
	return h
}

// Load returns the current DynamicConfig. Safe for concurrent use.
func (h *DynamicConfigHolder) Load() *DynamicConfig {
	return h.ptr.Load()
}

// Update validates next and, if valid, atomically replaces the current
// DynamicConfig. On validation failure, the prior value is left intact
// and the error is returned.
func (h *DynamicConfigHolder) Update(next *DynamicConfig) error {
	if err := next.validate(); err != nil {
		return err
	}
	cp := *next
	h.ptr.Store(&cp)
	return nil
}
