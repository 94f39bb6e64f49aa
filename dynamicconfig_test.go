// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDynamicConfigHolder_SeedsFromConfig(t *testing.T) {
	t.Parallel()

	cfg := buildConfig(t, func(b *ConfigBuilder) {
		b.TopicPattern("${qualifier}").WalMinTs(42)
	})
	h := NewDynamicConfigHolder(cfg)

	dyn := h.Load()
	assert.Equal(t, "${qualifier}", dyn.TopicPattern)
	assert.Equal(t, int64(42), dyn.WalMinTs)
	assert.True(t, dyn.WalFilterOn)
}

func TestDynamicConfigHolder_Update_RejectsEmptyPattern(t *testing.T) {
	t.Parallel()

	cfg := buildConfig(t, nil)
	h := NewDynamicConfigHolder(cfg)
	before := h.Load()

	err := h.Update(&DynamicConfig{TopicPattern: "", WalMinTs: 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Equal(t, before, h.Load(), "failed update must leave the prior value intact")
}

func TestDynamicConfigHolder_Update_RejectsNegativeWalMinTs(t *testing.T) {
	t.Parallel()

	cfg := buildConfig(t, nil)
	h := NewDynamicConfigHolder(cfg)

	err := h.Update(&DynamicConfig{TopicPattern: "${table}", WalMinTs: -1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestDynamicConfigHolder_Update_SwapsOnSuccess(t *testing.T) {
	t.Parallel()

	cfg := buildConfig(t, nil)
	h := NewDynamicConfigHolder(cfg)

	require.NoError(t, h.Update(&DynamicConfig{TopicPattern: "${namespace}", WalMinTs: 99, WalFilterOn: true}))

	dyn := h.Load()
	assert.Equal(t, "${namespace}", dyn.TopicPattern)
	assert.Equal(t, int64(99), dyn.WalMinTs)
	assert.True(t, dyn.WalFilterOn)
}

func TestDynamicConfigHolder_Update_IsDefensiveCopy(t *testing.T) {
	t.Parallel()

	cfg := buildConfig(t, nil)
	h := NewDynamicConfigHolder(cfg)

	next := &DynamicConfig{TopicPattern: "${table}", WalMinTs: 5}
	require.NoError(t, h.Update(next))
	next.WalMinTs = 999

	assert.Equal(t, int64(5), h.Load().WalMinTs)
}
