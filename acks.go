// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import (
	"fmt"
	"strings"
)

// Acks selects the broker producer's acknowledgment mode, fed straight
// into the franz-go client via kgo.RequiredAcks. Not part of the base
// Configuration table in §4.8; a domain-stack addition every real
// franz-go wiring needs (SPEC_FULL.md §11).
type Acks string

const (
	AcksNone  Acks = "none"
	AcksLeader Acks = "leader"
	AcksAll   Acks = "all"
)

var acksTypes map[Acks]struct{}
var acksList []string

func init() {
	list := []Acks{AcksNone, AcksLeader, AcksAll}
	acksTypes = make(map[Acks]struct{}, len(list))
	for _, a := range list {
		acksTypes[a] = struct{}{}
		acksList = append(acksList, string(a))
	}
}

func validateAcks(a Acks) error {
	if _, ok := acksTypes[a]; ok {
		return nil
	}
	return fmt.Errorf("%w: acks %q invalid: must be one of '%s'", ErrConfiguration, a, strings.Join(acksList, "', '"))
}
