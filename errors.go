// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import "errors"

var (
	// ErrConfiguration indicates a required configuration key was missing
	// or failed validation. Surfaced at Init/Build time.
	ErrConfiguration = &metricError{
		metric:  "configuration_error",
		message: "configuration invalid",
	}

	// ErrTransientBroker indicates a timeout, network failure, missing
	// leader, or interruption while waiting on a broker send or admin
	// call. Replicate returns false so the host retries the batch.
	ErrTransientBroker = &metricError{
		metric:  "transient_broker_error",
		message: "transient broker error",
	}

	// ErrTopicRace indicates topic creation raced with another creator
	// and the topic already existed. Treated as success; counted only.
	ErrTopicRace = &metricError{
		metric:  "topic_race",
		message: "topic already exists",
	}

	// ErrDecode indicates a column value failed to convert to its
	// declared type. Propagates out of payload assembly; Replicate
	// returns false.
	ErrDecode = &metricError{
		metric:  "decode_error",
		message: "decode failed",
	}

	// ErrSchemaLoad indicates the schema source could not be read or
	// parsed. Never surfaced to the caller: logged, replaced with an
	// empty snapshot.
	ErrSchemaLoad = &metricError{
		metric:  "schema_load_error",
		message: "schema load failed",
	}

	// ErrInvalidInput indicates a malformed item (nil row-key bytes, an
	// invalid topic name) that is skipped without failing the batch.
	ErrInvalidInput = &metricError{
		metric:  "invalid_input",
		message: "invalid input",
	}

	// ErrFatal indicates the broker producer failed to initialize.
	// Surfaced at Init time; the endpoint cannot start.
	ErrFatal = &metricError{
		metric:  "fatal_error",
		message: "fatal initialization error",
	}

	// ErrTimeout indicates a BatchSender wait exceeded its batch-wide
	// deadline.
	ErrTimeout = &metricError{
		metric:  "timeout",
		message: "timeout",
	}

	// ErrNotStarted indicates an operation was attempted before Start.
	ErrNotStarted = &metricError{
		metric:  "not_started",
		message: "endpoint not started",
	}
)

// metricError wraps a sentinel error with a string classification for
// metrics and observability, discoverable via errors.As.
type metricError struct {
	metric  string
	message string
}

func (e *metricError) Error() string { return e.message }

func (e *metricError) Metric() string { return e.metric }

func (e *metricError) Is(target error) bool {
	if t, ok := target.(*metricError); ok {
		return e.message == t.message
	}
	return false
}

// errorMetric extracts the metric label for an error, walking the chain
// to find a metricError. Returns "" for a nil error and "unknown" for an
// error that carries no metricError classification.
func errorMetric(err error) string {
	if err == nil {
		return ""
	}
	var me *metricError
	if errors.As(err, &me) {
		return me.Metric()
	}
	return "unknown"
}

// DecodeError wraps a value-conversion failure with the column context
// that produced it. Always satisfies errors.Is(err, ErrDecode).
type DecodeError struct {
	Table     TableName
	Qualifier string
	Type      string
	Cause     error
}

func (e *DecodeError) Error() string {
	return "decode " + e.Table.String() + "." + e.Qualifier + " as " + e.Type + ": " + e.Cause.Error()
}

func (e *DecodeError) Unwrap() []error { return []error{ErrDecode, e.Cause} }
