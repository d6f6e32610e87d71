/*
 * Copyright The OpenTelemetry Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

// Package buffer implements the Durable Buffer (Component F, spec §4.6): a
// crash-resilient, write-ahead-log-backed queue with at-least-once delivery,
// exponential backoff, and disk-budget backpressure, built on pkg/engine's
// storage engine contract.
package buffer

import "errors"

var (
	// ErrMissingPath is returned by Config.Validate when Path is empty.
	ErrMissingPath = errors.New("buffer: path is required")

	// ErrInvalidNumCores is returned when NumCores is not positive.
	ErrInvalidNumCores = errors.New("buffer: num_cores must be > 0")

	// ErrInvalidMaxInFlight is returned when MaxInFlight is not positive.
	ErrInvalidMaxInFlight = errors.New("buffer: max_in_flight must be > 0")

	// ErrInvalidRetryMultiplier is returned when RetryMultiplier is not
	// greater than 1 (otherwise backoff never grows).
	ErrInvalidRetryMultiplier = errors.New("buffer: retry_multiplier must be > 1")

	// ErrInvalidRetryInterval is returned when InitialRetryInterval is not
	// positive.
	ErrInvalidRetryInterval = errors.New("buffer: initial_retry_interval must be > 0")

	// ErrInvalidPollInterval is returned when PollInterval is not positive.
	ErrInvalidPollInterval = errors.New("buffer: poll_interval must be > 0")

	// ErrClosed is returned by Ingest once a core has shut down.
	ErrClosed = errors.New("buffer: core is shut down")
)
