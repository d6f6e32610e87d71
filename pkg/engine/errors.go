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

// Package engine implements the storage engine contract of spec §6.3: a
// per-core, file-based write-ahead log plus finalized segments, and a
// durable per-subscriber cursor built on pkg/acklog. It is the "external
// collaborator" referenced by the durable buffer (pkg/buffer).
package engine

import "errors"

var (
	// ErrAtCapacity is returned by Ingest when the core's soft cap (the
	// configured hard cap, under a Backpressure size-cap policy) would be
	// exceeded. Callers NACK the original payload and rate-limit a warning;
	// this is not a hard error.
	ErrAtCapacity = errors.New("engine: core at capacity")

	// ErrBudgetTooSmall is returned by Open when the configured hard cap is
	// below the minimum per-core budget (wal_max + 2*segment_target_size),
	// per spec §3.4.
	ErrBudgetTooSmall = errors.New("engine: hard cap below wal_max + 2*segment_target_size")

	// ErrMissingDataDir is returned by Open when Config.DataDir is empty.
	ErrMissingDataDir = errors.New("engine: data dir is required")

	// ErrUnknownSubscriber is returned by operations addressing a
	// subscriber id that was never registered.
	ErrUnknownSubscriber = errors.New("engine: unknown subscriber")

	// ErrBundleNotFound is returned by ClaimBundle when the referenced
	// bundle no longer exists (its segment was reclaimed or evicted).
	ErrBundleNotFound = errors.New("engine: bundle not found")

	// ErrShuttingDown is returned by Ingest once Shutdown has been called.
	ErrShuttingDown = errors.New("engine: shutting down")

	// ErrNonTerminalOutcome is returned by BundleHandle.Ack/Reject's
	// internal commit path if asked to record anything other than Acked
	// or Dropped (Nacked is not a durable terminal outcome).
	ErrNonTerminalOutcome = errors.New("engine: outcome is not terminal")
)
