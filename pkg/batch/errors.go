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

// Package batch losslessly resizes OTAP batch-trees: Split divides a
// batch-tree so no output exceeds a row (or, for metrics, datapoint) budget;
// Merge concatenates a sequence of batch-trees, unifying schemas and
// reindexing ids to avoid collisions.
package batch

import "errors"

var (
	// ErrInvalidMaxRows is returned when a caller passes a non-positive
	// max-rows budget.
	ErrInvalidMaxRows = errors.New("batch: max_rows must be >= 1")
	// ErrMissingPrimary is returned when a payload carries no primary table
	// for its declared signal.
	ErrMissingPrimary = errors.New("batch: payload has no primary table")
	// ErrUnsupportedSignal is returned when Split or Merge is asked to
	// operate on a SignalType neither implements.
	ErrUnsupportedSignal = errors.New("batch: unsupported signal type")
	// ErrSchemaMismatch is returned when Merge is asked to combine two
	// batches whose non-optional columns disagree on type in a way schema
	// unification cannot reconcile (e.g. the same field declared both a
	// struct and a scalar across inputs).
	ErrSchemaMismatch = errors.New("batch: incompatible schemas")
)
