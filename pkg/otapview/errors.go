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

// Package otapview reconstructs the hierarchical OpenTelemetry data model
// (Resource -> Scope -> Record -> Attribute) from normalized, dictionary
// encoded OTAP record batches without copying: it holds references to the
// input Arrow records plus a small set of precomputed grouping indices.
package otapview

import "errors"

var (
	// ErrMissingPrimary is returned when the payload carries no primary
	// table (Logs, Metrics, or Spans) for its declared signal type.
	ErrMissingPrimary = errors.New("otapview: payload has no primary table")
	// ErrUnsupportedSignal is returned when a view is requested for a
	// SignalType View does not implement.
	ErrUnsupportedSignal = errors.New("otapview: unsupported signal type")
)
