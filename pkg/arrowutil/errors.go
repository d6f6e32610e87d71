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

// Package arrowutil provides low-level, dictionary-transparent accessors
// over Apache Arrow arrays and records shared by every component that reads
// OTAP batches (id-range algebra, the zero-copy view layer, and the batch
// splitter/merger).
package arrowutil

import "errors"

var (
	// ErrInvalidArrayType is returned when a column's concrete array type
	// does not match the type requested by the caller.
	ErrInvalidArrayType = errors.New("arrowutil: invalid array type")
	// ErrFieldNotFound is returned when a named field is absent from a
	// schema or struct type.
	ErrFieldNotFound = errors.New("arrowutil: field not found")
	// ErrAmbiguousField is returned when a schema has more than one field
	// with the requested name.
	ErrAmbiguousField = errors.New("arrowutil: ambiguous field name")
)
