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

// Package idrange implements the id-column algebra shared by the view layer
// and the batch splitter/merger: range extraction over sorted nullable id
// columns, child-table slicing by parent range, and gap-free reindexing.
package idrange

import "errors"

var (
	// ErrNotSorted is returned when an operation requires a sorted id column
	// and the input violates that precondition.
	ErrNotSorted = errors.New("idrange: id column is not sorted ascending")
	// ErrOverflow is returned when reindexing would assign an id beyond the
	// range representable by the output column type.
	ErrOverflow = errors.New("idrange: reindexed id would overflow output type")
)
