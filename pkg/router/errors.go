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

// Package router implements the content router (spec §4.4): per-resource
// destination resolution over either a zero-copy Arrow view (pkg/otapview)
// or raw protocol bytes, folded into one of Matched/NoMatch/MissingKey/
// MixedBatch/ConversionError for the whole batch.
package router

import "errors"

var (
	// ErrEmptyRoutingKey is returned at construction when Config.Key is
	// empty -- there is nothing to extract.
	ErrEmptyRoutingKey = errors.New("router: routing key must not be empty")
	// ErrUndeclaredPort is returned at construction when a route or the
	// default output names a port not present in Config.DeclaredPorts.
	ErrUndeclaredPort = errors.New("router: route references an undeclared output port")
	// ErrDuplicateRouteValue is returned at construction when two route
	// values collide case-insensitively (e.g. "A" and "a").
	ErrDuplicateRouteValue = errors.New("router: route values collide case-insensitively")
)
