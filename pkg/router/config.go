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

package router

import (
	"strings"

	"go.uber.org/zap"
)

// Config describes one content router instance: which resource attribute
// to extract, and how its value maps to an output port.
type Config struct {
	// Key is the resource attribute name to extract. Required.
	Key string
	// Routes maps an attribute value to an output port name. Matching is
	// case-insensitive on the value.
	Routes map[string]string
	// DefaultOutput, if non-empty, is the port NoMatch/MissingKey batches
	// are sent to instead of being permanently NACKed.
	DefaultOutput string
	// DeclaredPorts is the full set of valid output port names this router
	// node was wired with. A Routes value or DefaultOutput naming a port
	// outside this set fails validation. Leave empty to skip this check
	// (e.g. in tests that don't model a surrounding pipeline).
	DeclaredPorts []string
}

// Router resolves one destination decision per batch, per spec §4.4.
type Router struct {
	key           string
	routes        map[string]string // lowercased value -> port
	defaultOutput string
	logger        *zap.Logger
}

// New validates cfg and builds a Router. Validation failures are
// Configuration-class errors per spec §7: fail at construction, never at
// runtime.
func New(cfg Config, logger *zap.Logger) (*Router, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Key == "" {
		return nil, ErrEmptyRoutingKey
	}

	declared := make(map[string]bool, len(cfg.DeclaredPorts))
	for _, p := range cfg.DeclaredPorts {
		declared[p] = true
	}
	checkPort := func(port string) error {
		if len(declared) == 0 {
			return nil
		}
		if !declared[port] {
			return ErrUndeclaredPort
		}
		return nil
	}

	routes := make(map[string]string, len(cfg.Routes))
	for value, port := range cfg.Routes {
		if err := checkPort(port); err != nil {
			return nil, err
		}
		lower := strings.ToLower(value)
		if _, ok := routes[lower]; ok {
			return nil, ErrDuplicateRouteValue
		}
		routes[lower] = port
	}

	if cfg.DefaultOutput != "" {
		if err := checkPort(cfg.DefaultOutput); err != nil {
			return nil, err
		}
	}

	return &Router{
		key:           cfg.Key,
		routes:        routes,
		defaultOutput: cfg.DefaultOutput,
		logger:        logger,
	}, nil
}
