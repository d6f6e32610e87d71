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

	"github.com/open-telemetry/otap-dataflow/pkg/otap"
	"github.com/open-telemetry/otap-dataflow/pkg/otapview"
)

// Kind discriminates the five possible batch-level resolutions, per
// spec §4.4.
type Kind int8

const (
	Matched Kind = iota
	NoMatch
	MissingKey
	MixedBatch
	ConversionError
)

func (k Kind) String() string {
	switch k {
	case Matched:
		return "Matched"
	case NoMatch:
		return "NoMatch"
	case MissingKey:
		return "MissingKey"
	case MixedBatch:
		return "MixedBatch"
	case ConversionError:
		return "ConversionError"
	default:
		return "Unknown"
	}
}

// Resolution is the outcome of resolving one batch's destination.
type Resolution struct {
	Kind Kind
	// Port is the matched port when Kind == Matched, and Config.DefaultOutput
	// (empty when none is configured) when Kind is NoMatch or MissingKey.
	Port string
	// Reason is a human-readable diagnostic, set for MixedBatch and
	// ConversionError. It always names the routing key for MixedBatch, per
	// spec §8.2 scenario 2.
	Reason string
}

// leaf is one resource's individual classification before folding.
type leaf int8

const (
	leafMatched leaf = iota
	leafNoMatch
	leafMissingKey
)

const defaultDestination = "\x00default"

// fold combines per-resource leaf classifications (and their matched ports,
// where applicable) into the batch-level Resolution. Implemented as a
// destination-set reduction: every leafMatched resource contributes its
// port as a destination, every leafNoMatch/leafMissingKey resource
// contributes the same synthetic "default" destination (the fold rule's
// documented equivalence). More than one distinct destination is
// MixedBatch; a single non-default destination is Matched; a single
// default destination resolves to MissingKey if any resource was actually
// MissingKey (the documented dominance), else NoMatch.
func (r *Router) fold(leaves []leaf, ports []string) Resolution {
	destinations := make(map[string]bool)
	anyMissing := false

	for i, l := range leaves {
		switch l {
		case leafMatched:
			destinations[ports[i]] = true
		case leafMissingKey:
			anyMissing = true
			destinations[defaultDestination] = true
		case leafNoMatch:
			destinations[defaultDestination] = true
		}
	}

	if len(destinations) > 1 {
		return Resolution{Kind: MixedBatch, Reason: "resources disagree on routing key " + r.key}
	}

	for dest := range destinations {
		if dest == defaultDestination {
			if anyMissing {
				return Resolution{Kind: MissingKey, Port: r.defaultOutput}
			}
			return Resolution{Kind: NoMatch, Port: r.defaultOutput}
		}
		return Resolution{Kind: Matched, Port: dest}
	}

	// No resources at all: nothing to route, treated as MissingKey (same
	// destination-selection behavior as a genuinely missing key).
	return Resolution{Kind: MissingKey, Port: r.defaultOutput}
}

// classify maps one resource's extracted attribute (found, value) to a
// leaf classification and, for a match, the destination port.
func (r *Router) classify(found bool, value otapview.Value) (leaf, string) {
	if !found {
		return leafMissingKey, ""
	}
	s, ok := value.AsString()
	if !ok {
		return leafNoMatch, ""
	}
	port, ok := r.routes[strings.ToLower(s)]
	if !ok {
		return leafNoMatch, ""
	}
	return leafMatched, port
}

// ResolveRoute resolves the destination for an Arrow-encoded payload using
// the zero-copy view layer (Component B).
func (r *Router) ResolveRoute(payload *otap.TelemetryPayload) (Resolution, error) {
	view, err := otapview.NewView(payload)
	if err != nil {
		return Resolution{Kind: ConversionError, Reason: err.Error()}, nil
	}

	resources := view.Resources()
	leaves := make([]leaf, len(resources))
	ports := make([]string, len(resources))

	for i, rg := range resources {
		var found bool
		var val otapview.Value
		err := view.ResourceAttributes(rg.ResourceID, func(a otapview.Attribute) {
			if found || a.Key != r.key {
				return
			}
			found = true
			val = a.Value
		})
		if err != nil {
			return Resolution{Kind: ConversionError, Reason: err.Error()}, nil
		}
		leaves[i], ports[i] = r.classify(found, val)
	}

	return r.fold(leaves, ports), nil
}
