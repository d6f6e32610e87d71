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

package engine

import (
	"sync"

	"github.com/open-telemetry/otap-dataflow/pkg/otap"
)

// BundleHandle is a claim on one bundle: the caller must resolve it with
// Ack, Reject, or Release before discarding it. Go has no destructor to run
// on drop, so unlike the Rust-shaped contract in spec §6.3 ("drop(handle)
// — implicit defer"), callers here must call Release explicitly; pkg/buffer
// does so everywhere spec §4.6 says "drop the handle (implicit defer)".
type BundleHandle struct {
	engine *Engine
	sub    otap.SubscriberId
	ref    otap.BundleRef

	mu       sync.Mutex
	resolved bool
	bundle   *Bundle
}

// Ref identifies the bundle this handle claims.
func (h *BundleHandle) Ref() otap.BundleRef { return h.ref }

// Bundle returns the claimed bundle's contents.
func (h *BundleHandle) Bundle() *Bundle { return h.bundle }

// Ack durably commits the Acked outcome for this handle's (subscriber,
// bundle) pair.
func (h *BundleHandle) Ack() error {
	return h.resolve(otap.Acked)
}

// Reject durably commits the Dropped outcome.
func (h *BundleHandle) Reject() error {
	return h.resolve(otap.Dropped)
}

// Release relinquishes the claim without recording a terminal outcome
// (spec's "implicit defer"): the bundle becomes pollable again immediately,
// since no terminal state was recorded. Safe to call more than once, and
// safe to call after Ack/Reject (a no-op).
func (h *BundleHandle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.resolved {
		return
	}
	h.resolved = true
	h.engine.releaseClaim(h.sub, h.ref)
}

func (h *BundleHandle) resolve(outcome otap.AckOutcome) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.resolved {
		return nil
	}
	h.resolved = true
	return h.engine.commitOutcome(h.sub, h.ref, outcome)
}
