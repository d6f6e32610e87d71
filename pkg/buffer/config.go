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
	"fmt"
	"path/filepath"
	"time"

	"github.com/open-telemetry/otap-dataflow/pkg/engine"
)

// OTLPHandling selects how a ProtocolBytes message is ingested, per spec
// §6.5's `otlp_handling` key.
type OTLPHandling int8

const (
	// PassThrough stores the message verbatim (opaque bytes).
	PassThrough OTLPHandling = iota
	// ConvertToArrow converts the message to Arrow before ingest.
	ConvertToArrow
)

// Config configures a Durable Buffer instance, per spec §6.5's
// configuration schema. NumCores is not itself a recognized key there: it is
// the per-node core count the buffer shards across (one engine + drain loop
// per core, per spec §5's per-CPU-core scheduling model).
type Config struct {
	// Path is the root data directory. Required.
	Path string

	// RetentionSizeCap is the total disk budget across all cores, divided
	// equally.
	RetentionSizeCap uint64

	// MaxAge is the max segment retention age. It is not passed to the
	// engine: segments are reclaimed only once every bundle in them has a
	// terminal outcome, never by age.
	MaxAge time.Duration

	// SizeCapPolicy selects Backpressure or DropOldest behavior once a
	// core's share of RetentionSizeCap is exhausted.
	SizeCapPolicy engine.SizeCapPolicy

	// PollInterval is the timer period driving flush/drain/maintain.
	PollInterval time.Duration

	// OTLPHandling names PassThrough or ConvertToArrow ingest handling. The
	// buffer does not read it: Ingest stores the bundle it is given as is,
	// so any conversion is done by the caller before Ingest.
	OTLPHandling OTLPHandling

	// MaxSegmentOpenDuration triggers time-based segment finalization.
	MaxSegmentOpenDuration time.Duration

	// InitialRetryInterval is the base delay for NACK backoff.
	InitialRetryInterval time.Duration

	// MaxRetryInterval caps the backoff delay.
	MaxRetryInterval time.Duration

	// RetryMultiplier is the exponential backoff factor. Must be > 1.
	RetryMultiplier float64

	// MaxInFlight bounds how many bundles may be awaiting ACK/NACK at once,
	// per core.
	MaxInFlight int

	// NumCores is the number of per-core shards to create.
	NumCores int
}

// Validate checks Config for construction-time errors, following the same
// Validate()-method idiom the teacher's confmap-loaded processor Configs
// use (confmap itself is out of scope; only the method shape is carried).
// It does not duplicate pkg/engine's minimum-budget check: Open propagates
// engine.ErrBudgetTooSmall from the first core that fails it, which still
// satisfies spec §4.6 step 1's "reject configuration at construction time".
func (c Config) Validate() error {
	if c.Path == "" {
		return ErrMissingPath
	}
	if c.NumCores <= 0 {
		return ErrInvalidNumCores
	}
	if c.MaxInFlight <= 0 {
		return ErrInvalidMaxInFlight
	}
	if c.RetryMultiplier <= 1 {
		return ErrInvalidRetryMultiplier
	}
	if c.InitialRetryInterval <= 0 {
		return ErrInvalidRetryInterval
	}
	if c.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	return nil
}

// perCoreHardCap divides the total retention budget equally among cores.
func (c Config) perCoreHardCap() uint64 {
	return c.RetentionSizeCap / uint64(c.NumCores)
}

// engineConfig derives one core's pkg/engine.Config. The buffer's schema
// names only a total retention cap and a max segment age (§6.5); the WAL
// and segment-target sizes pkg/engine needs are derived as a quarter of the
// per-core cap each, leaving the remaining quarter as headroom above
// engine's minimum budget (wal_max + 2*segment_target_size == 3/4 of the
// per-core cap).
func (c Config) engineConfig(coreID int) engine.Config {
	perCore := c.perCoreHardCap()
	quarter := perCore / 4
	return engine.Config{
		DataDir:               filepath.Join(c.Path, fmt.Sprintf("core_%d", coreID)),
		WALMaxBytes:           quarter,
		SegmentTargetBytes:    quarter,
		SegmentMaxAge:         c.MaxSegmentOpenDuration,
		HardCapBytes:          perCore,
		SizeCapPolicy:         c.SizeCapPolicy,
		AckLogRotationBytes:   quarter,
		AckLogMaxRotatedFiles: 8,
	}
}
