// SPDX-License-Identifier: MIT

package relay

import (
	"time"

	"github.com/solstice-net/solstice/model"
)

type (
	// Config carries the protocol feature toggles. It is passed to the
	// dispatcher at construction, there is no process-wide mutable state.
	// The zero value is the default behavior: acknowledgments and the
	// end-of-stored-events marker on, no admission window.
	Config struct {
		// DisableAcknowledge suppresses OK frames for publishes. The relay
		// still persists and broadcasts, it just stays silent.
		DisableAcknowledge bool `mapstructure:"disableAcknowledge"`
		// DisableEOSE suppresses the end-of-stored-events marker after
		// replay.
		DisableEOSE bool `mapstructure:"disableEOSE"`
		// DisableDeletion turns off the retirement of referenced events;
		// deletion events are then stored and broadcast like any other kind.
		DisableDeletion bool `mapstructure:"disableDeletion"`
		// PastTolerance/FutureTolerance bound the admitted created_at drift
		// relative to the relay clock. Zero disables the respective bound.
		PastTolerance   time.Duration `mapstructure:"pastTolerance"`
		FutureTolerance time.Duration `mapstructure:"futureTolerance"`
	}
)

func (c Config) admits(now time.Time, createdAt model.Timestamp) bool {
	ts := createdAt.Time()
	if c.PastTolerance > 0 && ts.Before(now.Add(-c.PastTolerance)) {
		return false
	}
	if c.FutureTolerance > 0 && ts.After(now.Add(c.FutureTolerance)) {
		return false
	}

	return true
}
