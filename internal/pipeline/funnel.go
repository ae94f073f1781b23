package pipeline

import (
	"errors"
	"fmt"
)

// ErrUnknownFormation is returned when a formation has no detail rows.
var ErrUnknownFormation = errors.New("unknown formation")

// Funnel breaks a formation's wishes down into the admission stages.
type Funnel struct {
	Formation string `json:"formation"`
	Totals
	// NeverReceived counts wishes that got no proposal.
	NeverReceived int `json:"never_received"`
	// Refused counts proposals that were not accepted.
	Refused     int     `json:"refused"`
	PctReceived Percent `json:"pct_received"`
	PctAccepted Percent `json:"pct_accepted"`
	// Inconsistent is set when the source counters are not monotonic; the
	// derived counts are then clamped to zero.
	Inconsistent bool `json:"inconsistent"`
}

// NewFunnel derives the funnel of one formation from its totals.
func NewFunnel(formation string, t Totals) Funnel {
	f := Funnel{
		Formation:     formation,
		Totals:        t,
		NeverReceived: t.Wishes - t.Received,
		Refused:       t.Received - t.Accepted,
		PctReceived:   Percentage(t.Received, t.Wishes),
		PctAccepted:   Percentage(t.Accepted, t.Wishes),
	}
	if f.NeverReceived < 0 {
		f.NeverReceived = 0
		f.Inconsistent = true
	}
	if f.Refused < 0 {
		f.Refused = 0
		f.Inconsistent = true
	}
	return f
}

// Summary is the one-line caption shown under the funnel chart.
func (f Funnel) Summary() string {
	return fmt.Sprintf("In %s, out of %s wishes (100%%), %s (%s) proposals were received, and %s (%s) proposals were accepted.",
		f.Formation,
		formatCount(f.Wishes),
		formatCount(f.Received), f.PctReceived,
		formatCount(f.Accepted), f.PctAccepted,
	)
}

// FunnelFor finds formation in groups and derives its funnel.
func FunnelFor(groups []Group[string], formation string) (Funnel, error) {
	for _, g := range groups {
		if g.Key == formation {
			return NewFunnel(formation, g.Totals), nil
		}
	}
	return Funnel{}, fmt.Errorf("%w: %q", ErrUnknownFormation, formation)
}
