package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Percent is a derived percentage that may be undefined when its denominator
// is zero. Undefined values encode as JSON null.
type Percent struct {
	Value   float64
	Defined bool
}

// Percentage returns part*100/whole, undefined when whole is zero.
func Percentage(part, whole int) Percent {
	if whole == 0 {
		return Percent{}
	}
	return Percent{Value: float64(part) * 100 / float64(whole), Defined: true}
}

func (p Percent) String() string {
	if !p.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", p.Value)
}

func (p Percent) MarshalJSON() ([]byte, error) {
	if !p.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

func (p *Percent) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = Percent{}
		return nil
	}
	if err := json.Unmarshal(data, &p.Value); err != nil {
		return fmt.Errorf("percent: %w", err)
	}
	p.Defined = true
	return nil
}

// Rate is a formation's totals with the funnel percentages over wishes.
type Rate struct {
	Formation string `json:"formation"`
	Totals
	PctReceived Percent `json:"pct_received"`
	PctAccepted Percent `json:"pct_accepted"`
	// PctAcceptedOfReceived is the share of received proposals that were accepted.
	PctAcceptedOfReceived Percent `json:"pct_accepted_of_received"`
}

// DeriveRates computes the percentage columns for every formation group.
// Groups with zero wishes keep undefined percentages.
func DeriveRates(groups []Group[string]) []Rate {
	out := make([]Rate, len(groups))
	for i, g := range groups {
		out[i] = Rate{
			Formation:             g.Key,
			Totals:                g.Totals,
			PctReceived:           Percentage(g.Received, g.Wishes),
			PctAccepted:           Percentage(g.Accepted, g.Wishes),
			PctAcceptedOfReceived: Percentage(g.Accepted, g.Received),
		}
	}
	return out
}

// Undefined returns the formations whose percentages could not be derived.
func Undefined(rates []Rate) []string {
	var out []string
	for _, r := range rates {
		if !r.PctReceived.Defined {
			out = append(out, r.Formation)
		}
	}
	return out
}

// formatCount renders n with thin grouping, e.g. 12 345.
func formatCount(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, ch := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(ch)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
