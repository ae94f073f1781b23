package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// Column headers of the admissions export.
const (
	ColFormation   = "Formation"
	ColYear        = "Année du Baccalauréat"
	ColSpecialties = "Enseignements de spécialité"
	ColWishes      = "Nombre de candidats bacheliers ayant confirmé au moins un vœu"
	ColReceived    = "Nombre de candidats bacheliers ayant reçu au moins une proposition d'admission"
	ColAccepted    = "Nombre de candidats bacheliers ayant accepté une proposition d'admission"
)

// SummaryFormation marks the aggregate-over-all-formations rows.
const SummaryFormation = "Ensemble des bacheliers"

// RequiredColumns lists the header names a source file must carry, in
// export order.
var RequiredColumns = []string{
	ColFormation,
	ColYear,
	ColSpecialties,
	ColWishes,
	ColReceived,
	ColAccepted,
}

// Row is one observation of the export.
type Row struct {
	Formation   string `json:"formation"`
	Year        int    `json:"year"`
	Specialties string `json:"specialties"`
	Wishes      int    `json:"wishes"`
	Received    int    `json:"received"`
	Accepted    int    `json:"accepted"`
}

// IsSummary reports whether the row is an aggregate-of-all-formations row.
func (r Row) IsSummary() bool {
	return r.Formation == SummaryFormation
}

// Consistent reports whether the admissions funnel is monotonic:
// accepted <= received <= wishes.
func (r Row) Consistent() bool {
	return r.Received <= r.Wishes && r.Accepted <= r.Received
}

// Value returns the counter selected by m.
func (r Row) Value(m Metric) int {
	switch m {
	case Received:
		return r.Received
	case Accepted:
		return r.Accepted
	default:
		return r.Wishes
	}
}

// Metric selects one of the three funnel counters.
type Metric int

const (
	Wishes Metric = iota
	Received
	Accepted
)

// Metrics lists every funnel counter in funnel order.
var Metrics = []Metric{Wishes, Received, Accepted}

func (m Metric) String() string {
	switch m {
	case Wishes:
		return "wishes"
	case Received:
		return "received"
	case Accepted:
		return "accepted"
	default:
		return fmt.Sprintf("metric(%d)", int(m))
	}
}

// Column returns the source header the metric is read from.
func (m Metric) Column() string {
	switch m {
	case Received:
		return ColReceived
	case Accepted:
		return ColAccepted
	default:
		return ColWishes
	}
}

// ErrUnknownMetric is returned by ParseMetric for unrecognised names.
var ErrUnknownMetric = errors.New("unknown metric")

// ParseMetric accepts the short metric names used by the API and CLI.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "wishes", "confirmed":
		return Wishes, nil
	case "received", "proposals", "proposals-received":
		return Received, nil
	case "accepted", "admitted", "proposals-accepted":
		return Accepted, nil
	}
	return Wishes, fmt.Errorf("%w: %q", ErrUnknownMetric, s)
}
