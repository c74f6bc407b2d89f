package domain

import "time"

// RottingLevel grades how long a deal has gone without activity relative to
// its stage's threshold.
type RottingLevel int

const (
	RottingFresh    RottingLevel = 0
	RottingWarning  RottingLevel = 1
	RottingRotting  RottingLevel = 2
	RottingCritical RottingLevel = 3
)

func (l RottingLevel) String() string {
	switch l {
	case RottingWarning:
		return "warning"
	case RottingRotting:
		return "rotting"
	case RottingCritical:
		return "critical"
	default:
		return "fresh"
	}
}

// Rotting computes the staleness level of deal in stage at now. It is never
// stored; callers recompute it on every read.
//
// With R = stage.RottingDays and d = whole days since the last activity:
// d < R/2 is fresh, R/2 <= d < R is warning, R <= d < 3R/2 is rotting and
// anything older is critical.
func Rotting(deal Deal, stage Stage, now time.Time) RottingLevel {
	if deal.LastActivityAt.IsZero() || deal.IsClosed() || stage.IsTerminal() || stage.RottingDays <= 0 {
		return RottingFresh
	}
	days := int64(now.Sub(deal.LastActivityAt) / (24 * time.Hour))
	r := int64(stage.RottingDays)

	// Doubled to compare against half thresholds in integers.
	switch {
	case 2*days >= 3*r:
		return RottingCritical
	case days >= r:
		return RottingRotting
	case 2*days >= r:
		return RottingWarning
	default:
		return RottingFresh
	}
}
