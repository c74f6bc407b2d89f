package domain

import (
	"cmp"
	"slices"
	"time"
)

// Stage is one step of the sales funnel. Open stages are ordered by Position;
// the Won and Lost stages are terminal and sit outside that ordering.
type Stage struct {
	ID             string
	Name           string
	Color          string
	Position       int
	WinProbability int
	RottingDays    int
	IsWon          bool
	IsLost         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsTerminal reports whether deals in this stage are closed.
func (s Stage) IsTerminal() bool {
	return s.IsWon || s.IsLost
}

// DealStatus returns the status a deal must carry while it sits in this stage.
func (s Stage) DealStatus() Status {
	switch {
	case s.IsWon:
		return StatusWon
	case s.IsLost:
		return StatusLost
	default:
		return StatusOpen
	}
}

// Validate checks the per-stage configuration limits.
func (s Stage) Validate() error {
	if s.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be blank"}
	}
	if s.IsWon && s.IsLost {
		return &ValidationError{Field: "is_won", Reason: "a stage cannot be both won and lost"}
	}
	if s.WinProbability < 0 || s.WinProbability > 100 {
		return &ValidationError{Field: "win_probability", Reason: "must be between 0 and 100"}
	}
	if s.RottingDays < 0 {
		return &ValidationError{Field: "rotting_days", Reason: "must not be negative"}
	}
	return nil
}

// StagePatch carries a partial stage update. Nil fields are left untouched.
// IsWon and IsLost exist only so attempts to change them can be rejected.
type StagePatch struct {
	Name           *string
	Color          *string
	WinProbability *int
	RottingDays    *int
	IsWon          *bool
	IsLost         *bool
}

// Apply validates the patch against the stage and returns the updated copy.
func (p StagePatch) Apply(s Stage) (Stage, error) {
	if p.IsWon != nil || p.IsLost != nil {
		return Stage{}, &ValidationError{Field: "is_won/is_lost", Reason: "terminal flags are fixed once a stage is created"}
	}
	if s.IsTerminal() && (p.WinProbability != nil || p.RottingDays != nil) {
		return Stage{}, &ValidationError{Field: "win_probability/rotting_days", Reason: "not configurable on terminal stages"}
	}
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Color != nil {
		s.Color = *p.Color
	}
	if p.WinProbability != nil {
		s.WinProbability = *p.WinProbability
	}
	if p.RottingDays != nil {
		s.RottingDays = *p.RottingDays
	}
	if err := s.Validate(); err != nil {
		return Stage{}, err
	}
	return s, nil
}

// SortStages orders stages the way the board shows them: open stages by
// position, then Won, then Lost.
func SortStages(stages []Stage) {
	rank := func(s Stage) int {
		switch {
		case s.IsWon:
			return 1
		case s.IsLost:
			return 2
		default:
			return 0
		}
	}
	slices.SortStableFunc(stages, func(a, b Stage) int {
		if c := cmp.Compare(rank(a), rank(b)); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})
}

// ValidateStageSet checks the registry invariants over a full stage set:
// at most one Won stage, at most one Lost stage, and unique open positions.
func ValidateStageSet(stages []Stage) error {
	var won, lost int
	positions := make(map[int]string)
	for _, s := range stages {
		if err := s.Validate(); err != nil {
			return err
		}
		if s.IsWon {
			won++
		}
		if s.IsLost {
			lost++
		}
		if s.IsTerminal() {
			continue
		}
		if other, ok := positions[s.Position]; ok {
			return &ConfigurationError{Reason: "stages " + other + " and " + s.ID + " share a position"}
		}
		positions[s.Position] = s.ID
	}
	if won > 1 {
		return &ConfigurationError{Reason: "more than one won stage"}
	}
	if lost > 1 {
		return &ConfigurationError{Reason: "more than one lost stage"}
	}
	return nil
}
