package domain

import (
	"strings"
	"time"
)

// ActivityType classifies an activity log entry.
type ActivityType string

const (
	ActivityNote        ActivityType = "note"
	ActivityCall        ActivityType = "call"
	ActivityEmail       ActivityType = "email"
	ActivityMeeting     ActivityType = "meeting"
	ActivityTask        ActivityType = "task"
	ActivityStageChange ActivityType = "stage_change"
	ActivityCreated     ActivityType = "created"
	ActivityWon         ActivityType = "won"
	ActivityLost        ActivityType = "lost"
)

// ActivityTypes lists every known activity type.
var ActivityTypes = []ActivityType{
	ActivityNote, ActivityCall, ActivityEmail, ActivityMeeting, ActivityTask,
	ActivityStageChange, ActivityCreated, ActivityWon, ActivityLost,
}

// Valid reports whether t is one of the known activity types.
func (t ActivityType) Valid() bool {
	for _, known := range ActivityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Manual reports whether users may log this type directly. The remaining
// types are produced by deal mutations.
func (t ActivityType) Manual() bool {
	switch t {
	case ActivityNote, ActivityCall, ActivityEmail, ActivityMeeting, ActivityTask:
		return true
	}
	return false
}

// Activity is an immutable entry in a deal's history.
type Activity struct {
	ID          string
	DealID      string
	Type        ActivityType
	Subject     string
	Description string
	FromStageID string
	ToStageID   string
	CreatedBy   string
	CreatedAt   time.Time
}

// ActivityInput is the data needed to append an activity.
type ActivityInput struct {
	Type        ActivityType
	Subject     string
	Description string
	FromStageID string
	ToStageID   string
	CreatedBy   string
}

// Validate checks the input before it is appended.
func (in ActivityInput) Validate() error {
	if !in.Type.Valid() {
		return &ValidationError{Field: "activity_type", Reason: "unknown type " + string(in.Type)}
	}
	if isBlank(in.Subject) {
		return &ValidationError{Field: "subject", Reason: "must not be blank"}
	}
	if in.Type == ActivityStageChange && (in.FromStageID == "" || in.ToStageID == "") {
		return &ValidationError{Field: "from_stage_id/to_stage_id", Reason: "required for stage_change"}
	}
	return nil
}

// NewActivity validates the input and stamps it with an id and creation time.
func NewActivity(id, dealID string, in ActivityInput, now time.Time) (Activity, error) {
	if dealID == "" {
		return Activity{}, &ValidationError{Field: "deal_id", Reason: "must not be blank"}
	}
	if err := in.Validate(); err != nil {
		return Activity{}, err
	}
	return Activity{
		ID:          id,
		DealID:      dealID,
		Type:        in.Type,
		Subject:     in.Subject,
		Description: in.Description,
		FromStageID: in.FromStageID,
		ToStageID:   in.ToStageID,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   now.UTC(),
	}, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
