package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the workflow state of a deal.
type Status string

const (
	StatusOpen Status = "open"
	StatusWon  Status = "won"
	StatusLost Status = "lost"
)

// Event represents an action that triggers a deal state transition.
type Event string

const (
	EventMove Event = "move"
	EventWin  Event = "win"
	EventLose Event = "lose"
)

// Transition defines a valid state change: an event moves a deal from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// Transitions defines all valid state changes in the deal workflow.
// Won and Lost have no outgoing transitions.
var Transitions = []Transition{
	{Event: EventMove, Src: StatusOpen, Dst: StatusOpen},
	{Event: EventWin, Src: StatusOpen, Dst: StatusWon},
	{Event: EventLose, Src: StatusOpen, Dst: StatusLost},
}

// Deal is a sales opportunity tracked through the funnel.
type Deal struct {
	ID                string
	Title             string
	Value             decimal.Decimal
	Organization      string
	ContactName       string
	ContactEmail      string
	ContactPhone      string
	ExpectedCloseDate *time.Time
	OwnerID           string

	// Originating records. Opaque to the engine.
	LeadID     string
	CustomerID string
	AuditID    string
	QuoteID    string

	StageID        string
	Status         Status
	WinProbability int
	LastActivityAt time.Time
	WonAt          *time.Time
	WonNotes       string
	LostAt         *time.Time
	LostReason     string

	// Version increases on every committed mutation and backs optimistic
	// concurrency checks in the store.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsClosed reports whether the deal reached Won or Lost.
func (d Deal) IsClosed() bool {
	return d.Status == StatusWon || d.Status == StatusLost
}

// Touch advances LastActivityAt without ever moving it backwards.
func (d *Deal) Touch(now time.Time) {
	if now.After(d.LastActivityAt) {
		d.LastActivityAt = now
	}
	d.UpdatedAt = now
}

// WeightedValue is the deal value scaled by its stored win probability.
func (d Deal) WeightedValue() decimal.Decimal {
	return d.Value.Mul(decimal.NewFromInt(int64(d.WinProbability))).Div(decimal.NewFromInt(100))
}

// DealInput holds the caller-supplied fields for a new deal.
type DealInput struct {
	Title             string
	Value             string
	Organization      string
	ContactName       string
	ContactEmail      string
	ContactPhone      string
	ExpectedCloseDate *time.Time
	OwnerID           string
	LeadID            string
	CustomerID        string
	AuditID           string
	QuoteID           string
}

// ParseValue converts a raw amount to a decimal. Absent or non-numeric input
// yields zero; negative amounts are rejected.
func ParseValue(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, nil
	}
	if v.IsNegative() {
		return decimal.Zero, &ValidationError{Field: "value", Reason: "must not be negative"}
	}
	return v, nil
}

// NewDeal creates an open deal placed in the given stage.
func NewDeal(id string, in DealInput, stage Stage, now time.Time) (Deal, error) {
	if isBlank(in.Title) {
		return Deal{}, &ValidationError{Field: "title", Reason: "must not be blank"}
	}
	if stage.IsTerminal() {
		return Deal{}, &ConfigurationError{Reason: "new deals cannot start in a terminal stage"}
	}
	value, err := ParseValue(in.Value)
	if err != nil {
		return Deal{}, err
	}
	now = now.UTC()
	return Deal{
		ID:                id,
		Title:             in.Title,
		Value:             value,
		Organization:      in.Organization,
		ContactName:       in.ContactName,
		ContactEmail:      in.ContactEmail,
		ContactPhone:      in.ContactPhone,
		ExpectedCloseDate: in.ExpectedCloseDate,
		OwnerID:           in.OwnerID,
		LeadID:            in.LeadID,
		CustomerID:        in.CustomerID,
		AuditID:           in.AuditID,
		QuoteID:           in.QuoteID,
		StageID:           stage.ID,
		Status:            StatusOpen,
		WinProbability:    stage.WinProbability,
		LastActivityAt:    now,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}
