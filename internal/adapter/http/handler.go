package http

import (
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/dealflow/internal/app"
	"github.com/neomorfeo/dealflow/internal/domain"
)

const timestampFormat = "2006-01-02T15:04:05Z"

// StageResponse is the API representation of a pipeline stage.
type StageResponse struct {
	ID             string `json:"id" doc:"Unique identifier"`
	Name           string `json:"name" doc:"Display name"`
	Color          string `json:"color" doc:"Display color"`
	Position       int    `json:"position" doc:"Order among open stages"`
	WinProbability int    `json:"win_probability" doc:"Chance of winning, 0-100"`
	RottingDays    int    `json:"rotting_days" doc:"Days without activity before a deal rots; 0 disables"`
	IsWon          bool   `json:"is_won" doc:"Terminal Won stage"`
	IsLost         bool   `json:"is_lost" doc:"Terminal Lost stage"`
	CreatedAt      string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt      string `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toStageResponse(s domain.Stage) StageResponse {
	return StageResponse{
		ID:             s.ID,
		Name:           s.Name,
		Color:          s.Color,
		Position:       s.Position,
		WinProbability: s.WinProbability,
		RottingDays:    s.RottingDays,
		IsWon:          s.IsWon,
		IsLost:         s.IsLost,
		CreatedAt:      s.CreatedAt.Format(timestampFormat),
		UpdatedAt:      s.UpdatedAt.Format(timestampFormat),
	}
}

func toStageResponses(stages []domain.Stage) []StageResponse {
	resp := make([]StageResponse, len(stages))
	for i, s := range stages {
		resp[i] = toStageResponse(s)
	}
	return resp
}

// DealResponse is the API representation of a deal.
type DealResponse struct {
	ID                string `json:"id" doc:"Unique identifier"`
	Title             string `json:"title" doc:"Deal title"`
	Value             string `json:"value" doc:"Monetary value (decimal string)"`
	WeightedValue     string `json:"weighted_value" doc:"Value scaled by win probability"`
	Organization      string `json:"organization,omitempty"`
	ContactName       string `json:"contact_name,omitempty"`
	ContactEmail      string `json:"contact_email,omitempty"`
	ContactPhone      string `json:"contact_phone,omitempty"`
	ExpectedCloseDate string `json:"expected_close_date,omitempty" doc:"Expected close date (YYYY-MM-DD)"`
	OwnerID           string `json:"owner_id,omitempty"`
	LeadID            string `json:"lead_id,omitempty"`
	CustomerID        string `json:"customer_id,omitempty"`
	AuditID           string `json:"audit_id,omitempty"`
	QuoteID           string `json:"quote_id,omitempty"`
	StageID           string `json:"stage_id" doc:"Current stage"`
	Status            string `json:"status" doc:"open, won or lost"`
	WinProbability    int    `json:"win_probability" doc:"Probability captured when entering the stage"`
	Rotting           string `json:"rotting,omitempty" doc:"Staleness level at read time"`
	LastActivityAt    string `json:"last_activity_at" doc:"Last activity timestamp (ISO 8601)"`
	WonAt             string `json:"won_at,omitempty"`
	WonNotes          string `json:"won_notes,omitempty"`
	LostAt            string `json:"lost_at,omitempty"`
	LostReason        string `json:"lost_reason,omitempty"`
	Version           int64  `json:"version" doc:"Concurrency token"`
	CreatedAt         string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt         string `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toDealResponse(d domain.Deal) DealResponse {
	return DealResponse{
		ID:                d.ID,
		Title:             d.Title,
		Value:             d.Value.String(),
		WeightedValue:     d.WeightedValue().String(),
		Organization:      d.Organization,
		ContactName:       d.ContactName,
		ContactEmail:      d.ContactEmail,
		ContactPhone:      d.ContactPhone,
		ExpectedCloseDate: formatOptional(d.ExpectedCloseDate, time.DateOnly),
		OwnerID:           d.OwnerID,
		LeadID:            d.LeadID,
		CustomerID:        d.CustomerID,
		AuditID:           d.AuditID,
		QuoteID:           d.QuoteID,
		StageID:           d.StageID,
		Status:            string(d.Status),
		WinProbability:    d.WinProbability,
		LastActivityAt:    d.LastActivityAt.Format(timestampFormat),
		WonAt:             formatOptional(d.WonAt, timestampFormat),
		WonNotes:          d.WonNotes,
		LostAt:            formatOptional(d.LostAt, timestampFormat),
		LostReason:        d.LostReason,
		Version:           d.Version,
		CreatedAt:         d.CreatedAt.Format(timestampFormat),
		UpdatedAt:         d.UpdatedAt.Format(timestampFormat),
	}
}

func toDealViewResponse(v app.DealView) DealResponse {
	resp := toDealResponse(v.Deal)
	resp.Rotting = v.Rotting.String()
	return resp
}

func formatOptional(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Format(layout)
}

// ActivityResponse is the API representation of an activity log entry.
type ActivityResponse struct {
	ID          string `json:"id" doc:"Unique identifier"`
	DealID      string `json:"deal_id"`
	Type        string `json:"activity_type"`
	Subject     string `json:"subject"`
	Description string `json:"description,omitempty"`
	FromStageID string `json:"from_stage_id,omitempty"`
	ToStageID   string `json:"to_stage_id,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
	CreatedAt   string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
}

func toActivityResponse(a domain.Activity) ActivityResponse {
	return ActivityResponse{
		ID:          a.ID,
		DealID:      a.DealID,
		Type:        string(a.Type),
		Subject:     a.Subject,
		Description: a.Description,
		FromStageID: a.FromStageID,
		ToStageID:   a.ToStageID,
		CreatedBy:   a.CreatedBy,
		CreatedAt:   a.CreatedAt.Format(timestampFormat),
	}
}

// StageForecastResponse is one stage row of a forecast.
type StageForecastResponse struct {
	StageID        string         `json:"stage_id"`
	Name           string         `json:"name"`
	WinProbability int            `json:"win_probability"`
	Count          int            `json:"count"`
	Total          string         `json:"total"`
	Weighted       string         `json:"weighted"`
	Rotting        map[string]int `json:"rotting" doc:"Deal count per staleness level"`
}

// ForecastResponse summarizes the open pipeline.
type ForecastResponse struct {
	Stages      []StageForecastResponse `json:"stages"`
	DealCount   int                     `json:"deal_count"`
	Total       string                  `json:"total"`
	Weighted    string                  `json:"weighted"`
	GeneratedAt string                  `json:"generated_at"`
}

func toForecastResponse(f domain.Forecast) ForecastResponse {
	resp := ForecastResponse{
		Stages:      make([]StageForecastResponse, len(f.Stages)),
		DealCount:   f.DealCount,
		Total:       f.Total.String(),
		Weighted:    f.Weighted.String(),
		GeneratedAt: f.GeneratedAt.Format(timestampFormat),
	}
	for i, sf := range f.Stages {
		rotting := make(map[string]int, len(sf.Rotting))
		for level, n := range sf.Rotting {
			rotting[domain.RottingLevel(level).String()] = n
		}
		resp.Stages[i] = StageForecastResponse{
			StageID:        sf.Stage.ID,
			Name:           sf.Stage.Name,
			WinProbability: sf.Stage.WinProbability,
			Count:          sf.Count,
			Total:          sf.Total.String(),
			Weighted:       sf.Weighted.String(),
			Rotting:        rotting,
		}
	}
	return resp
}

// CommandHeaders carries the optional caller identity and concurrency
// expectations shared by every deal command.
type CommandHeaders struct {
	ActorID         string `header:"X-Actor-ID" required:"false" doc:"Recorded as the activity author"`
	ExpectedStageID string `header:"X-Expected-Stage" required:"false" doc:"Reject the command unless the deal is still in this stage"`
	ExpectedVersion int64  `header:"X-Expected-Version" required:"false" doc:"Reject the command unless the deal still has this version"`
}

func (h CommandHeaders) options() app.CommandOptions {
	return app.CommandOptions{
		ActorID:         h.ActorID,
		ExpectedStageID: h.ExpectedStageID,
		ExpectedVersion: h.ExpectedVersion,
	}
}

// Register adds all pipeline API routes to the Huma API.
func Register(api huma.API, svc *app.PipelineService) {
	registerStages(api, svc)
	registerDeals(api, svc)
	registerActivities(api, svc)
	registerForecast(api, svc)
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		return huma.Error422UnprocessableEntity(vErr.Error())
	}

	var nfErr *domain.NotFoundError
	if errors.As(err, &nfErr) {
		return huma.Error404NotFound(nfErr.Error())
	}

	var isErr *domain.InvalidStateError
	if errors.As(err, &isErr) {
		return huma.Error409Conflict(isErr.Error())
	}

	var rcErr *domain.RequiresClosureDataError
	if errors.As(err, &rcErr) {
		return huma.Error422UnprocessableEntity(rcErr.Error())
	}

	var cErr *domain.ConflictError
	if errors.As(err, &cErr) {
		return huma.Error409Conflict(cErr.Error())
	}

	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		return huma.Error409Conflict(cfgErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
