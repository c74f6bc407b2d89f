package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/dealflow/internal/app"
	"github.com/neomorfeo/dealflow/internal/domain"
)

// --- Log Activity ---

type LogActivityInput struct {
	CommandHeaders
	ID   string `path:"id" doc:"Deal ID"`
	Body struct {
		Type        string `json:"activity_type" enum:"note,call,email,meeting,task" doc:"Manual activity type"`
		Subject     string `json:"subject" doc:"Short summary"`
		Description string `json:"description,omitempty"`
		CreatedBy   string `json:"created_by,omitempty" doc:"Author; defaults to X-Actor-ID"`
	}
}

type ActivityOutput struct {
	Body ActivityResponse
}

type ActivityListOutput struct {
	Body []ActivityResponse
}

// --- Forecast ---

type ForecastOutput struct {
	Body ForecastResponse
}

func registerActivities(api huma.API, svc *app.PipelineService) {
	huma.Register(api, huma.Operation{
		OperationID:   "log-activity",
		Method:        http.MethodPost,
		Path:          "/api/v1/deals/{id}/activities",
		Summary:       "Log an activity against a deal",
		Description:   "Accepts the manual types note, call, email, meeting and task. " +
			"created, stage_change, won and lost entries are written only by deal commands.",
		Tags:          []string{"Activities"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *LogActivityInput) (*ActivityOutput, error) {
		activity, err := svc.LogActivity(ctx, input.ID, domain.ActivityInput{
			Type:        domain.ActivityType(input.Body.Type),
			Subject:     input.Body.Subject,
			Description: input.Body.Description,
			CreatedBy:   input.Body.CreatedBy,
		}, input.options())
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ActivityOutput{Body: toActivityResponse(activity)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-activities",
		Method:      http.MethodGet,
		Path:        "/api/v1/deals/{id}/activities",
		Summary:     "List a deal's activity history, most recent first",
		Tags:        []string{"Activities"},
	}, func(ctx context.Context, input *DealIDInput) (*ActivityListOutput, error) {
		resp := []ActivityResponse{}
		for a, err := range svc.ActivityHistory(ctx, input.ID) {
			if err != nil {
				return nil, toHumaError(err)
			}
			resp = append(resp, toActivityResponse(a))
		}
		return &ActivityListOutput{Body: resp}, nil
	})
}

func registerForecast(api huma.API, svc *app.PipelineService) {
	huma.Register(api, huma.Operation{
		OperationID: "get-forecast",
		Method:      http.MethodGet,
		Path:        "/api/v1/forecast",
		Summary:     "Summarize the open pipeline per stage",
		Tags:        []string{"Forecast"},
	}, func(ctx context.Context, _ *struct{}) (*ForecastOutput, error) {
		f, err := svc.Forecast(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ForecastOutput{Body: toForecastResponse(f)}, nil
	})
}
