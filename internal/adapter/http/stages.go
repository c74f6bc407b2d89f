package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/dealflow/internal/app"
	"github.com/neomorfeo/dealflow/internal/domain"
)

// --- List Stages ---

type ListStagesOutput struct {
	Body []StageResponse
}

// --- Create Stage ---

type CreateStageInput struct {
	Body struct {
		Name           string `json:"name" maxLength:"100" doc:"Display name"`
		Color          string `json:"color,omitempty" doc:"Display color"`
		WinProbability int    `json:"win_probability,omitempty" minimum:"0" maximum:"100" doc:"Chance of winning, 0-100"`
		RottingDays    int    `json:"rotting_days,omitempty" minimum:"0" doc:"Rotting threshold in days; 0 disables"`
	}
}

type StageOutput struct {
	Body StageResponse
}

// --- Update Stage ---

type UpdateStageInput struct {
	ID   string `path:"id" doc:"Stage ID"`
	Body struct {
		Name           *string `json:"name,omitempty"`
		Color          *string `json:"color,omitempty"`
		WinProbability *int    `json:"win_probability,omitempty"`
		RottingDays    *int    `json:"rotting_days,omitempty"`
		IsWon          *bool   `json:"is_won,omitempty" doc:"Rejected: terminal flags cannot change"`
		IsLost         *bool   `json:"is_lost,omitempty" doc:"Rejected: terminal flags cannot change"`
	}
}

// --- Reorder Stages ---

type ReorderStagesInput struct {
	Body struct {
		StageIDs []string `json:"stage_ids" doc:"Every open stage ID in the new order"`
	}
}

// --- Stage Deals ---

type StageDealsInput struct {
	ID string `path:"id" doc:"Stage ID"`
}

type DealListOutput struct {
	Body []DealResponse
}

func registerStages(api huma.API, svc *app.PipelineService) {
	huma.Register(api, huma.Operation{
		OperationID: "list-stages",
		Method:      http.MethodGet,
		Path:        "/api/v1/stages",
		Summary:     "List pipeline stages",
		Tags:        []string{"Stages"},
	}, func(ctx context.Context, _ *struct{}) (*ListStagesOutput, error) {
		stages, err := svc.ListStages(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ListStagesOutput{Body: toStageResponses(stages)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-stage",
		Method:        http.MethodPost,
		Path:          "/api/v1/stages",
		Summary:       "Append an open stage",
		Tags:          []string{"Stages"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateStageInput) (*StageOutput, error) {
		stage, err := svc.CreateStage(ctx, app.StageInput{
			Name:           input.Body.Name,
			Color:          input.Body.Color,
			WinProbability: input.Body.WinProbability,
			RottingDays:    input.Body.RottingDays,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &StageOutput{Body: toStageResponse(stage)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-stage",
		Method:      http.MethodPatch,
		Path:        "/api/v1/stages/{id}",
		Summary:     "Update a stage",
		Tags:        []string{"Stages"},
	}, func(ctx context.Context, input *UpdateStageInput) (*StageOutput, error) {
		stage, err := svc.UpdateStage(ctx, input.ID, domain.StagePatch{
			Name:           input.Body.Name,
			Color:          input.Body.Color,
			WinProbability: input.Body.WinProbability,
			RottingDays:    input.Body.RottingDays,
			IsWon:          input.Body.IsWon,
			IsLost:         input.Body.IsLost,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &StageOutput{Body: toStageResponse(stage)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reorder-stages",
		Method:      http.MethodPut,
		Path:        "/api/v1/stages/order",
		Summary:     "Reorder open stages",
		Tags:        []string{"Stages"},
	}, func(ctx context.Context, input *ReorderStagesInput) (*ListStagesOutput, error) {
		stages, err := svc.ReorderStages(ctx, input.Body.StageIDs)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ListStagesOutput{Body: toStageResponses(stages)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-stage-deals",
		Method:      http.MethodGet,
		Path:        "/api/v1/stages/{id}/deals",
		Summary:     "List deals in a stage",
		Tags:        []string{"Stages"},
	}, func(ctx context.Context, input *StageDealsInput) (*DealListOutput, error) {
		deals, err := svc.DealsByStage(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &DealListOutput{Body: toDealViewResponses(deals)}, nil
	})
}
