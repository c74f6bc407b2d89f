package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"

	"github.com/neomorfeo/dealflow/internal/app"
	"github.com/neomorfeo/dealflow/internal/domain"
)

func toDealViewResponses(views []app.DealView) []DealResponse {
	resp := make([]DealResponse, len(views))
	for i, v := range views {
		resp[i] = toDealViewResponse(v)
	}
	return resp
}

// rawValue turns a decoded JSON scalar into the text domain.ParseValue
// expects. Values that are neither numbers nor strings map to "".
func rawValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return decimal.NewFromFloat(x).String()
	case json.Number:
		return x.String()
	default:
		return ""
	}
}

// --- Create Deal ---

type CreateDealInput struct {
	CommandHeaders
	Body struct {
		Title             string `json:"title" maxLength:"255" doc:"Deal title"`
		Value             any    `json:"value,omitempty" doc:"Monetary value as a number or decimal string; anything else is stored as 0"`
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
	}
}

type DealOutput struct {
	Body DealResponse
}

// --- Get / Delete Deal ---

type DealIDInput struct {
	ID string `path:"id" doc:"Deal ID"`
}

// --- List Deals ---

type ListDealsInput struct {
	Status  string `query:"status" required:"false" enum:"open,won,lost" doc:"Filter by status"`
	StageID string `query:"stage_id" required:"false" doc:"Filter by stage"`
	OwnerID string `query:"owner_id" required:"false" doc:"Filter by owner"`
	Limit   int    `query:"limit" required:"false" default:"50" doc:"Max results"`
	Offset  int    `query:"offset" required:"false" default:"0" doc:"Pagination offset"`
}

// --- Commands ---

type MoveDealInput struct {
	CommandHeaders
	ID   string `path:"id" doc:"Deal ID"`
	Body struct {
		StageID string `json:"stage_id" doc:"Target open stage"`
	}
}

type CloseWonInput struct {
	CommandHeaders
	ID   string `path:"id" doc:"Deal ID"`
	Body struct {
		Notes string `json:"notes,omitempty" doc:"Closing notes"`
	}
}

type CloseLostInput struct {
	CommandHeaders
	ID   string `path:"id" doc:"Deal ID"`
	Body struct {
		Reason string `json:"reason" doc:"Why the deal was lost"`
	}
}

func registerDeals(api huma.API, svc *app.PipelineService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-deal",
		Method:        http.MethodPost,
		Path:          "/api/v1/deals",
		Summary:       "Create a deal in the first open stage",
		Tags:          []string{"Deals"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateDealInput) (*DealOutput, error) {
		in := domain.DealInput{
			Title:        input.Body.Title,
			Value:        rawValue(input.Body.Value),
			Organization: input.Body.Organization,
			ContactName:  input.Body.ContactName,
			ContactEmail: input.Body.ContactEmail,
			ContactPhone: input.Body.ContactPhone,
			OwnerID:      input.Body.OwnerID,
			LeadID:       input.Body.LeadID,
			CustomerID:   input.Body.CustomerID,
			AuditID:      input.Body.AuditID,
			QuoteID:      input.Body.QuoteID,
		}
		if raw := input.Body.ExpectedCloseDate; raw != "" {
			date, err := time.Parse(time.DateOnly, raw)
			if err != nil {
				return nil, huma.Error422UnprocessableEntity("invalid expected_close_date: want YYYY-MM-DD")
			}
			in.ExpectedCloseDate = &date
		}

		deal, err := svc.CreateDeal(ctx, in, input.options())
		if err != nil {
			return nil, toHumaError(err)
		}
		return &DealOutput{Body: toDealResponse(deal)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-deal",
		Method:      http.MethodGet,
		Path:        "/api/v1/deals/{id}",
		Summary:     "Get a deal by ID",
		Tags:        []string{"Deals"},
	}, func(ctx context.Context, input *DealIDInput) (*DealOutput, error) {
		view, err := svc.GetDeal(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &DealOutput{Body: toDealViewResponse(view)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-deals",
		Method:      http.MethodGet,
		Path:        "/api/v1/deals",
		Summary:     "List deals",
		Tags:        []string{"Deals"},
	}, func(ctx context.Context, input *ListDealsInput) (*DealListOutput, error) {
		filter := domain.ListFilter{
			StageID: input.StageID,
			OwnerID: input.OwnerID,
			Limit:   input.Limit,
			Offset:  input.Offset,
		}
		if input.Status != "" {
			s := domain.Status(input.Status)
			filter.Status = &s
		}

		deals, err := svc.ListDeals(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &DealListOutput{Body: toDealViewResponses(deals)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-deal",
		Method:        http.MethodDelete,
		Path:          "/api/v1/deals/{id}",
		Summary:       "Delete a deal and its history",
		Tags:          []string{"Deals"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *DealIDInput) (*struct{}, error) {
		if err := svc.DeleteDeal(ctx, input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-deal",
		Method:      http.MethodPost,
		Path:        "/api/v1/deals/{id}/move",
		Summary:     "Move a deal to another open stage",
		Tags:        []string{"Deals"},
	}, func(ctx context.Context, input *MoveDealInput) (*DealOutput, error) {
		deal, err := svc.MoveDeal(ctx, input.ID, input.Body.StageID, input.options())
		if err != nil {
			return nil, toHumaError(err)
		}
		return &DealOutput{Body: toDealResponse(deal)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "close-deal-won",
		Method:      http.MethodPost,
		Path:        "/api/v1/deals/{id}/won",
		Summary:     "Close a deal as won",
		Tags:        []string{"Deals"},
	}, func(ctx context.Context, input *CloseWonInput) (*DealOutput, error) {
		deal, err := svc.CloseWon(ctx, input.ID, input.Body.Notes, input.options())
		if err != nil {
			return nil, toHumaError(err)
		}
		return &DealOutput{Body: toDealResponse(deal)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "close-deal-lost",
		Method:      http.MethodPost,
		Path:        "/api/v1/deals/{id}/lost",
		Summary:     "Close a deal as lost",
		Tags:        []string{"Deals"},
	}, func(ctx context.Context, input *CloseLostInput) (*DealOutput, error) {
		deal, err := svc.CloseLost(ctx, input.ID, input.Body.Reason, input.options())
		if err != nil {
			return nil, toHumaError(err)
		}
		return &DealOutput{Body: toDealResponse(deal)}, nil
	})
}
