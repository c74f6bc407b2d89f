package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/neomorfeo/dealflow/internal/adapter/fsm"
	adapter "github.com/neomorfeo/dealflow/internal/adapter/http"
	"github.com/neomorfeo/dealflow/internal/adapter/sqlite"
	"github.com/neomorfeo/dealflow/internal/app"
)

// newTestServer creates a full-stack httptest.Server with SQLite in-memory
// and the default stages seeded.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("creating test repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	svc := app.NewPipelineService(repo, fsm.New())
	if _, err := svc.SeedStages(context.Background(), app.DefaultStages()); err != nil {
		t.Fatalf("seeding stages: %v", err)
	}

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("dealflow", "0.1.0"))
	adapter.Register(api, svc)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv
}

// doRequest performs an HTTP request with context (avoids noctx linter).
func doRequest(t *testing.T, method, url, body string, headers ...string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, reader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want %d: %s", resp.StatusCode, want, body)
	}
}

// stageIDs returns the seeded stages keyed by name.
func stageIDs(t *testing.T, srv *httptest.Server) map[string]string {
	t.Helper()

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/stages", "")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	ids := make(map[string]string)
	for _, s := range decode[[]adapter.StageResponse](t, resp) {
		ids[s.Name] = s.ID
	}
	return ids
}

// mustCreateDeal creates a deal via the API and returns its response.
func mustCreateDeal(t *testing.T, srv *httptest.Server, title, value string) adapter.DealResponse {
	t.Helper()

	body := fmt.Sprintf(`{"title":%q,"value":%q}`, title, value)
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals", body, "X-Actor-ID", "u-1")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusCreated)

	return decode[adapter.DealResponse](t, resp)
}

// --- Stages ---

func TestListStages(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/stages", "")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	stages := decode[[]adapter.StageResponse](t, resp)
	if len(stages) != 6 {
		t.Fatalf("got %d stages, want 6", len(stages))
	}
	if stages[0].Name != "Lead" {
		t.Errorf("first stage = %q, want Lead", stages[0].Name)
	}
	if !stages[4].IsWon || !stages[5].IsLost {
		t.Errorf("terminal stages should come last, got %+v", stages[4:])
	}
}

func TestCreateStage(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/stages", `{"name":"Contract","win_probability":90,"rotting_days":5}`)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusCreated)

	stage := decode[adapter.StageResponse](t, resp)
	if stage.Position != 4 {
		t.Errorf("Position = %d, want 4", stage.Position)
	}
}

func TestCreateStage_InvalidProbability(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/stages", `{"name":"Contract","win_probability":150}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestUpdateStage_TerminalFlagRejected(t *testing.T) {
	srv := newTestServer(t)
	ids := stageIDs(t, srv)

	resp := doRequest(t, http.MethodPatch, srv.URL+"/api/v1/stages/"+ids["Lead"], `{"is_won":true}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestUpdateStage(t *testing.T) {
	srv := newTestServer(t)
	ids := stageIDs(t, srv)

	resp := doRequest(t, http.MethodPatch, srv.URL+"/api/v1/stages/"+ids["Lead"], `{"name":"Prospect","win_probability":15}`)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	stage := decode[adapter.StageResponse](t, resp)
	if stage.Name != "Prospect" || stage.WinProbability != 15 {
		t.Errorf("got %q/%d, want Prospect/15", stage.Name, stage.WinProbability)
	}
}

func TestReorderStages(t *testing.T) {
	srv := newTestServer(t)
	ids := stageIDs(t, srv)

	body := fmt.Sprintf(`{"stage_ids":[%q,%q,%q,%q]}`, ids["Negotiation"], ids["Proposal"], ids["Qualified"], ids["Lead"])
	resp := doRequest(t, http.MethodPut, srv.URL+"/api/v1/stages/order", body)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	stages := decode[[]adapter.StageResponse](t, resp)
	if stages[0].Name != "Negotiation" || stages[3].Name != "Lead" {
		t.Errorf("order = %s..%s", stages[0].Name, stages[3].Name)
	}
}

func TestReorderStages_Incomplete(t *testing.T) {
	srv := newTestServer(t)
	ids := stageIDs(t, srv)

	body := fmt.Sprintf(`{"stage_ids":[%q]}`, ids["Lead"])
	resp := doRequest(t, http.MethodPut, srv.URL+"/api/v1/stages/order", body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

// --- Deals ---

func TestCreateDeal(t *testing.T) {
	srv := newTestServer(t)
	ids := stageIDs(t, srv)

	deal := mustCreateDeal(t, srv, "Acme LED", "5000")

	if deal.ID == "" {
		t.Error("ID should not be empty")
	}
	if deal.StageID != ids["Lead"] {
		t.Errorf("StageID = %q, want Lead", deal.StageID)
	}
	if deal.Status != "open" {
		t.Errorf("Status = %q, want open", deal.Status)
	}
	if deal.Value != "5000" || deal.WeightedValue != "500" {
		t.Errorf("value/weighted = %s/%s, want 5000/500", deal.Value, deal.WeightedValue)
	}
	if deal.Version != 1 {
		t.Errorf("Version = %d, want 1", deal.Version)
	}
}

func TestCreateDeal_ValueForms(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"number", `{"title":"Acme LED","value":5000}`, "5000"},
		{"fractional number", `{"title":"Acme LED","value":1234.5}`, "1234.5"},
		{"decimal string", `{"title":"Acme LED","value":"750.25"}`, "750.25"},
		{"non-numeric string", `{"title":"Acme LED","value":"lots"}`, "0"},
		{"boolean", `{"title":"Acme LED","value":true}`, "0"},
		{"absent", `{"title":"Acme LED"}`, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)

			resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals", tt.body)
			defer resp.Body.Close()
			expectStatus(t, resp, http.StatusCreated)

			deal := decode[adapter.DealResponse](t, resp)
			if deal.Value != tt.want {
				t.Errorf("Value = %q, want %q", deal.Value, tt.want)
			}
		})
	}
}

func TestCreateDeal_MissingTitle(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals", `{"value":"10"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestCreateDeal_BadCloseDate(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals", `{"title":"x","expected_close_date":"next week"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestGetDeal_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/deals/nonexistent", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestGetDeal_IncludesRotting(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateDeal(t, srv, "Acme", "10")

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/deals/"+created.ID, "")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	deal := decode[adapter.DealResponse](t, resp)
	if deal.Rotting != "fresh" {
		t.Errorf("Rotting = %q, want fresh", deal.Rotting)
	}
}

func TestMoveDeal(t *testing.T) {
	srv := newTestServer(t)
	ids := stageIDs(t, srv)
	created := mustCreateDeal(t, srv, "Acme", "1000")

	body := fmt.Sprintf(`{"stage_id":%q}`, ids["Proposal"])
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals/"+created.ID+"/move", body)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	deal := decode[adapter.DealResponse](t, resp)
	if deal.StageID != ids["Proposal"] || deal.WinProbability != 50 {
		t.Errorf("stage/probability = %q/%d", deal.StageID, deal.WinProbability)
	}
	if deal.Version != 2 {
		t.Errorf("Version = %d, want 2", deal.Version)
	}
}

func TestMoveDeal_ToWonStage(t *testing.T) {
	srv := newTestServer(t)
	ids := stageIDs(t, srv)
	created := mustCreateDeal(t, srv, "Acme", "1000")

	body := fmt.Sprintf(`{"stage_id":%q}`, ids["Won"])
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals/"+created.ID+"/move", body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestMoveDeal_StaleExpectedStage(t *testing.T) {
	srv := newTestServer(t)
	ids := stageIDs(t, srv)
	created := mustCreateDeal(t, srv, "Acme", "1000")

	body := fmt.Sprintf(`{"stage_id":%q}`, ids["Proposal"])
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals/"+created.ID+"/move", body,
		"X-Expected-Stage", ids["Qualified"])
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestCloseWon_Twice(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateDeal(t, srv, "Acme", "1000")
	url := srv.URL + "/api/v1/deals/" + created.ID + "/won"

	resp := doRequest(t, http.MethodPost, url, `{"notes":"Signed"}`)
	expectStatus(t, resp, http.StatusOK)
	deal := decode[adapter.DealResponse](t, resp)
	resp.Body.Close()

	if deal.Status != "won" || deal.WonAt == "" || deal.WonNotes != "Signed" {
		t.Errorf("got %+v", deal)
	}

	resp = doRequest(t, http.MethodPost, url, `{"notes":"again"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestCloseLost_BlankReason(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateDeal(t, srv, "Acme", "1000")

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals/"+created.ID+"/lost", `{"reason":""}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestListDeals_FilterByStatus(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateDeal(t, srv, "Acme", "10")
	mustCreateDeal(t, srv, "Globex", "20")

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals/"+created.ID+"/lost", `{"reason":"budget"}`)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/v1/deals?status=open", "")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	deals := decode[[]adapter.DealResponse](t, resp)
	if len(deals) != 1 {
		t.Fatalf("got %d deals, want 1", len(deals))
	}
	if deals[0].Title != "Globex" {
		t.Errorf("Title = %q, want Globex", deals[0].Title)
	}
}

func TestStageDeals(t *testing.T) {
	srv := newTestServer(t)
	ids := stageIDs(t, srv)
	mustCreateDeal(t, srv, "Acme", "10")

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/stages/"+ids["Lead"]+"/deals", "")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	if deals := decode[[]adapter.DealResponse](t, resp); len(deals) != 1 {
		t.Errorf("got %d deals, want 1", len(deals))
	}
}

func TestDeleteDeal(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateDeal(t, srv, "Acme", "10")

	resp := doRequest(t, http.MethodDelete, srv.URL+"/api/v1/deals/"+created.ID, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/v1/deals/"+created.ID, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

// --- Activities ---

func TestActivities(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateDeal(t, srv, "Acme", "10")
	url := srv.URL + "/api/v1/deals/" + created.ID + "/activities"

	resp := doRequest(t, http.MethodPost, url, `{"activity_type":"call","subject":"Intro call"}`, "X-Actor-ID", "u-7")
	expectStatus(t, resp, http.StatusCreated)
	logged := decode[adapter.ActivityResponse](t, resp)
	resp.Body.Close()

	if logged.CreatedBy != "u-7" {
		t.Errorf("CreatedBy = %q, want u-7", logged.CreatedBy)
	}

	resp = doRequest(t, http.MethodGet, url, "")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	activities := decode[[]adapter.ActivityResponse](t, resp)
	if len(activities) != 2 {
		t.Fatalf("got %d activities, want 2", len(activities))
	}
	if activities[0].Type != "call" || activities[1].Type != "created" {
		t.Errorf("types = %s, %s", activities[0].Type, activities[1].Type)
	}
}

func TestLogActivity_SystemTypeRejected(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateDeal(t, srv, "Acme", "10")

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals/"+created.ID+"/activities", `{"activity_type":"won","subject":"x"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestLogActivity_DescribesManualTypes(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodGet, srv.URL+"/openapi.json", "")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	doc := decode[struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}](t, resp)

	raw, ok := doc.Paths["/api/v1/deals/{id}/activities"]["post"]
	if !ok {
		t.Fatal("log-activity operation missing from OpenAPI document")
	}
	var op struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(raw, &op); err != nil {
		t.Fatalf("decode operation: %v", err)
	}
	for _, want := range []string{"note, call, email, meeting and task", "stage_change"} {
		if !strings.Contains(op.Description, want) {
			t.Errorf("description %q missing %q", op.Description, want)
		}
	}
}

func TestListActivities_UnknownDeal(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/deals/nobody/activities", "")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	if activities := decode[[]adapter.ActivityResponse](t, resp); len(activities) != 0 {
		t.Errorf("got %d activities, want 0", len(activities))
	}
}

// --- Forecast ---

func TestForecast(t *testing.T) {
	srv := newTestServer(t)
	ids := stageIDs(t, srv)
	mustCreateDeal(t, srv, "Acme", "1000")
	second := mustCreateDeal(t, srv, "Globex", "2000")

	body := fmt.Sprintf(`{"stage_id":%q}`, ids["Negotiation"])
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/deals/"+second.ID+"/move", body)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/v1/forecast", "")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	f := decode[adapter.ForecastResponse](t, resp)
	if f.DealCount != 2 {
		t.Errorf("DealCount = %d, want 2", f.DealCount)
	}
	if f.Total != "3000" {
		t.Errorf("Total = %s, want 3000", f.Total)
	}
	// 1000 * 10% + 2000 * 75%
	if f.Weighted != "1600" {
		t.Errorf("Weighted = %s, want 1600", f.Weighted)
	}
	if len(f.Stages) != 4 {
		t.Errorf("got %d stage rows, want 4", len(f.Stages))
	}
}
