package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/apflow/roiserver/internal/db"
	"github.com/apflow/roiserver/internal/migrations"
	"github.com/apflow/roiserver/internal/report"
	"github.com/apflow/roiserver/internal/roi"
	"github.com/apflow/roiserver/internal/scenario"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "handler-test.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	if err := migrations.Up(database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	engine := roi.NewEngine(roi.DefaultConstants())
	scenarios := scenario.NewRepo(database, engine)
	return newRouter(&server{
		engine:    engine,
		scenarios: scenarios,
		reports:   report.NewService(database, scenarios),
		db:        database,
		log:       log,
	})
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

const validScenarioInput = `{
	"monthly_invoice_volume": 2000,
	"num_ap_staff": 3,
	"avg_hours_per_invoice": 0.1667,
	"hourly_wage": 30,
	"error_rate_manual": 0.005,
	"error_cost": 100,
	"time_horizon_months": 36,
	"one_time_implementation_cost": 50000
}`

func TestSimulateReturnsResultWithoutPersisting(t *testing.T) {
	h := newTestHandler(t)

	rr := doJSON(t, h, http.MethodPost, "/api/simulate", validScenarioInput)
	if rr.Code != http.StatusOK {
		t.Fatalf("simulate status = %d, body: %s", rr.Code, rr.Body.String())
	}

	var result roi.ScenarioResult
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode simulate response: %v", err)
	}
	if result.MonthlySavings <= 0 || result.PaybackMonths.Undefined {
		t.Fatalf("unexpected simulate result: %+v", result)
	}

	list := doJSON(t, h, http.MethodGet, "/api/scenarios", "")
	if list.Code != http.StatusOK || strings.TrimSpace(list.Body.String()) != "[]" {
		t.Fatalf("simulate must not persist anything, list returned: %s", list.Body.String())
	}
}

func TestSimulateRejectsOutOfDomainInput(t *testing.T) {
	h := newTestHandler(t)

	rr := doJSON(t, h, http.MethodPost, "/api/simulate", `{"monthly_invoice_volume": 0, "time_horizon_months": 12}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}

	var resp struct {
		Code   string           `json:"code"`
		Fields []roi.FieldError `json:"fields"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != "VALIDATION_ERROR" || len(resp.Fields) == 0 {
		t.Fatalf("expected field-level validation details, got: %s", rr.Body.String())
	}
	if resp.Fields[0].Field != "monthly_invoice_volume" {
		t.Fatalf("expected monthly_invoice_volume error first, got %+v", resp.Fields)
	}
}

func TestSimulateUndefinedPaybackSerializesAsString(t *testing.T) {
	h := newTestHandler(t)

	// Labor cost exactly cancels the automation cost, so monthly savings is
	// zero and payback has a zero denominator.
	rr := doJSON(t, h, http.MethodPost, "/api/simulate", `{
		"monthly_invoice_volume": 1000,
		"num_ap_staff": 1,
		"avg_hours_per_invoice": 0.001,
		"hourly_wage": 200,
		"time_horizon_months": 12,
		"one_time_implementation_cost": 5000
	}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("simulate status = %d, body: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"payback_months":"undefined"`) {
		t.Fatalf("expected undefined payback in body: %s", rr.Body.String())
	}
}

func TestScenarioCRUDOverHTTP(t *testing.T) {
	h := newTestHandler(t)

	created := doJSON(t, h, http.MethodPost, "/api/scenarios", `{"scenario_name": "Acme", "input": `+validScenarioInput+`}`)
	if created.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body: %s", created.Code, created.Body.String())
	}

	var sc scenario.Scenario
	if err := json.Unmarshal(created.Body.Bytes(), &sc); err != nil {
		t.Fatalf("decode created scenario: %v", err)
	}
	if sc.ID == "" || sc.Name != "Acme" {
		t.Fatalf("unexpected created scenario: %+v", sc)
	}

	dup := doJSON(t, h, http.MethodPost, "/api/scenarios", `{"scenario_name": "Acme", "input": `+validScenarioInput+`}`)
	if dup.Code != http.StatusConflict {
		t.Fatalf("duplicate create status = %d, want 409", dup.Code)
	}
	if !strings.Contains(dup.Body.String(), "DUPLICATE_NAME") {
		t.Fatalf("expected DUPLICATE_NAME code, body: %s", dup.Body.String())
	}

	got := doJSON(t, h, http.MethodGet, "/api/scenarios/"+sc.ID, "")
	if got.Code != http.StatusOK {
		t.Fatalf("get status = %d", got.Code)
	}

	renamed := doJSON(t, h, http.MethodPut, "/api/scenarios/"+sc.ID, `{"scenario_name": "Acme Corp"}`)
	if renamed.Code != http.StatusOK {
		t.Fatalf("rename status = %d, body: %s", renamed.Code, renamed.Body.String())
	}
	var afterRename scenario.Scenario
	if err := json.Unmarshal(renamed.Body.Bytes(), &afterRename); err != nil {
		t.Fatalf("decode renamed scenario: %v", err)
	}
	if afterRename.Name != "Acme Corp" || afterRename.Result != sc.Result {
		t.Fatalf("rename must keep the result: %+v", afterRename)
	}

	deleted := doJSON(t, h, http.MethodDelete, "/api/scenarios/"+sc.ID, "")
	if deleted.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", deleted.Code)
	}

	missing := doJSON(t, h, http.MethodGet, "/api/scenarios/"+sc.ID, "")
	if missing.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", missing.Code)
	}
}

func TestReportEndpoints(t *testing.T) {
	h := newTestHandler(t)

	created := doJSON(t, h, http.MethodPost, "/api/scenarios", `{"scenario_name": "Acme", "input": `+validScenarioInput+`}`)
	if created.Code != http.StatusCreated {
		t.Fatalf("create status = %d", created.Code)
	}
	var sc scenario.Scenario
	if err := json.Unmarshal(created.Body.Bytes(), &sc); err != nil {
		t.Fatalf("decode created scenario: %v", err)
	}

	missing := doJSON(t, h, http.MethodPost, "/api/reports", `{"scenario_id": "no-such-id", "email": "cfo@example.com"}`)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("report for missing scenario status = %d, want 404", missing.Code)
	}

	badEmail := doJSON(t, h, http.MethodPost, "/api/reports", `{"scenario_id": "`+sc.ID+`", "email": "nope"}`)
	if badEmail.Code != http.StatusBadRequest {
		t.Fatalf("report with bad email status = %d, want 400", badEmail.Code)
	}

	issued := doJSON(t, h, http.MethodPost, "/api/reports", `{"scenario_id": "`+sc.ID+`", "email": "cfo@example.com"}`)
	if issued.Code != http.StatusCreated {
		t.Fatalf("report status = %d, body: %s", issued.Code, issued.Body.String())
	}
	var rep report.Report
	if err := json.Unmarshal(issued.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Snapshot.Result != sc.Result {
		t.Fatalf("report snapshot does not match scenario result: %+v", rep.Snapshot)
	}

	fetched := doJSON(t, h, http.MethodGet, "/api/reports/"+rep.ID, "")
	if fetched.Code != http.StatusOK {
		t.Fatalf("get report status = %d", fetched.Code)
	}
}

func TestMalformedJSONBody(t *testing.T) {
	h := newTestHandler(t)

	rr := doJSON(t, h, http.MethodPost, "/api/simulate", `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "VALIDATION_ERROR") {
		t.Fatalf("expected VALIDATION_ERROR code, body: %s", rr.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t)

	rr := doJSON(t, h, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rr.Code)
	}
}
