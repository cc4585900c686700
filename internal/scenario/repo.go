package scenario

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/apflow/roiserver/internal/roi"
)

// Scenario is a named, persisted set of business-metric inputs plus their
// computed projection result. The result is always the pure function of the
// co-stored input under the engine's constant set.
type Scenario struct {
	ID        string             `json:"id"`
	Name      string             `json:"scenario_name"`
	Input     roi.ScenarioInput  `json:"input"`
	Result    roi.ScenarioResult `json:"result"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Summary is the listing shape: headline figures without the full input.
type Summary struct {
	ID                string    `json:"id"`
	Name              string    `json:"scenario_name"`
	MonthlySavings    float64   `json:"monthly_savings"`
	CumulativeSavings float64   `json:"cumulative_savings"`
	PaybackMonths     roi.Ratio `json:"payback_months"`
	ROIPercentage     roi.Ratio `json:"roi_percentage"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Update carries the optional fields of an update request. Nil means
// "leave unchanged".
type Update struct {
	Name  *string
	Input *roi.ScenarioInput
}

// Repo persists scenarios in SQLite. Name uniqueness is enforced by a
// unique index, so the check and the write are atomic with respect to
// concurrent writers.
type Repo struct {
	db     *sql.DB
	engine *roi.Engine
}

func NewRepo(db *sql.DB, engine *roi.Engine) *Repo {
	return &Repo{db: db, engine: engine}
}

// Create validates the name and input, computes the result, and stores the
// scenario under a server-assigned id. Nothing is written on failure.
func (r *Repo) Create(name string, input roi.ScenarioInput) (Scenario, error) {
	if strings.TrimSpace(name) == "" {
		return Scenario{}, roi.NewValidationError("scenario_name", "is required")
	}
	if err := roi.ValidateInput(input); err != nil {
		return Scenario{}, err
	}

	now := time.Now().UTC()
	sc := Scenario{
		ID:        uuid.NewString(),
		Name:      name,
		Input:     input,
		Result:    r.engine.Compute(input),
		CreatedAt: now,
		UpdatedAt: now,
	}

	inputJSON, resultJSON, err := marshalPayload(sc.Input, sc.Result)
	if err != nil {
		return Scenario{}, err
	}

	_, err = r.db.Exec(`
		INSERT INTO scenarios (id, name, input_json, result_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sc.ID, sc.Name, inputJSON, resultJSON, formatTime(sc.CreatedAt), formatTime(sc.UpdatedAt))
	if err != nil {
		if isNameConflict(err) {
			return Scenario{}, &DuplicateNameError{Name: name}
		}
		return Scenario{}, fmt.Errorf("insert scenario: %w", err)
	}

	return sc, nil
}

// Get returns the scenario stored under id.
func (r *Repo) Get(id string) (Scenario, error) {
	return scanScenario(r.db.QueryRow(`
		SELECT id, name, input_json, result_json, created_at, updated_at
		FROM scenarios
		WHERE id = ?
	`, id), id)
}

// List returns scenario summaries, newest first. The ordering is stable for
// a given read but carries no further meaning.
func (r *Repo) List() ([]Summary, error) {
	rows, err := r.db.Query(`
		SELECT id, name, result_json, created_at, updated_at
		FROM scenarios
		ORDER BY datetime(created_at) DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query scenarios: %w", err)
	}
	defer rows.Close()

	summaries := make([]Summary, 0)
	for rows.Next() {
		var s Summary
		var resultJSON, createdAt, updatedAt string
		if err := rows.Scan(&s.ID, &s.Name, &resultJSON, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan scenario summary: %w", err)
		}

		var result roi.ScenarioResult
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			return nil, fmt.Errorf("decode result for scenario %s: %w", s.ID, err)
		}
		s.MonthlySavings = result.MonthlySavings
		s.CumulativeSavings = result.CumulativeSavings
		s.PaybackMonths = result.PaybackMonths
		s.ROIPercentage = result.ROIPercentage

		if s.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenarios: %w", err)
	}

	return summaries, nil
}

// ApplyUpdate renames the scenario and/or replaces its input. An input
// change recomputes the result wholesale; a rename alone leaves the stored
// result untouched. updated_at is refreshed either way.
func (r *Repo) ApplyUpdate(id string, upd Update) (Scenario, error) {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return Scenario{}, roi.NewValidationError("scenario_name", "is required")
	}
	if upd.Input != nil {
		if err := roi.ValidateInput(*upd.Input); err != nil {
			return Scenario{}, err
		}
	}

	tx, err := r.db.Begin()
	if err != nil {
		return Scenario{}, fmt.Errorf("begin update transaction: %w", err)
	}
	defer tx.Rollback()

	sc, err := scanScenario(tx.QueryRow(`
		SELECT id, name, input_json, result_json, created_at, updated_at
		FROM scenarios
		WHERE id = ?
	`, id), id)
	if err != nil {
		return Scenario{}, err
	}

	if upd.Name != nil {
		sc.Name = *upd.Name
	}
	if upd.Input != nil {
		sc.Input = *upd.Input
		sc.Result = r.engine.Compute(*upd.Input)
	}
	sc.UpdatedAt = time.Now().UTC()

	inputJSON, resultJSON, err := marshalPayload(sc.Input, sc.Result)
	if err != nil {
		return Scenario{}, err
	}

	_, err = tx.Exec(`
		UPDATE scenarios
		SET name = ?, input_json = ?, result_json = ?, updated_at = ?
		WHERE id = ?
	`, sc.Name, inputJSON, resultJSON, formatTime(sc.UpdatedAt), sc.ID)
	if err != nil {
		if isNameConflict(err) {
			return Scenario{}, &DuplicateNameError{Name: sc.Name}
		}
		return Scenario{}, fmt.Errorf("update scenario: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Scenario{}, fmt.Errorf("commit scenario update: %w", err)
	}

	return sc, nil
}

// Delete removes the scenario. Reports issued from it are untouched; they
// hold their own snapshot, not a reference into this table.
func (r *Repo) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM scenarios WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete scenario: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete scenario: %w", err)
	}
	if affected == 0 {
		return &NotFoundError{ID: id}
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScenario(row rowScanner, id string) (Scenario, error) {
	var sc Scenario
	var inputJSON, resultJSON, createdAt, updatedAt string

	err := row.Scan(&sc.ID, &sc.Name, &inputJSON, &resultJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Scenario{}, &NotFoundError{ID: id}
	}
	if err != nil {
		return Scenario{}, fmt.Errorf("scan scenario: %w", err)
	}

	if err := json.Unmarshal([]byte(inputJSON), &sc.Input); err != nil {
		return Scenario{}, fmt.Errorf("decode input for scenario %s: %w", sc.ID, err)
	}
	if err := json.Unmarshal([]byte(resultJSON), &sc.Result); err != nil {
		return Scenario{}, fmt.Errorf("decode result for scenario %s: %w", sc.ID, err)
	}
	if sc.CreatedAt, err = parseTime(createdAt); err != nil {
		return Scenario{}, err
	}
	if sc.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Scenario{}, err
	}

	return sc, nil
}

func marshalPayload(input roi.ScenarioInput, result roi.ScenarioResult) (string, string, error) {
	inputJSON, err := json.Marshal(input)
	if err != nil {
		return "", "", fmt.Errorf("encode scenario input: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return "", "", fmt.Errorf("encode scenario result: %w", err)
	}
	return string(inputJSON), string(resultJSON), nil
}

func isNameConflict(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: scenarios.name")
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", raw, err)
	}
	return t, nil
}
