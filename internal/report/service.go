package report

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/apflow/roiserver/internal/roi"
	"github.com/apflow/roiserver/internal/scenario"
)

// Snapshot is the frozen copy of a scenario taken when a report is issued.
// Later edits or deletion of the scenario never reach it.
type Snapshot struct {
	ScenarioName string             `json:"scenario_name"`
	Input        roi.ScenarioInput  `json:"input"`
	Result       roi.ScenarioResult `json:"result"`
}

// Report binds a captured email address to a scenario snapshot. The
// scenario_id is a non-owning reference kept for traceability only.
type Report struct {
	ID          string    `json:"id"`
	ScenarioID  string    `json:"scenario_id"`
	Email       string    `json:"email"`
	Snapshot    Snapshot  `json:"snapshot"`
	GeneratedAt time.Time `json:"generated_at"`
}

// NotFoundError reports a reference to a report id that does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("report %q not found", e.ID)
}

// Service issues and retrieves reports. Generating a report never mutates
// the scenario it snapshots.
type Service struct {
	db        *sql.DB
	scenarios *scenario.Repo
}

func NewService(db *sql.DB, scenarios *scenario.Repo) *Service {
	return &Service{db: db, scenarios: scenarios}
}

// Generate resolves the scenario, validates the email, and stores a new
// report holding an immutable copy of the scenario's input and result.
func (s *Service) Generate(scenarioID, email string) (Report, error) {
	sc, err := s.scenarios.Get(scenarioID)
	if err != nil {
		return Report{}, err
	}
	if err := roi.ValidateEmail(email); err != nil {
		return Report{}, err
	}

	rep := Report{
		ID:         uuid.NewString(),
		ScenarioID: sc.ID,
		Email:      email,
		Snapshot: Snapshot{
			ScenarioName: sc.Name,
			Input:        sc.Input,
			Result:       sc.Result,
		},
		GeneratedAt: time.Now().UTC(),
	}

	snapshotJSON, err := json.Marshal(rep.Snapshot)
	if err != nil {
		return Report{}, fmt.Errorf("encode report snapshot: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO reports (id, scenario_id, email, snapshot_json, generated_at)
		VALUES (?, ?, ?, ?, ?)
	`, rep.ID, rep.ScenarioID, rep.Email, string(snapshotJSON), rep.GeneratedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Report{}, fmt.Errorf("insert report: %w", err)
	}

	return rep, nil
}

// Get returns a stored report with its frozen snapshot.
func (s *Service) Get(id string) (Report, error) {
	var rep Report
	var snapshotJSON, generatedAt string

	err := s.db.QueryRow(`
		SELECT id, scenario_id, email, snapshot_json, generated_at
		FROM reports
		WHERE id = ?
	`, id).Scan(&rep.ID, &rep.ScenarioID, &rep.Email, &snapshotJSON, &generatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, &NotFoundError{ID: id}
	}
	if err != nil {
		return Report{}, fmt.Errorf("query report: %w", err)
	}

	if err := json.Unmarshal([]byte(snapshotJSON), &rep.Snapshot); err != nil {
		return Report{}, fmt.Errorf("decode snapshot for report %s: %w", rep.ID, err)
	}
	if rep.GeneratedAt, err = time.Parse(time.RFC3339Nano, generatedAt); err != nil {
		return Report{}, fmt.Errorf("parse stored timestamp %q: %w", generatedAt, err)
	}

	return rep, nil
}
