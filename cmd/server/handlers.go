package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/apflow/roiserver/internal/report"
	"github.com/apflow/roiserver/internal/roi"
	"github.com/apflow/roiserver/internal/scenario"
)

type createScenarioRequest struct {
	Name  string            `json:"scenario_name"`
	Input roi.ScenarioInput `json:"input"`
}

type updateScenarioRequest struct {
	Name  *string            `json:"scenario_name"`
	Input *roi.ScenarioInput `json:"input"`
}

type generateReportRequest struct {
	ScenarioID string `json:"scenario_id"`
	Email      string `json:"email"`
}

type errorResponse struct {
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Fields  []roi.FieldError `json:"fields,omitempty"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSimulate previews a projection without persisting anything.
func (s *server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var input roi.ScenarioInput
	if err := decodeBody(r.Body, &input); err != nil {
		s.writeError(w, err)
		return
	}
	if err := roi.ValidateInput(input); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.engine.Compute(input))
}

func (s *server) handleScenarioCreate(w http.ResponseWriter, r *http.Request) {
	var req createScenarioRequest
	if err := decodeBody(r.Body, &req); err != nil {
		s.writeError(w, err)
		return
	}

	sc, err := s.scenarios.Create(req.Name, req.Input)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sc)
}

func (s *server) handleScenarioList(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.scenarios.List()
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

func (s *server) handleScenarioGet(w http.ResponseWriter, r *http.Request) {
	sc, err := s.scenarios.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sc)
}

func (s *server) handleScenarioUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateScenarioRequest
	if err := decodeBody(r.Body, &req); err != nil {
		s.writeError(w, err)
		return
	}

	sc, err := s.scenarios.ApplyUpdate(chi.URLParam(r, "id"), scenario.Update{
		Name:  req.Name,
		Input: req.Input,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sc)
}

func (s *server) handleScenarioDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.scenarios.Delete(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleReportGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateReportRequest
	if err := decodeBody(r.Body, &req); err != nil {
		s.writeError(w, err)
		return
	}

	rep, err := s.reports.Generate(req.ScenarioID, req.Email)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rep)
}

func (s *server) handleReportGet(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reports.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

func decodeBody(body io.ReadCloser, v any) error {
	defer body.Close()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return roi.NewValidationError("body", "must be valid JSON")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy onto HTTP statuses with enough
// structured detail for a client to render a field-specific message.
func (s *server) writeError(w http.ResponseWriter, err error) {
	var validationErr *roi.ValidationError
	var duplicateErr *scenario.DuplicateNameError
	var scenarioNotFound *scenario.NotFoundError
	var reportNotFound *report.NotFoundError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "VALIDATION_ERROR",
			Message: validationErr.Error(),
			Fields:  validationErr.Fields,
		})
	case errors.As(err, &duplicateErr):
		writeJSON(w, http.StatusConflict, errorResponse{
			Code:    "DUPLICATE_NAME",
			Message: duplicateErr.Error(),
			Fields:  []roi.FieldError{{Field: "scenario_name", Message: "already exists"}},
		})
	case errors.As(err, &scenarioNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Code: "NOT_FOUND", Message: scenarioNotFound.Error()})
	case errors.As(err, &reportNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Code: "NOT_FOUND", Message: reportNotFound.Error()})
	default:
		s.log.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
	}
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}
