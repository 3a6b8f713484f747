package devserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/g960059/exile-onboard/internal/api"
	"github.com/g960059/exile-onboard/internal/db"
	"github.com/g960059/exile-onboard/internal/model"
	"github.com/g960059/exile-onboard/internal/security"
)

const (
	minRating = 1
	maxRating = 5
)

// fieldError mirrors the validation-list shape of the production backend.
type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

func (s *Server) charactersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	account := strings.TrimSpace(q.Get("account"))
	realm := strings.TrimSpace(q.Get("realm"))
	if realm == "" {
		realm = api.RealmPC
	}
	if account == "" {
		s.writeValidation(w, fieldError{Loc: []string{"query", "account"}, Msg: "field required", Type: "missing"})
		return
	}
	if !api.ValidRealm(realm) {
		s.writeDetail(w, http.StatusUnprocessableEntity, "unsupported realm: "+realm)
		return
	}
	if isPrivate(account) {
		s.writeDetail(w, http.StatusForbidden, "Character list is private for this account.")
		return
	}

	records, err := s.store.ListCharacters(r.Context(), account, realm)
	if err != nil {
		s.logger.Error("list characters failed", "error", err)
		s.writeDetail(w, http.StatusInternalServerError, "character lookup failed")
		return
	}
	chars := make([]api.Character, 0, len(records))
	for _, c := range records {
		chars = append(chars, c.API())
	}
	s.writeJSON(w, http.StatusOK, api.CharactersEnvelope{
		Characters: chars,
		SortHint:   api.SortHintCreatedAt,
	})
}

// createRunHandler answers 200 for application-level failures too; the run
// outcome travels in the status field.
func (s *Server) createRunHandler(w http.ResponseWriter, r *http.Request) {
	var req api.RunRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.Account = strings.TrimSpace(req.Account)
	if req.Realm == "" {
		req.Realm = api.RealmPC
	}
	if req.Account == "" {
		s.writeValidation(w, fieldError{Loc: []string{"body", "account"}, Msg: "field required", Type: "missing"})
		return
	}
	if !api.ValidRealm(req.Realm) {
		s.writeDetail(w, http.StatusUnprocessableEntity, "unsupported realm: "+req.Realm)
		return
	}

	var chars []model.CharacterRecord
	if !isPrivate(req.Account) {
		var err error
		chars, err = s.store.ListCharacters(r.Context(), req.Account, req.Realm)
		if err != nil {
			s.logger.Error("list characters failed", "error", err)
			s.writeDetail(w, http.StatusInternalServerError, "character lookup failed")
			return
		}
	}

	runID := s.newID()
	result := BuildPreview(runID, req, chars)
	character := ""
	if len(chars) > 0 {
		character = result.CharacterSummary.Name
	}
	record := model.RunRecord{
		RunID:     runID,
		Account:   req.Account,
		Realm:     req.Realm,
		Character: character,
		Contact:   req.Contact,
		Intent:    req.Intent,
		Status:    result.Status,
		Result:    result,
		CreatedAt: s.now(),
	}
	if err := s.store.InsertRun(r.Context(), record); err != nil {
		s.logger.Error("store run failed", "run_id", runID, "error", err)
		s.writeDetail(w, http.StatusInternalServerError, "could not store run")
		return
	}
	contact := ""
	if req.Contact != nil {
		contact = *req.Contact
	}
	s.logger.Info("run created",
		"run_id", runID,
		"status", result.Status,
		"realm", req.Realm,
		"contact", security.RedactContact(contact),
	)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) getRunHandler(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimSpace(chi.URLParam(r, "runID"))
	if runID == "" {
		s.writeDetail(w, http.StatusNotFound, "run not found")
		return
	}
	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.writeDetail(w, http.StatusNotFound, "run not found")
			return
		}
		s.logger.Error("get run failed", "run_id", runID, "error", err)
		s.writeDetail(w, http.StatusInternalServerError, "could not load run")
		return
	}
	s.writeJSON(w, http.StatusOK, api.RunEnvelope{Result: run.Result})
}

func (s *Server) interestHandler(w http.ResponseWriter, r *http.Request) {
	var req api.InterestRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.RunID = strings.TrimSpace(req.RunID)
	if req.RunID == "" {
		s.writeValidation(w, fieldError{Loc: []string{"body", "run_id"}, Msg: "field required", Type: "missing"})
		return
	}
	if req.Rating != nil && (*req.Rating < minRating || *req.Rating > maxRating) {
		s.writeValidation(w, fieldError{Loc: []string{"body", "rating"}, Msg: "rating must be between 1 and 5", Type: "value_error"})
		return
	}

	in := model.InterestRecord{
		InterestID: s.newID(),
		RunID:      req.RunID,
		Contact:    req.Contact,
		Rating:     req.Rating,
		Intent:     req.Intent,
		Notes:      req.Notes,
		CreatedAt:  s.now(),
	}
	if err := s.store.InsertInterest(r.Context(), in); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.writeDetail(w, http.StatusNotFound, "run not found")
			return
		}
		s.logger.Error("store interest failed", "run_id", req.RunID, "error", err)
		s.writeDetail(w, http.StatusInternalServerError, "could not save interest")
		return
	}
	contact := ""
	if req.Contact != nil {
		contact = *req.Contact
	}
	s.logger.Info("interest saved", "run_id", req.RunID, "interest_id", in.InterestID, "contact", security.RedactContact(contact))
	s.writeJSON(w, http.StatusOK, api.InterestResponse{Saved: true, InterestID: in.InterestID})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeDetail(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		s.logger.Warn("invalid request body", "error", err, "body", security.RedactPayload(string(body)))
		s.writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeDetail(w http.ResponseWriter, status int, detail string) {
	raw, _ := json.Marshal(detail)
	s.writeJSON(w, status, api.ErrorResponse{Detail: raw})
}

func (s *Server) writeValidation(w http.ResponseWriter, errs ...fieldError) {
	raw, _ := json.Marshal(errs)
	s.writeJSON(w, http.StatusUnprocessableEntity, api.ErrorResponse{Detail: raw})
}
