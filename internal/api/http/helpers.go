package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	auth "github.com/quizdeck/quizdeck-api/internal/auth/middleware"
	"github.com/quizdeck/quizdeck-api/internal/quiz"
	"github.com/quizdeck/quizdeck-api/internal/rbac"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps the core error taxonomy onto HTTP statuses.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quiz.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, quiz.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, quiz.ErrAlreadyAnswered),
		errors.Is(err, quiz.ErrNotAnswered),
		errors.Is(err, quiz.ErrFinalRequired),
		errors.Is(err, quiz.ErrCycleCompleted),
		errors.Is(err, quiz.ErrStaleWrite):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// sessionConfigReq tolerates the count arriving as a JSON number or a
// string; anything unparseable falls back to the builder default.
type sessionConfigReq struct {
	Style       string          `json:"style"`
	Module      string          `json:"module"`
	Familiarity string          `json:"familiarity"`
	Count       json.RawMessage `json:"count"`
	Timed       bool            `json:"timed"`
}

func (r sessionConfigReq) toConfig() quiz.SessionConfig {
	return quiz.SessionConfig{
		Style:       r.Style,
		Module:      r.Module,
		Familiarity: r.Familiarity,
		Count:       parseCount(r.Count),
		Timed:       r.Timed,
	}
}

func parseCount(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return 0
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// scopedUserID forces students onto their own records; roles with
// quiz:review-all may name another user via ?user_id=.
func scopedUserID(r *http.Request) string {
	sub := auth.SubjectFromContext(r.Context())
	role := rbac.RoleFromContext(r.Context())
	if override := r.URL.Query().Get("user_id"); override != "" &&
		rbac.NewChecker(nil).Has(role, "quiz:review-all") {
		return override
	}
	return sub
}

// sanitize strips grading data before a question reaches a live session.
func sanitize(qs []quiz.Question) []quiz.Question {
	out := make([]quiz.Question, len(qs))
	for i, q := range qs {
		q.AnswerKey = nil
		q.Explanation = ""
		out[i] = q
	}
	return out
}
