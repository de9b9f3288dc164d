package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/quizdeck/quizdeck-api/internal/quiz"
	"github.com/quizdeck/quizdeck-api/internal/rbac"
)

// POST /questions — admin ingest. This is the narrow write contract the
// engine needs for its reference data; full content management lives in
// the admin collaborator.
func PutQuestionHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q quiz.Question
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if q.ID == "" || q.Type == "" || q.Text == "" {
			http.Error(w, "id, type and text required", http.StatusBadRequest)
			return
		}
		if err := store.PutQuestion(r.Context(), q); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]string{"id": q.ID})
	}
}

// GET /questions/{questionID} — the answer key travels only to roles
// allowed to manage content.
func GetQuestionHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := store.GetQuestion(r.Context(), chi.URLParam(r, "questionID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		if !rbac.NewChecker(nil).Has(rbac.RoleFromContext(r.Context()), "question:manage") {
			q = sanitize([]quiz.Question{q})[0]
		}
		writeJSON(w, q)
	}
}

// GET /questions?type=...&module=...&limit=...
func ListQuestionsHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := quiz.QuestionFilter{
			Type:        strings.TrimSpace(r.URL.Query().Get("type")),
			Subcategory: strings.TrimSpace(r.URL.Query().Get("module")),
			Limit:       parseIntDefault(r.URL.Query().Get("limit"), 50),
		}
		qs, err := store.FetchQuestions(r.Context(), f)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, sanitize(qs))
	}
}
