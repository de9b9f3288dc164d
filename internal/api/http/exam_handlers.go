package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	auth "github.com/quizdeck/quizdeck-api/internal/auth/middleware"
	"github.com/quizdeck/quizdeck-api/internal/quiz"
)

// POST /exams — start a single-shot mock exam. The resolved configuration
// and fixed question order are persisted once; the countdown itself runs
// client-side against end_time.
func StartExamHandler(b *quiz.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		var req sessionConfigReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		es, err := b.StartExam(r.Context(), userID, req.toConfig())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, es)
	}
}

// GET /exams/{sessionID}
func GetExamSessionHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		es, err := store.GetExamSession(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		if es.UserID != auth.SubjectFromContext(r.Context()) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(w, es)
	}
}
