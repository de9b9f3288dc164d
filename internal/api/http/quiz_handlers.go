package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	auth "github.com/quizdeck/quizdeck-api/internal/auth/middleware"
	"github.com/quizdeck/quizdeck-api/internal/quiz"
)

// sessionView is SessionState with grading data stripped for the learner.
type sessionView struct {
	Record      *quiz.ProgressRecord `json:"record"`
	Questions   []quiz.Question      `json:"questions"`
	ResumeIndex int                  `json:"resume_index"`
}

func toView(st *quiz.SessionState) sessionView {
	return sessionView{Record: st.Record, Questions: sanitize(st.Questions), ResumeIndex: st.ResumeIndex}
}

// POST /quizzes/{quizType}/session — resume the latest incomplete cycle
// or start a new one. The body carries the session configuration used
// when a fresh cycle has to be built.
func StartSessionHandler(tr *quiz.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		quizType := chi.URLParam(r, "quizType")
		var req sessionConfigReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		st, err := tr.LoadOrStart(r.Context(), userID, quizType, req.toConfig())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, toView(st))
	}
}

// POST /quizzes/{quizType}/session/answer  { "selection": ["A","C"] }
func SubmitAnswerHandler(tr *quiz.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		quizType := chi.URLParam(r, "quizType")
		var req struct {
			Selection []string `json:"selection"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		out, err := tr.SubmitAnswer(r.Context(), userID, quizType, req.Selection)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, out)
	}
}

// POST /quizzes/{quizType}/session/advance
func AdvanceHandler(tr *quiz.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		rec, err := tr.Advance(r.Context(), userID, chi.URLParam(r, "quizType"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, rec)
	}
}

// POST /quizzes/{quizType}/session/final
func FinalSubmitHandler(tr *quiz.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		rec, err := tr.FinalSubmit(r.Context(), userID, chi.URLParam(r, "quizType"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, rec)
	}
}

// GET /quizzes/{quizType}/history — every past cycle, newest first.
// Students only see their own; quiz:review-all may pass ?user_id=.
func HistoryHandler(tr *quiz.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := scopedUserID(r)
		recs, err := tr.History(r.Context(), userID, chi.URLParam(r, "quizType"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, recs)
	}
}

// GET /quizzes/{quizType}/history/{cycle}/review — reconstructed, scored
// view of a past attempt.
func ReviewHandler(tr *quiz.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := scopedUserID(r)
		cycle := parseIntDefault(chi.URLParam(r, "cycle"), 0)
		if cycle < 1 {
			http.Error(w, "bad cycle", http.StatusBadRequest)
			return
		}
		rv, err := tr.Review(r.Context(), userID, chi.URLParam(r, "quizType"), cycle)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, rv)
	}
}
