package quiz

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/quizdeck/quizdeck-api/internal/grading"
)

// Tracker owns the cycle state machine per (user, quiz type):
//
//	no-cycle -> active(n) -> active(n, completed) -> active(n+1) -> ...
//
// Every transition goes through one pipeline: load the latest snapshot,
// validate, build the next snapshot, persist it, and only then hand it
// back. The in-memory view never moves past an unacknowledged write; a
// failed persist leaves the stored record on the last committed snapshot
// and surfaces the error for retry.
type Tracker struct {
	store   Store
	builder *Builder
	grader  grading.Grader
	now     func() time.Time
}

func NewTracker(store Store, builder *Builder, grader grading.Grader) *Tracker {
	return &Tracker{store: store, builder: builder, grader: grader, now: time.Now}
}

// SessionState is what a (re)loading learner gets: the live record, the
// full question objects resolved in stored order, and where to resume.
type SessionState struct {
	Record      *ProgressRecord `json:"record"`
	Questions   []Question      `json:"questions"`
	ResumeIndex int             `json:"resume_index"`
}

// SubmitOutcome reports one graded submission.
type SubmitOutcome struct {
	Record      *ProgressRecord `json:"record"`
	Correct     bool            `json:"correct"`
	AnswerKey   []string        `json:"answer_key"`
	Explanation string          `json:"explanation,omitempty"`
}

// LoadOrStart restores the latest incomplete cycle, or starts a new one:
// cycle 1 when no record exists, previous+1 with a fresh shuffle when the
// latest is completed.
func (t *Tracker) LoadOrStart(ctx context.Context, userID, quizType string, cfg SessionConfig) (*SessionState, error) {
	latest, err := t.store.LatestProgress(ctx, userID, quizType)
	switch {
	case errors.Is(err, ErrNotFound):
		return t.startCycle(ctx, userID, quizType, cfg, 1)
	case err != nil:
		return nil, err
	case latest.Completed:
		return t.startCycle(ctx, userID, quizType, cfg, latest.Cycle+1)
	}

	// Re-resolve the stored order against the freshly fetched pool.
	qs, err := t.store.FetchQuestions(ctx, QuestionFilter{IDs: latest.QuestionOrder})
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("%w: stored question order resolves to nothing", ErrFetch)
	}
	return &SessionState{Record: latest, Questions: qs, ResumeIndex: latest.ResumeIndex()}, nil
}

func (t *Tracker) startCycle(ctx context.Context, userID, quizType string, cfg SessionConfig, cycle int) (*SessionState, error) {
	set, err := t.builder.Build(ctx, userID, cfg)
	if err != nil {
		return nil, err
	}
	now := t.now().Unix()
	rec := &ProgressRecord{
		UserID:          userID,
		QuizType:        quizType,
		Cycle:           cycle,
		QuestionOrder:   set.QuestionIDs,
		CurrentIndex:    0,
		SelectedAnswers: map[int][]string{},
		Completed:       false,
		Revision:        0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := t.store.InsertProgress(ctx, rec); err != nil {
		return nil, err
	}
	qs, err := t.store.FetchQuestions(ctx, QuestionFilter{IDs: rec.QuestionOrder})
	if err != nil {
		return nil, err
	}
	return &SessionState{Record: rec, Questions: qs, ResumeIndex: 0}, nil
}

// SubmitAnswer grades the question at currentIndex, updates the tallies
// exactly once for that index and persists, without advancing. A second
// submit for the same index before an advance is rejected.
func (t *Tracker) SubmitAnswer(ctx context.Context, userID, quizType string, selection []string) (*SubmitOutcome, error) {
	rec, err := t.activeRecord(ctx, userID, quizType)
	if err != nil {
		return nil, err
	}
	idx := rec.CurrentIndex
	if rec.Answered(idx) {
		return nil, fmt.Errorf("%w: index %d", ErrAlreadyAnswered, idx)
	}
	q, err := t.store.GetQuestion(ctx, rec.QuestionOrder[idx])
	if err != nil {
		return nil, err
	}

	res := t.grader.Grade(ctx, grading.Q{ID: q.ID, Type: q.Type, AnswerKey: q.AnswerKey}, selection)

	next := rec.clone()
	next.SelectedAnswers[idx] = grading.Normalize(selection)
	if res.Correct {
		next.CorrectIdx = append(next.CorrectIdx, idx)
		next.CorrectCount++
	} else {
		next.IncorrectIdx = append(next.IncorrectIdx, idx)
	}
	if err := t.persist(ctx, next); err != nil {
		return nil, err
	}

	// Familiarity history row. Best effort: the progress snapshot is the
	// durable truth, a lost row only widens the fallback pool.
	if err := t.store.InsertResult(ctx, Result{
		UserID:     userID,
		QuestionID: q.ID,
		Module:     q.Subcategory,
		Correct:    res.Correct,
		AnsweredAt: t.now().Unix(),
	}); err != nil {
		log.Printf("tracker: result row for %s/%s: %v", userID, q.ID, err)
	}

	return &SubmitOutcome{Record: next, Correct: res.Correct, AnswerKey: q.AnswerKey, Explanation: q.Explanation}, nil
}

// Advance moves to the next question after a graded submit. At the last
// index it refuses and demands FinalSubmit.
func (t *Tracker) Advance(ctx context.Context, userID, quizType string) (*ProgressRecord, error) {
	rec, err := t.activeRecord(ctx, userID, quizType)
	if err != nil {
		return nil, err
	}
	if !rec.Answered(rec.CurrentIndex) {
		return nil, fmt.Errorf("%w: index %d", ErrNotAnswered, rec.CurrentIndex)
	}
	if rec.CurrentIndex >= len(rec.QuestionOrder)-1 {
		return nil, ErrFinalRequired
	}
	next := rec.clone()
	next.CurrentIndex++
	if err := t.persist(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// FinalSubmit terminates the cycle. The record is never mutated again;
// the next LoadOrStart begins cycle+1.
func (t *Tracker) FinalSubmit(ctx context.Context, userID, quizType string) (*ProgressRecord, error) {
	rec, err := t.activeRecord(ctx, userID, quizType)
	if err != nil {
		return nil, err
	}
	if rec.CurrentIndex < len(rec.QuestionOrder)-1 {
		return nil, fmt.Errorf("%w: %d questions remain", ErrNotAnswered, len(rec.QuestionOrder)-1-rec.CurrentIndex)
	}
	if !rec.Answered(rec.CurrentIndex) {
		return nil, fmt.Errorf("%w: index %d", ErrNotAnswered, rec.CurrentIndex)
	}
	next := rec.clone()
	next.Completed = true
	if err := t.persist(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// History lists every cycle for (user, quiz type), newest first. Records
// are append-only across cycles, so completed attempts stay queryable.
func (t *Tracker) History(ctx context.Context, userID, quizType string) ([]ProgressRecord, error) {
	return t.store.ListProgress(ctx, userID, quizType)
}

func (t *Tracker) activeRecord(ctx context.Context, userID, quizType string) (*ProgressRecord, error) {
	rec, err := t.store.LatestProgress(ctx, userID, quizType)
	if err != nil {
		return nil, err
	}
	if rec.Completed {
		return nil, fmt.Errorf("%w: cycle %d", ErrCycleCompleted, rec.Cycle)
	}
	return rec, nil
}

func (t *Tracker) persist(ctx context.Context, rec *ProgressRecord) error {
	rec.Revision++
	rec.UpdatedAt = t.now().Unix()
	return t.store.UpdateProgress(ctx, rec)
}
