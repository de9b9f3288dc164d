package quiz

import (
	"context"
	"errors"
)

// Error taxonomy. HTTP status mapping happens at the API layer via
// errors.Is; core code wraps these with fmt.Errorf("%w: ...").
var (
	ErrValidation      = errors.New("validation failed")
	ErrFetch           = errors.New("fetch failed")
	ErrPersist         = errors.New("persist failed")
	ErrStaleWrite      = errors.New("stale write")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyAnswered = errors.New("question already answered")
	ErrFinalRequired   = errors.New("final submit required")
	ErrNotAnswered     = errors.New("current question not answered")
	ErrCycleCompleted  = errors.New("cycle already completed")
)

// Outcome filters for historical results.
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
)

// QuestionFilter narrows FetchQuestions. Zero fields are ignored; IDs
// membership wins over the other predicates when set.
type QuestionFilter struct {
	Type        string
	Subcategory string
	IDs         []string
	Limit       int
}

// Store is the narrow contract the engine needs from the backing service.
// The question pool is read-only reference data; progress records are
// owned exclusively by their (user, quiz type, cycle) key.
type Store interface {
	PutQuestion(ctx context.Context, q Question) error
	GetQuestion(ctx context.Context, id string) (Question, error)
	FetchQuestions(ctx context.Context, f QuestionFilter) ([]Question, error)

	// FetchHistoricalResults returns distinct question ids the user has
	// answered with the given outcome within a module.
	FetchHistoricalResults(ctx context.Context, userID, module string, outcome Outcome) ([]string, error)
	InsertResult(ctx context.Context, r Result) error

	// LatestProgress returns the highest-cycle record, or ErrNotFound.
	LatestProgress(ctx context.Context, userID, quizType string) (*ProgressRecord, error)
	InsertProgress(ctx context.Context, rec *ProgressRecord) error
	// UpdateProgress applies a full snapshot keyed by (user, quiz type,
	// cycle). The snapshot's Revision must be exactly one above the stored
	// one; otherwise ErrStaleWrite.
	UpdateProgress(ctx context.Context, rec *ProgressRecord) error
	ListProgress(ctx context.Context, userID, quizType string) ([]ProgressRecord, error)
	GetProgress(ctx context.Context, userID, quizType string, cycle int) (*ProgressRecord, error)

	InsertExamSession(ctx context.Context, s *ExamSession) (string, error)
	GetExamSession(ctx context.Context, id string) (*ExamSession, error)
}
