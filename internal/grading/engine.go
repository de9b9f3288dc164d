package grading

import (
	"context"
	"log"
)

// Q is a minimal view of a question needed for grading. AnswerKey is
// expected in canonical form (see ParseAnswerKey).
type Q struct {
	ID        string
	Type      string
	AnswerKey []string
}

// Result is the outcome of grading a single question response.
type Result struct {
	Correct   bool
	Ambiguous bool // key was empty/unparseable; resolved to incorrect
}

// Strategy grades a single question.
type Strategy interface {
	Grade(ctx context.Context, q Q, selection []string) Result
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q Q, selection []string) Result
}

type defaultGrader struct {
	strategies map[string]Strategy
}

// NewDefaultGrader installs built-in strategies. Grading is total: a
// malformed key or unknown type resolves to incorrect rather than an
// error, so the learner is never blocked by bad content. Ambiguous
// results are logged for content triage.
func NewDefaultGrader() Grader {
	exact := exactStrategy{}
	return &defaultGrader{
		strategies: map[string]Strategy{
			"single":            exact,
			"true_false":        exact,
			"subquestion_group": exact,
			"multiple":          multiStrategy{},
		},
	}
}

func (g *defaultGrader) Grade(ctx context.Context, q Q, selection []string) Result {
	if len(q.AnswerKey) == 0 {
		log.Printf("grading: empty answer key for question %s (type=%s)", q.ID, q.Type)
		return Result{Ambiguous: true}
	}
	s, ok := g.strategies[q.Type]
	if !ok {
		log.Printf("grading: no strategy for question %s type %q", q.ID, q.Type)
		return Result{Ambiguous: true}
	}
	return s.Grade(ctx, q, Normalize(selection))
}

// exactStrategy covers single-choice questions and the true/false leaves
// of a subquestion group: one canonical token matched literally.
type exactStrategy struct{}

func (exactStrategy) Grade(_ context.Context, q Q, selection []string) Result {
	if len(selection) != 1 {
		return Result{}
	}
	for _, k := range q.AnswerKey {
		if selection[0] == k {
			return Result{Correct: true}
		}
	}
	return Result{}
}

// multiStrategy is order-independent set equality; no partial credit.
type multiStrategy struct{}

func (multiStrategy) Grade(_ context.Context, q Q, selection []string) Result {
	return Result{Correct: setsEqual(q.AnswerKey, selection)}
}
