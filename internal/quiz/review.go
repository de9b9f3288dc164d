package quiz

import (
	"context"
	"fmt"
	"log"

	"github.com/quizdeck/quizdeck-api/internal/grading"
)

// ReviewItem is one question of a reconstructed past attempt.
type ReviewItem struct {
	Index       int      `json:"index"`
	Question    Question `json:"question"`
	Selected    []string `json:"selected"`
	Correct     bool     `json:"correct"`
	Answered    bool     `json:"answered"`
	Explanation string   `json:"explanation,omitempty"`
}

// Review is the read-only scored view of one cycle.
type Review struct {
	Cycle        int          `json:"cycle"`
	Completed    bool         `json:"completed"`
	CorrectCount int          `json:"correct_answers_count"`
	Items        []ReviewItem `json:"items"`
}

// Review reconstructs a past attempt: re-fetch the full question objects
// for the stored order and recompute per-index status by re-running the
// grading rule against the stored selections. The stored tallies remain
// authoritative; a regrade mismatch means the content changed since the
// attempt and is logged rather than rewritten.
func (t *Tracker) Review(ctx context.Context, userID, quizType string, cycle int) (*Review, error) {
	rec, err := t.store.GetProgress(ctx, userID, quizType, cycle)
	if err != nil {
		return nil, err
	}
	qs, err := t.store.FetchQuestions(ctx, QuestionFilter{IDs: rec.QuestionOrder})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Question, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}

	rv := &Review{
		Cycle:        rec.Cycle,
		Completed:    rec.Completed,
		CorrectCount: rec.CorrectCount,
		Items:        make([]ReviewItem, 0, len(rec.QuestionOrder)),
	}
	for idx, id := range rec.QuestionOrder {
		q, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: question %s from stored order", ErrNotFound, id)
		}
		sel := rec.SelectedAnswers[idx]
		item := ReviewItem{
			Index:       idx,
			Question:    q,
			Selected:    sel,
			Answered:    rec.Answered(idx),
			Explanation: q.Explanation,
		}
		if item.Answered {
			res := t.grader.Grade(ctx, grading.Q{ID: q.ID, Type: q.Type, AnswerKey: q.AnswerKey}, sel)
			item.Correct = res.Correct
			if stored := containsInt(rec.CorrectIdx, idx); stored != res.Correct {
				log.Printf("review: regrade mismatch for %s cycle %d index %d (stored=%v regraded=%v)",
					userID, cycle, idx, stored, res.Correct)
			}
		}
		rv.Items = append(rv.Items, item)
	}
	return rv, nil
}
