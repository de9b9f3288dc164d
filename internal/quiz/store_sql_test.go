package quiz_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/quizdeck/quizdeck-api/internal/db"
	"github.com/quizdeck/quizdeck-api/internal/quiz"
)

func newSQLiteStore(t *testing.T) *quiz.SQLStore {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	return quiz.NewSQLStore(dbh, "sqlite")
}

func TestSQLQuestionRoundTrip(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	in := quiz.Question{
		ID:          "q-1",
		Type:        quiz.TypeMultiple,
		Text:        "pick two",
		Options:     []string{"A", "B", "C"},
		AnswerKey:   []string{"A", "C"},
		Explanation: "because",
		Category:    "science",
		Subcategory: "anatomy",
	}
	if err := s.PutQuestion(ctx, in); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.GetQuestion(ctx, "q-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// the comma-joined stored key comes back as the canonical set
	if !reflect.DeepEqual(got.AnswerKey, []string{"A", "C"}) {
		t.Fatalf("answer key: %v", got.AnswerKey)
	}
	if !reflect.DeepEqual(got.Options, in.Options) || got.Subcategory != "anatomy" {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	// upsert replaces in place
	in.Text = "pick two, revised"
	if err := s.PutQuestion(ctx, in); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, _ = s.GetQuestion(ctx, "q-1")
	if got.Text != "pick two, revised" {
		t.Fatalf("upsert did not replace: %q", got.Text)
	}

	if _, err := s.GetQuestion(ctx, "missing"); !errors.Is(err, quiz.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSQLFetchQuestionsFilters(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	for _, q := range []quiz.Question{
		{ID: "s1", Type: quiz.TypeSingle, Text: "t", AnswerKey: []string{"A"}, Subcategory: "anatomy"},
		{ID: "s2", Type: quiz.TypeSingle, Text: "t", AnswerKey: []string{"A"}, Subcategory: "physio"},
		{ID: "m1", Type: quiz.TypeMultiple, Text: "t", AnswerKey: []string{"A", "B"}, Subcategory: "anatomy"},
	} {
		if err := s.PutQuestion(ctx, q); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	qs, err := s.FetchQuestions(ctx, quiz.QuestionFilter{Type: quiz.TypeSingle})
	if err != nil {
		t.Fatalf("fetch by type: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("want 2 singles, got %d", len(qs))
	}

	qs, err = s.FetchQuestions(ctx, quiz.QuestionFilter{Subcategory: "anatomy"})
	if err != nil {
		t.Fatalf("fetch by module: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("want 2 anatomy questions, got %d", len(qs))
	}

	// id membership preserves the caller's order
	qs, err = s.FetchQuestions(ctx, quiz.QuestionFilter{IDs: []string{"m1", "s1"}})
	if err != nil {
		t.Fatalf("fetch by ids: %v", err)
	}
	if len(qs) != 2 || qs[0].ID != "m1" || qs[1].ID != "s1" {
		t.Fatalf("id order not preserved: %+v", qs)
	}
}

func TestSQLProgressRoundTripAndRevision(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	rec := &quiz.ProgressRecord{
		UserID:          "u1",
		QuizType:        "standard",
		Cycle:           1,
		QuestionOrder:   []string{"a", "b", "c"},
		SelectedAnswers: map[int][]string{},
		CreatedAt:       100,
		UpdatedAt:       100,
	}
	if err := s.InsertProgress(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.LatestProgress(ctx, "u1", "standard")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if !reflect.DeepEqual(got.QuestionOrder, rec.QuestionOrder) || got.Cycle != 1 || got.Revision != 0 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	got.SelectedAnswers[0] = []string{"A"}
	got.CorrectIdx = []int{0}
	got.CorrectCount = 1
	got.Revision = 1
	got.UpdatedAt = 200
	if err := s.UpdateProgress(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	// same target revision again: stale
	stale := *got
	if err := s.UpdateProgress(ctx, &stale); !errors.Is(err, quiz.ErrStaleWrite) {
		t.Fatalf("want ErrStaleWrite, got %v", err)
	}

	reloaded, _ := s.LatestProgress(ctx, "u1", "standard")
	if reloaded.CorrectCount != 1 || !reflect.DeepEqual(reloaded.SelectedAnswers[0], []string{"A"}) {
		t.Fatalf("update lost state: %+v", reloaded)
	}

	// second cycle: latest flips, both remain queryable
	rec2 := &quiz.ProgressRecord{
		UserID: "u1", QuizType: "standard", Cycle: 2,
		QuestionOrder: []string{"c", "a", "b"}, SelectedAnswers: map[int][]string{},
	}
	if err := s.InsertProgress(ctx, rec2); err != nil {
		t.Fatalf("insert cycle 2: %v", err)
	}
	latest, _ := s.LatestProgress(ctx, "u1", "standard")
	if latest.Cycle != 2 {
		t.Fatalf("latest should be cycle 2, got %d", latest.Cycle)
	}
	all, err := s.ListProgress(ctx, "u1", "standard")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].Cycle != 2 || all[1].Cycle != 1 {
		t.Fatalf("list order wrong: %+v", all)
	}

	if _, err := s.LatestProgress(ctx, "u1", "other"); !errors.Is(err, quiz.ErrNotFound) {
		t.Fatalf("want ErrNotFound for unknown quiz type, got %v", err)
	}
}

func TestSQLHistoricalResultsDistinct(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	for _, q := range []quiz.Question{
		{ID: "h1", Type: quiz.TypeSingle, Text: "t", AnswerKey: []string{"A"}, Subcategory: "anatomy"},
		{ID: "h2", Type: quiz.TypeSingle, Text: "t", AnswerKey: []string{"A"}, Subcategory: "anatomy"},
	} {
		if err := s.PutQuestion(ctx, q); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	// h1 answered wrong twice, h2 right once
	for _, r := range []quiz.Result{
		{UserID: "u1", QuestionID: "h1", Module: "anatomy", Correct: false, AnsweredAt: 1},
		{UserID: "u1", QuestionID: "h1", Module: "anatomy", Correct: false, AnsweredAt: 2},
		{UserID: "u1", QuestionID: "h2", Module: "anatomy", Correct: true, AnsweredAt: 3},
	} {
		if err := s.InsertResult(ctx, r); err != nil {
			t.Fatalf("insert result: %v", err)
		}
	}

	wrong, err := s.FetchHistoricalResults(ctx, "u1", "anatomy", quiz.OutcomeIncorrect)
	if err != nil {
		t.Fatalf("fetch incorrect: %v", err)
	}
	if len(wrong) != 1 || wrong[0] != "h1" {
		t.Fatalf("distinct incorrect ids: %v", wrong)
	}
	right, err := s.FetchHistoricalResults(ctx, "u1", "anatomy", quiz.OutcomeCorrect)
	if err != nil {
		t.Fatalf("fetch correct: %v", err)
	}
	if len(right) != 1 || right[0] != "h2" {
		t.Fatalf("distinct correct ids: %v", right)
	}
}

func TestSQLExamSessionRoundTrip(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	end := int64(1_700_000_600)
	es := &quiz.ExamSession{
		UserID:      "u1",
		Style:       quiz.StyleStandard,
		Count:       10,
		Timed:       true,
		QuestionIDs: []string{"a", "b"},
		StartTime:   1_700_000_000,
		EndTime:     &end,
	}
	id, err := s.InsertExamSession(ctx, es)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := s.GetExamSession(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.EndTime == nil || *got.EndTime != end || !reflect.DeepEqual(got.QuestionIDs, es.QuestionIDs) {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	// untimed session has no end time
	es2 := &quiz.ExamSession{UserID: "u1", Style: quiz.StyleStandard, Count: 5, QuestionIDs: []string{"a"}, StartTime: 1}
	id2, _ := s.InsertExamSession(ctx, es2)
	got2, err := s.GetExamSession(ctx, id2)
	if err != nil {
		t.Fatalf("get untimed: %v", err)
	}
	if got2.EndTime != nil {
		t.Fatalf("untimed session must not carry an end time")
	}
}
