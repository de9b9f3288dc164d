package quiz

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"
)

func seedPool(t *testing.T, store Store, n int, qtype, module string) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-q%03d", qtype, i)
		err := store.PutQuestion(context.Background(), Question{
			ID:          id,
			Type:        qtype,
			Text:        "question " + id,
			Options:     []string{"A", "B", "C", "D"},
			AnswerKey:   []string{"A"},
			Subcategory: module,
		})
		if err != nil {
			t.Fatalf("seed question: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

func testBuilder(store Store) *Builder {
	return NewBuilder(store,
		WithRand(rand.New(rand.NewSource(42))),
		WithNow(func() time.Time { return time.Unix(1_700_000_000, 0) }),
	)
}

func TestBuildStandardCountAndUniqueness(t *testing.T) {
	store := NewInMemoryStore()
	seedPool(t, store, 50, TypeSingle, "anatomy")
	b := testBuilder(store)

	set, err := b.Build(context.Background(), "u1", SessionConfig{Style: StyleStandard, Count: 10})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(set.QuestionIDs) != 10 || set.Count != 10 {
		t.Fatalf("want exactly 10 ids, got %d", len(set.QuestionIDs))
	}
	seen := map[string]struct{}{}
	for _, id := range set.QuestionIDs {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
	if set.EndTime != nil {
		t.Fatalf("untimed session must not carry an end time")
	}
}

func TestBuildOrderFixedForSeed(t *testing.T) {
	store := NewInMemoryStore()
	seedPool(t, store, 30, TypeSingle, "")

	first, err := testBuilder(store).Build(context.Background(), "u1", SessionConfig{Style: StyleStandard, Count: 15})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	second, err := testBuilder(store).Build(context.Background(), "u1", SessionConfig{Style: StyleStandard, Count: 15})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for i := range first.QuestionIDs {
		if first.QuestionIDs[i] != second.QuestionIDs[i] {
			t.Fatalf("same seed must produce the same order")
		}
	}
}

func TestBuildDefaultsCount(t *testing.T) {
	store := NewInMemoryStore()
	seedPool(t, store, 60, TypeSingle, "")
	set, err := testBuilder(store).Build(context.Background(), "u1", SessionConfig{Style: StyleStandard})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if set.Count != DefaultQuestionCount {
		t.Fatalf("want default count %d, got %d", DefaultQuestionCount, set.Count)
	}
}

func TestBuildShortPool(t *testing.T) {
	store := NewInMemoryStore()
	seedPool(t, store, 4, TypeSingle, "")
	set, err := testBuilder(store).Build(context.Background(), "u1", SessionConfig{Style: StyleStandard, Count: 10})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if set.Count != 4 {
		t.Fatalf("short pool should yield the whole pool, got %d", set.Count)
	}
}

func TestBuildByModuleValidation(t *testing.T) {
	store := NewInMemoryStore()
	b := testBuilder(store)

	_, err := b.Build(context.Background(), "u1", SessionConfig{Style: StyleByModule, Familiarity: FamiliarityAll})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("missing module: want ErrValidation, got %v", err)
	}
	_, err = b.Build(context.Background(), "u1", SessionConfig{Style: StyleByModule, Module: "anatomy"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("missing familiarity: want ErrValidation, got %v", err)
	}
	_, err = b.Build(context.Background(), "u1", SessionConfig{Style: "Speedrun"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown style: want ErrValidation, got %v", err)
	}
}

func TestBuildByModuleFamiliarity(t *testing.T) {
	store := NewInMemoryStore()
	ids := seedPool(t, store, 20, TypeSingle, "anatomy")
	ctx := context.Background()

	// two incorrect, three correct outcomes on record
	for _, id := range ids[:2] {
		_ = store.InsertResult(ctx, Result{UserID: "u1", QuestionID: id, Module: "anatomy", Correct: false})
	}
	for _, id := range ids[2:5] {
		_ = store.InsertResult(ctx, Result{UserID: "u1", QuestionID: id, Module: "anatomy", Correct: true})
	}

	b := testBuilder(store)
	set, err := b.Build(ctx, "u1", SessionConfig{Style: StyleByModule, Module: "anatomy", Familiarity: FamiliarityIncorrect, Count: 10})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(set.QuestionIDs) != 2 {
		t.Fatalf("incorrect familiarity should restrict to history, got %d ids", len(set.QuestionIDs))
	}

	set, err = b.Build(ctx, "u1", SessionConfig{Style: StyleByModule, Module: "anatomy", Familiarity: FamiliarityCorrect, Count: 10})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(set.QuestionIDs) != 3 {
		t.Fatalf("correct familiarity should restrict to history, got %d ids", len(set.QuestionIDs))
	}
}

func TestBuildByModuleEmptyHistoryFallsBack(t *testing.T) {
	store := NewInMemoryStore()
	seedPool(t, store, 12, TypeSingle, "anatomy")

	set, err := testBuilder(store).Build(context.Background(), "u2",
		SessionConfig{Style: StyleByModule, Module: "anatomy", Familiarity: FamiliarityIncorrect, Count: 30})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(set.QuestionIDs) != 12 {
		t.Fatalf("zero history must fall back to the full module set, got %d", len(set.QuestionIDs))
	}
}

func TestBuildEmptyPoolFails(t *testing.T) {
	store := NewInMemoryStore()
	_, err := testBuilder(store).Build(context.Background(), "u1", SessionConfig{Style: StyleStandard})
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("empty pool: want ErrFetch, got %v", err)
	}
}

func TestBuildTimedEndTime(t *testing.T) {
	store := NewInMemoryStore()
	seedPool(t, store, 40, TypeSingle, "")
	set, err := testBuilder(store).Build(context.Background(), "u1", SessionConfig{Style: StyleStandard, Count: 10, Timed: true})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if set.EndTime == nil {
		t.Fatalf("timed session must carry an end time")
	}
	if got, want := *set.EndTime-set.StartTime, int64(10*60); got != want {
		t.Fatalf("end time: one minute per question, got %d seconds", got)
	}
}

func TestStartExamPersistsSession(t *testing.T) {
	store := NewInMemoryStore()
	seedPool(t, store, 40, TypeSingle, "")
	b := testBuilder(store)

	es, err := b.StartExam(context.Background(), "u1", SessionConfig{Style: StyleStandard, Count: 5, Timed: true})
	if err != nil {
		t.Fatalf("start exam: %v", err)
	}
	if es.ID == "" {
		t.Fatalf("exam session id not assigned")
	}
	got, err := store.GetExamSession(context.Background(), es.ID)
	if err != nil {
		t.Fatalf("reload exam session: %v", err)
	}
	if len(got.QuestionIDs) != 5 || got.Count != 5 || !got.Timed || got.EndTime == nil {
		t.Fatalf("persisted session mismatch: %+v", got)
	}
}

func TestBuildUsesPoolCache(t *testing.T) {
	store := NewInMemoryStore()
	seedPool(t, store, 20, TypeSingle, "")
	cache := NewMemoryPoolCache(time.Minute)
	b := NewBuilder(store, WithCache(cache), WithRand(rand.New(rand.NewSource(7))))

	if _, err := b.Build(context.Background(), "u1", SessionConfig{Style: StyleStandard, Count: 5}); err != nil {
		t.Fatalf("first build: %v", err)
	}
	if _, ok := cache.GetPool(context.Background(), "single"); !ok {
		t.Fatalf("pool should be cached after first build")
	}
}
