package quiz

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

const (
	// DefaultQuestionCount applies when the request omits a count or it
	// fails to parse.
	DefaultQuestionCount = 30
	// poolPullLimit bounds how much of the full pool a Standard session
	// pulls before shuffling.
	poolPullLimit = 500
)

// Builder resolves a SessionConfig into a fixed, deduplicated question
// order for one session or cycle.
type Builder struct {
	store Store
	cache PoolCache
	rng   *rand.Rand
	now   func() time.Time
}

type BuilderOption func(*Builder)

// WithCache installs a question-pool cache.
func WithCache(c PoolCache) BuilderOption { return func(b *Builder) { b.cache = c } }

// WithRand fixes the shuffle source, for tests.
func WithRand(r *rand.Rand) BuilderOption { return func(b *Builder) { b.rng = r } }

// WithNow fixes the clock, for tests.
func WithNow(now func() time.Time) BuilderOption { return func(b *Builder) { b.now = now } }

func NewBuilder(store Store, opts ...BuilderOption) *Builder {
	b := &Builder{
		store: store,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build resolves the pool for cfg, shuffles it once (Fisher-Yates) and
// truncates to the requested count. The resulting order is a property of
// the session; it is never recomputed.
func (b *Builder) Build(ctx context.Context, userID string, cfg SessionConfig) (*QuestionSet, error) {
	count := cfg.Count
	if count <= 0 {
		count = DefaultQuestionCount
	}

	pool, err := b.resolvePool(ctx, userID, cfg)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: empty question pool for style %q", ErrFetch, cfg.Style)
	}

	ids := dedupeIDs(pool)
	fisherYates(b.rng, ids)
	if len(ids) > count {
		ids = ids[:count]
	}

	start := b.now()
	set := &QuestionSet{
		QuestionIDs: ids,
		Count:       len(ids),
		StartTime:   start.Unix(),
	}
	if cfg.Timed {
		end := start.Add(time.Duration(len(ids)) * time.Minute).Unix()
		set.EndTime = &end
	}
	return set, nil
}

// StartExam is the mock-exam entry point: build the set, then persist a
// single-shot exam session record. The resumable-cycle flow never calls
// this; its persistence happens in the tracker.
func (b *Builder) StartExam(ctx context.Context, userID string, cfg SessionConfig) (*ExamSession, error) {
	set, err := b.Build(ctx, userID, cfg)
	if err != nil {
		return nil, err
	}
	es := &ExamSession{
		UserID:      userID,
		Style:       cfg.Style,
		Module:      cfg.Module,
		Familiarity: cfg.Familiarity,
		Count:       set.Count,
		Timed:       cfg.Timed,
		QuestionIDs: set.QuestionIDs,
		StartTime:   set.StartTime,
		EndTime:     set.EndTime,
	}
	if _, err := b.store.InsertExamSession(ctx, es); err != nil {
		return nil, err
	}
	return es, nil
}

func (b *Builder) resolvePool(ctx context.Context, userID string, cfg SessionConfig) ([]Question, error) {
	switch cfg.Style {
	case StyleStandard:
		return b.fetchCached(ctx, "single", QuestionFilter{Type: TypeSingle, Limit: poolPullLimit})
	case StyleByModule:
		if cfg.Module == "" || cfg.Familiarity == "" {
			return nil, fmt.Errorf("%w: module and familiarity are required for %q", ErrValidation, StyleByModule)
		}
		switch cfg.Familiarity {
		case FamiliarityAll:
			return b.modulePool(ctx, cfg.Module)
		case FamiliarityCorrect, FamiliarityIncorrect:
			outcome := OutcomeCorrect
			if cfg.Familiarity == FamiliarityIncorrect {
				outcome = OutcomeIncorrect
			}
			ids, err := b.store.FetchHistoricalResults(ctx, userID, cfg.Module, outcome)
			if err != nil {
				return nil, err
			}
			if len(ids) == 0 {
				// no history with that outcome: fall back to the full module set
				return b.modulePool(ctx, cfg.Module)
			}
			return b.store.FetchQuestions(ctx, QuestionFilter{IDs: ids})
		default:
			return nil, fmt.Errorf("%w: unknown familiarity %q", ErrValidation, cfg.Familiarity)
		}
	default:
		return nil, fmt.Errorf("%w: unknown style %q", ErrValidation, cfg.Style)
	}
}

func (b *Builder) modulePool(ctx context.Context, module string) ([]Question, error) {
	return b.fetchCached(ctx, "module:"+module, QuestionFilter{Subcategory: module, Limit: poolPullLimit})
}

// fetchCached serves unfiltered pools from the cache when one is wired;
// history-restricted pools are always fetched fresh.
func (b *Builder) fetchCached(ctx context.Context, key string, f QuestionFilter) ([]Question, error) {
	if b.cache != nil {
		if qs, ok := b.cache.GetPool(ctx, key); ok {
			return qs, nil
		}
	}
	qs, err := b.store.FetchQuestions(ctx, f)
	if err != nil {
		return nil, err
	}
	if b.cache != nil && len(qs) > 0 {
		b.cache.SetPool(ctx, key, qs)
	}
	return qs, nil
}

func dedupeIDs(pool []Question) []string {
	seen := make(map[string]struct{}, len(pool))
	ids := make([]string, 0, len(pool))
	for _, q := range pool {
		if _, ok := seen[q.ID]; ok {
			continue
		}
		seen[q.ID] = struct{}{}
		ids = append(ids, q.ID)
	}
	return ids
}

// fisherYates shuffles in place. Applied exactly once per cycle/session.
func fisherYates(rng *rand.Rand, ids []string) {
	for i := len(ids) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		ids[i], ids[j] = ids[j], ids[i]
	}
}
