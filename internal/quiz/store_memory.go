package quiz

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu        sync.RWMutex
	questions map[string]Question
	qorder    []string // insertion order, keeps FetchQuestions deterministic
	results   []Result
	progress  map[string][]*ProgressRecord // key: userID|quizType, ascending cycle
	sessions  map[string]*ExamSession
}

// NewInMemoryStore is used by tests and by the server when no database is
// configured.
func NewInMemoryStore() Store {
	return &memoryStore{
		questions: map[string]Question{},
		progress:  map[string][]*ProgressRecord{},
		sessions:  map[string]*ExamSession{},
	}
}

func progressKey(userID, quizType string) string { return userID + "|" + quizType }

func (m *memoryStore) PutQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[q.ID]; !ok {
		m.qorder = append(m.qorder, q.ID)
	}
	m.questions[q.ID] = q
	return nil
}

func (m *memoryStore) GetQuestion(_ context.Context, id string) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, fmt.Errorf("%w: question %s", ErrNotFound, id)
	}
	return q, nil
}

func (m *memoryStore) FetchQuestions(_ context.Context, f QuestionFilter) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Question
	if len(f.IDs) > 0 {
		for _, id := range f.IDs {
			if q, ok := m.questions[id]; ok {
				out = append(out, q)
			}
		}
	} else {
		for _, id := range m.qorder {
			q := m.questions[id]
			if f.Type != "" && q.Type != f.Type {
				continue
			}
			if f.Subcategory != "" && q.Subcategory != f.Subcategory {
				continue
			}
			out = append(out, q)
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memoryStore) FetchHistoricalResults(_ context.Context, userID, module string, outcome Outcome) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := outcome == OutcomeCorrect
	seen := map[string]struct{}{}
	var out []string
	for _, r := range m.results {
		if r.UserID != userID || r.Module != module || r.Correct != want {
			continue
		}
		if _, ok := seen[r.QuestionID]; ok {
			continue
		}
		seen[r.QuestionID] = struct{}{}
		out = append(out, r.QuestionID)
	}
	return out, nil
}

func (m *memoryStore) InsertResult(_ context.Context, r Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.AnsweredAt == 0 {
		r.AnsweredAt = time.Now().Unix()
	}
	m.results = append(m.results, r)
	return nil
}

func (m *memoryStore) LatestProgress(_ context.Context, userID, quizType string) (*ProgressRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.progress[progressKey(userID, quizType)]
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: no progress for %s/%s", ErrNotFound, userID, quizType)
	}
	return recs[len(recs)-1].clone(), nil
}

func (m *memoryStore) InsertProgress(_ context.Context, rec *ProgressRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	k := progressKey(rec.UserID, rec.QuizType)
	for _, r := range m.progress[k] {
		if r.Cycle == rec.Cycle {
			return fmt.Errorf("%w: cycle %d exists", ErrPersist, rec.Cycle)
		}
	}
	m.progress[k] = append(m.progress[k], rec.clone())
	sort.Slice(m.progress[k], func(i, j int) bool { return m.progress[k][i].Cycle < m.progress[k][j].Cycle })
	return nil
}

func (m *memoryStore) UpdateProgress(_ context.Context, rec *ProgressRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.progress[progressKey(rec.UserID, rec.QuizType)]
	for i, r := range recs {
		if r.Cycle != rec.Cycle {
			continue
		}
		if rec.Revision != r.Revision+1 {
			return fmt.Errorf("%w: have %d, got %d", ErrStaleWrite, r.Revision, rec.Revision)
		}
		recs[i] = rec.clone()
		return nil
	}
	return fmt.Errorf("%w: cycle %d", ErrNotFound, rec.Cycle)
}

func (m *memoryStore) ListProgress(_ context.Context, userID, quizType string) ([]ProgressRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.progress[progressKey(userID, quizType)]
	out := make([]ProgressRecord, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- { // newest first
		out = append(out, *recs[i].clone())
	}
	return out, nil
}

func (m *memoryStore) GetProgress(_ context.Context, userID, quizType string, cycle int) (*ProgressRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.progress[progressKey(userID, quizType)] {
		if r.Cycle == cycle {
			return r.clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: cycle %d", ErrNotFound, cycle)
}

func (m *memoryStore) InsertExamSession(_ context.Context, s *ExamSession) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return s.ID, nil
}

func (m *memoryStore) GetExamSession(_ context.Context, id string) (*ExamSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: exam session %s", ErrNotFound, id)
	}
	cp := *s
	return &cp, nil
}
