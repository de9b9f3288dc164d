package quiz

// Question type tags as stored in the questions table.
const (
	TypeSingle    = "single"
	TypeMultiple  = "multiple"
	TypeTrueFalse = "true_false"
	TypeSubGroup  = "subquestion_group"
)

type Question struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"` // single, multiple, true_false, subquestion_group
	Text        string   `json:"text"`
	Options     []string `json:"options,omitempty"`
	AnswerKey   []string `json:"answer_key,omitempty"` // normalized at scan time; empty when served to learners
	Explanation string   `json:"explanation,omitempty"`
	Category    string   `json:"category,omitempty"`
	Subcategory string   `json:"subcategory,omitempty"`
}

// Session styles.
const (
	StyleStandard = "Standard"
	StyleByModule = "Test by Module"
)

// Familiarity filter values for Test by Module.
const (
	FamiliarityAll       = "All"
	FamiliarityCorrect   = "Correct"
	FamiliarityIncorrect = "Incorrect"
)

// SessionConfig is the transient input to the builder. It is never
// persisted on its own; the resolved result is.
type SessionConfig struct {
	Style       string `json:"style"`
	Module      string `json:"module,omitempty"`
	Familiarity string `json:"familiarity,omitempty"`
	Count       int    `json:"count,omitempty"` // 0 means default (30)
	Timed       bool   `json:"timed,omitempty"`
}

// QuestionSet is the builder's output: a fixed, deduplicated order for one
// session or cycle.
type QuestionSet struct {
	QuestionIDs []string   `json:"question_ids"`
	Questions   []Question `json:"questions,omitempty"`
	Count       int        `json:"count"`
	StartTime   int64      `json:"start_time"`
	EndTime     *int64     `json:"end_time,omitempty"` // set only for timed sessions
}

// ProgressRecord is the durable state of one cycle's attempt, keyed by
// (user, quiz type, cycle). History is append-only across cycles.
type ProgressRecord struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	QuizType        string           `json:"quiz_type"`
	Cycle           int              `json:"cycle"`
	QuestionOrder   []string         `json:"question_order"` // fixed at cycle start, consumed by index
	CurrentIndex    int              `json:"current_index"`
	SelectedAnswers map[int][]string `json:"selected_answers"` // question index -> normalized selection
	CorrectCount    int              `json:"correct_answers_count"`
	CorrectIdx      []int            `json:"correct_questions"`
	IncorrectIdx    []int            `json:"incorrect_questions"`
	Completed       bool             `json:"completed"`
	Revision        int64            `json:"revision"`
	CreatedAt       int64            `json:"created_at"`
	UpdatedAt       int64            `json:"updated_at"`
}

// Answered reports whether the question at idx has already been graded in
// this cycle. Tallies are updated exactly once per question, so membership
// in either set is authoritative.
func (p *ProgressRecord) Answered(idx int) bool {
	return containsInt(p.CorrectIdx, idx) || containsInt(p.IncorrectIdx, idx)
}

// ResumeIndex is the position a reloading learner lands on. A save after
// scoring index k stores currentIndex=k; resumption is k when k==0, else
// k+1, clamped to the last index when the save happened there.
func (p *ProgressRecord) ResumeIndex() int {
	if p.CurrentIndex == 0 {
		return 0
	}
	i := p.CurrentIndex + 1
	if last := len(p.QuestionOrder) - 1; i > last {
		i = last
	}
	return i
}

func (p *ProgressRecord) clone() *ProgressRecord {
	cp := *p
	cp.QuestionOrder = append([]string(nil), p.QuestionOrder...)
	cp.CorrectIdx = append([]int(nil), p.CorrectIdx...)
	cp.IncorrectIdx = append([]int(nil), p.IncorrectIdx...)
	cp.SelectedAnswers = make(map[int][]string, len(p.SelectedAnswers))
	for k, v := range p.SelectedAnswers {
		cp.SelectedAnswers[k] = append([]string(nil), v...)
	}
	return &cp
}

// ExamSession is the single-shot mock-exam record: resolved configuration
// plus the fixed id list. Not resumed or cycled.
type ExamSession struct {
	ID          string   `json:"id"`
	UserID      string   `json:"user_id"`
	Style       string   `json:"style"`
	Module      string   `json:"module,omitempty"`
	Familiarity string   `json:"familiarity,omitempty"`
	Count       int      `json:"question_count"`
	Timed       bool     `json:"timed"`
	QuestionIDs []string `json:"question_ids"`
	StartTime   int64    `json:"start_time"`
	EndTime     *int64   `json:"end_time,omitempty"`
}

// Result is one per-question outcome row, appended on every graded submit.
// These rows are what the familiarity filter queries.
type Result struct {
	UserID     string `json:"user_id"`
	QuestionID string `json:"question_id"`
	Module     string `json:"module,omitempty"`
	Correct    bool   `json:"correct"`
	AnsweredAt int64  `json:"answered_at"`
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
