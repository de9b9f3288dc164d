package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quizdeck/quizdeck-api/internal/grading"
)

// SQLStore persists the engine's records over database/sql. Ordered lists
// and per-index maps are JSON in TEXT columns; the answer key is kept in
// its raw loose format and normalized on scan.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) error {
	oj, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	// store the key as the raw comma-joined form; ParseAnswerKey restores it
	key := strings.Join(q.AnswerKey, ",")
	_, err = s.db.ExecContext(ctx, `INSERT INTO questions (id,qtype,text,options_json,answer_key,explanation,category,subcategory,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET qtype=EXCLUDED.qtype, text=EXCLUDED.text, options_json=EXCLUDED.options_json,
			answer_key=EXCLUDED.answer_key, explanation=EXCLUDED.explanation, category=EXCLUDED.category, subcategory=EXCLUDED.subcategory`,
		q.ID, q.Type, q.Text, string(oj), key, q.Explanation, q.Category, q.Subcategory, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: put question: %v", ErrPersist, err)
	}
	return nil
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,qtype,text,options_json,answer_key,explanation,category,subcategory FROM questions WHERE id=$1`, id)
	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, fmt.Errorf("%w: question %s", ErrNotFound, id)
		}
		return Question{}, fmt.Errorf("%w: get question: %v", ErrFetch, err)
	}
	return q, nil
}

func (s *SQLStore) FetchQuestions(ctx context.Context, f QuestionFilter) ([]Question, error) {
	q := `SELECT id,qtype,text,options_json,answer_key,explanation,category,subcategory FROM questions`
	var conds []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if len(f.IDs) > 0 {
		ph := make([]string, len(f.IDs))
		for i, id := range f.IDs {
			ph[i] = next(id)
		}
		conds = append(conds, "id IN ("+strings.Join(ph, ",")+")")
	} else {
		if f.Type != "" {
			conds = append(conds, "qtype="+next(f.Type))
		}
		if f.Subcategory != "" {
			conds = append(conds, "subcategory="+next(f.Subcategory))
		}
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at, id"
	if f.Limit > 0 {
		q += " LIMIT " + next(f.Limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch questions: %v", ErrFetch, err)
	}
	defer rows.Close()
	var out []Question
	for rows.Next() {
		qu, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: fetch questions: %v", ErrFetch, err)
		}
		out = append(out, qu)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: fetch questions: %v", ErrFetch, err)
	}
	if len(f.IDs) > 0 {
		out = reorderByIDs(out, f.IDs)
	}
	return out, nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanQuestion(r rowScanner) (Question, error) {
	var q Question
	var oj, key string
	if err := r.Scan(&q.ID, &q.Type, &q.Text, &oj, &key, &q.Explanation, &q.Category, &q.Subcategory); err != nil {
		return Question{}, err
	}
	if oj != "" {
		if err := json.Unmarshal([]byte(oj), &q.Options); err != nil {
			return Question{}, err
		}
	}
	q.AnswerKey = grading.ParseAnswerKey(key)
	return q, nil
}

// reorderByIDs restores the caller's id order after an unordered IN fetch.
func reorderByIDs(qs []Question, ids []string) []Question {
	byID := make(map[string]Question, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}
	out := make([]Question, 0, len(qs))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out
}

func (s *SQLStore) FetchHistoricalResults(ctx context.Context, userID, module string, outcome Outcome) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT question_id FROM results WHERE user_id=$1 AND module=$2 AND correct=$3`,
		userID, module, outcome == OutcomeCorrect)
	if err != nil {
		return nil, fmt.Errorf("%w: historical results: %v", ErrFetch, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: historical results: %v", ErrFetch, err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLStore) InsertResult(ctx context.Context, r Result) error {
	if r.AnsweredAt == 0 {
		r.AnsweredAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (user_id,question_id,module,correct,answered_at) VALUES ($1,$2,$3,$4,$5)`,
		r.UserID, r.QuestionID, r.Module, r.Correct, r.AnsweredAt)
	if err != nil {
		return fmt.Errorf("%w: insert result: %v", ErrPersist, err)
	}
	return nil
}

const progressCols = `id,user_id,quiz_type,cycle,question_order_json,current_index,selected_json,correct_count,correct_json,incorrect_json,completed,revision,created_at,updated_at`

func (s *SQLStore) LatestProgress(ctx context.Context, userID, quizType string) (*ProgressRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+progressCols+` FROM quiz_progress WHERE user_id=$1 AND quiz_type=$2 ORDER BY cycle DESC LIMIT 1`,
		userID, quizType)
	rec, err := scanProgress(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no progress for %s/%s", ErrNotFound, userID, quizType)
		}
		return nil, fmt.Errorf("%w: latest progress: %v", ErrFetch, err)
	}
	return rec, nil
}

func (s *SQLStore) InsertProgress(ctx context.Context, rec *ProgressRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	oj, sj, cj, ij, err := marshalProgress(rec)
	if err != nil {
		return fmt.Errorf("%w: insert progress: %v", ErrPersist, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quiz_progress (`+progressCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		rec.ID, rec.UserID, rec.QuizType, rec.Cycle, oj, rec.CurrentIndex, sj,
		rec.CorrectCount, cj, ij, rec.Completed, rec.Revision, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert progress: %v", ErrPersist, err)
	}
	return nil
}

func (s *SQLStore) UpdateProgress(ctx context.Context, rec *ProgressRecord) error {
	oj, sj, cj, ij, err := marshalProgress(rec)
	if err != nil {
		return fmt.Errorf("%w: update progress: %v", ErrPersist, err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE quiz_progress
		SET question_order_json=$1, current_index=$2, selected_json=$3, correct_count=$4,
			correct_json=$5, incorrect_json=$6, completed=$7, revision=$8, updated_at=$9
		WHERE user_id=$10 AND quiz_type=$11 AND cycle=$12 AND revision=$13`,
		oj, rec.CurrentIndex, sj, rec.CorrectCount, cj, ij, rec.Completed, rec.Revision,
		rec.UpdatedAt, rec.UserID, rec.QuizType, rec.Cycle, rec.Revision-1)
	if err != nil {
		return fmt.Errorf("%w: update progress: %v", ErrPersist, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: update progress: %v", ErrPersist, err)
	}
	if n == 0 {
		// either the row is missing or another writer got there first
		if _, gerr := s.GetProgress(ctx, rec.UserID, rec.QuizType, rec.Cycle); gerr != nil {
			return gerr
		}
		return fmt.Errorf("%w: cycle %d revision %d", ErrStaleWrite, rec.Cycle, rec.Revision)
	}
	return nil
}

func (s *SQLStore) ListProgress(ctx context.Context, userID, quizType string) ([]ProgressRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+progressCols+` FROM quiz_progress WHERE user_id=$1 AND quiz_type=$2 ORDER BY cycle DESC`,
		userID, quizType)
	if err != nil {
		return nil, fmt.Errorf("%w: list progress: %v", ErrFetch, err)
	}
	defer rows.Close()
	var out []ProgressRecord
	for rows.Next() {
		rec, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: list progress: %v", ErrFetch, err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetProgress(ctx context.Context, userID, quizType string, cycle int) (*ProgressRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+progressCols+` FROM quiz_progress WHERE user_id=$1 AND quiz_type=$2 AND cycle=$3`,
		userID, quizType, cycle)
	rec, err := scanProgress(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: cycle %d", ErrNotFound, cycle)
		}
		return nil, fmt.Errorf("%w: get progress: %v", ErrFetch, err)
	}
	return rec, nil
}

func marshalProgress(rec *ProgressRecord) (oj, sj, cj, ij string, err error) {
	b, err := json.Marshal(rec.QuestionOrder)
	if err != nil {
		return
	}
	oj = string(b)
	if rec.SelectedAnswers == nil {
		rec.SelectedAnswers = map[int][]string{}
	}
	b, err = json.Marshal(rec.SelectedAnswers)
	if err != nil {
		return
	}
	sj = string(b)
	if b, err = json.Marshal(rec.CorrectIdx); err != nil {
		return
	}
	cj = string(b)
	if b, err = json.Marshal(rec.IncorrectIdx); err != nil {
		return
	}
	ij = string(b)
	return
}

func scanProgress(r rowScanner) (*ProgressRecord, error) {
	var rec ProgressRecord
	var oj, sj, cj, ij string
	if err := r.Scan(&rec.ID, &rec.UserID, &rec.QuizType, &rec.Cycle, &oj, &rec.CurrentIndex, &sj,
		&rec.CorrectCount, &cj, &ij, &rec.Completed, &rec.Revision, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(oj), &rec.QuestionOrder); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sj), &rec.SelectedAnswers); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(cj), &rec.CorrectIdx); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(ij), &rec.IncorrectIdx); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLStore) InsertExamSession(ctx context.Context, es *ExamSession) (string, error) {
	if es.ID == "" {
		es.ID = uuid.NewString()
	}
	idj, err := json.Marshal(es.QuestionIDs)
	if err != nil {
		return "", fmt.Errorf("%w: insert exam session: %v", ErrPersist, err)
	}
	var end sql.NullInt64
	if es.EndTime != nil {
		end = sql.NullInt64{Int64: *es.EndTime, Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO exam_sessions (id,user_id,style,module,familiarity,question_count,timed,question_ids_json,start_time,end_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		es.ID, es.UserID, es.Style, es.Module, es.Familiarity, es.Count, es.Timed, string(idj), es.StartTime, end)
	if err != nil {
		return "", fmt.Errorf("%w: insert exam session: %v", ErrPersist, err)
	}
	return es.ID, nil
}

func (s *SQLStore) GetExamSession(ctx context.Context, id string) (*ExamSession, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,user_id,style,module,familiarity,question_count,timed,question_ids_json,start_time,end_time FROM exam_sessions WHERE id=$1`, id)
	var es ExamSession
	var idj string
	var end sql.NullInt64
	if err := row.Scan(&es.ID, &es.UserID, &es.Style, &es.Module, &es.Familiarity, &es.Count, &es.Timed, &idj, &es.StartTime, &end); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: exam session %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get exam session: %v", ErrFetch, err)
	}
	if err := json.Unmarshal([]byte(idj), &es.QuestionIDs); err != nil {
		return nil, fmt.Errorf("%w: get exam session: %v", ErrFetch, err)
	}
	if end.Valid {
		es.EndTime = &end.Int64
	}
	return &es, nil
}
