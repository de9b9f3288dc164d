package grading_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/quizdeck/quizdeck-api/internal/grading"
)

func TestParseAnswerKeyShapes(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"A", []string{"A"}},
		{"A,C", []string{"A", "C"}},
		{"C, A", []string{"A", "C"}},
		{`["C","A"]`, []string{"A", "C"}},
		{"true", []string{"true"}},
		{"", nil},
		{"  ", nil},
		{"A,,A", []string{"A"}},
	}
	for _, c := range cases {
		got := grading.ParseAnswerKey(c.raw)
		if len(got) == 0 && len(c.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("ParseAnswerKey(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestGradeMultiSetEquality(t *testing.T) {
	g := grading.NewDefaultGrader()
	q := grading.Q{ID: "q1", Type: "multiple", AnswerKey: grading.ParseAnswerKey("A,C")}

	if res := g.Grade(context.Background(), q, []string{"C", "A"}); !res.Correct {
		t.Errorf("order-independent selection should be correct")
	}
	if res := g.Grade(context.Background(), q, []string{"A"}); res.Correct {
		t.Errorf("subset selection should be incorrect")
	}
	if res := g.Grade(context.Background(), q, []string{"A", "C", "D"}); res.Correct {
		t.Errorf("superset selection should be incorrect")
	}
	if res := g.Grade(context.Background(), q, nil); res.Correct {
		t.Errorf("empty selection should be incorrect")
	}
}

func TestGradeSingleAndTrueFalse(t *testing.T) {
	g := grading.NewDefaultGrader()

	single := grading.Q{ID: "q2", Type: "single", AnswerKey: []string{"B"}}
	if res := g.Grade(context.Background(), single, []string{"B"}); !res.Correct {
		t.Errorf("matching single selection should be correct")
	}
	if res := g.Grade(context.Background(), single, []string{"A"}); res.Correct {
		t.Errorf("non-matching single selection should be incorrect")
	}
	if res := g.Grade(context.Background(), single, []string{"A", "B"}); res.Correct {
		t.Errorf("multi-selection on a single question should be incorrect")
	}

	tf := grading.Q{ID: "q3", Type: "true_false", AnswerKey: []string{"true"}}
	if res := g.Grade(context.Background(), tf, []string{"true"}); !res.Correct {
		t.Errorf("literal true should match")
	}
	if res := g.Grade(context.Background(), tf, []string{"false"}); res.Correct {
		t.Errorf("literal false should not match")
	}

	sub := grading.Q{ID: "q4", Type: "subquestion_group", AnswerKey: []string{"false"}}
	if res := g.Grade(context.Background(), sub, []string{" false "}); !res.Correct {
		t.Errorf("subquestion leaf should match after normalization")
	}
}

func TestGradeAmbiguousKeyNeverCorrect(t *testing.T) {
	g := grading.NewDefaultGrader()
	q := grading.Q{ID: "q5", Type: "single", AnswerKey: grading.ParseAnswerKey("")}

	res := g.Grade(context.Background(), q, []string{"A"})
	if res.Correct {
		t.Fatalf("empty answer key must never grade correct")
	}
	if !res.Ambiguous {
		t.Fatalf("empty answer key should be flagged ambiguous")
	}

	unknown := grading.Q{ID: "q6", Type: "essay", AnswerKey: []string{"x"}}
	if res := g.Grade(context.Background(), unknown, []string{"x"}); res.Correct || !res.Ambiguous {
		t.Fatalf("unknown type should resolve to ambiguous incorrect, got %+v", res)
	}
}

func TestGradeIdempotent(t *testing.T) {
	g := grading.NewDefaultGrader()
	q := grading.Q{ID: "q7", Type: "multiple", AnswerKey: []string{"A", "C"}}
	sel := []string{"C", "A"}

	first := g.Grade(context.Background(), q, sel)
	second := g.Grade(context.Background(), q, sel)
	if first != second {
		t.Fatalf("grading is not idempotent: %+v vs %+v", first, second)
	}
}
