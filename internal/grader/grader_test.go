package grader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sortit/internal/llm"
	"sortit/internal/session"
)

func TestParseEvaluation(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		verdict string
	}{
		{
			name:    "plain json",
			raw:     `{"verdict":"correct","confidence":0.9,"hint_needed":false,"short_feedback":"good"}`,
			verdict: VerdictCorrect,
		},
		{
			name:    "wrapped in prose",
			raw:     "Sure! Here is the result:\n{\"verdict\":\"partially-correct\",\"confidence\":0.5}\nHope that helps.",
			verdict: VerdictPartiallyCorrect,
		},
		{
			name:    "code fence",
			raw:     "```json\n{\"verdict\":\"incorrect\",\"confidence\":0.8}\n```",
			verdict: VerdictIncorrect,
		},
		{
			name:    "no json at all",
			raw:     "the student did well",
			verdict: VerdictSkip,
		},
		{
			name:    "missing verdict key",
			raw:     `{"confidence":0.7}`,
			verdict: VerdictSkip,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ev := ParseEvaluation(c.raw)
			if ev.Verdict != c.verdict {
				t.Errorf("expected %q, got %q", c.verdict, ev.Verdict)
			}
		})
	}
}

func TestIsQualityTurn(t *testing.T) {
	cases := []struct {
		ev   Evaluation
		want bool
	}{
		{Evaluation{Verdict: VerdictCorrect, Confidence: 0.1}, true},
		{Evaluation{Verdict: VerdictPartiallyCorrect}, true},
		{Evaluation{Verdict: VerdictIncorrect, Confidence: 0.7}, true},
		{Evaluation{Verdict: VerdictIncorrect, Confidence: 0.5}, false},
		{Evaluation{Verdict: VerdictSkip, Confidence: 0.9}, false},
	}
	for i, c := range cases {
		if got := c.ev.IsQualityTurn(DefaultQualityConfidence); got != c.want {
			t.Errorf("case %d (%+v): expected %v, got %v", i, c.ev, c.want, got)
		}
	}
}

func TestEvaluateAnswer_SkipsWithoutQuestionOrAnswer(t *testing.T) {
	g := New(nil, "", "")
	if ev := g.EvaluateAnswer(context.Background(), "", "answer"); ev.Verdict != VerdictSkip {
		t.Errorf("missing question: expected skip, got %q", ev.Verdict)
	}
	if ev := g.EvaluateAnswer(context.Background(), "question", ""); ev.Verdict != VerdictSkip {
		t.Errorf("missing answer: expected skip, got %q", ev.Verdict)
	}
}

func TestEvaluateAnswer_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"{\"verdict\":\"correct\",\"confidence\":0.92,\"hint_needed\":false,\"short_feedback\":\"spot on\"}","done":true}`))
	}))
	defer srv.Close()

	manager := llm.NewManager(llm.DefaultConfig(), nil)
	defer manager.Stop()
	client := llm.NewClient(manager, llm.PriorityCritical, 5*time.Second)

	g := New(client, srv.URL, "llama3.1:8b")
	ev := g.EvaluateAnswer(context.Background(), "What does bubble sort compare?", "adjacent elements")
	if ev.Verdict != VerdictCorrect {
		t.Fatalf("expected correct, got %+v", ev)
	}
	if !ev.IsQualityTurn(DefaultQualityConfidence) {
		t.Errorf("correct verdict must be a quality turn")
	}
}

func TestEvaluateAnswer_InvalidVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"{\"verdict\":\"amazing\",\"confidence\":1}","done":true}`))
	}))
	defer srv.Close()

	manager := llm.NewManager(llm.DefaultConfig(), nil)
	defer manager.Stop()
	client := llm.NewClient(manager, llm.PriorityCritical, 5*time.Second)

	g := New(client, srv.URL, "llama3.1:8b")
	if ev := g.EvaluateAnswer(context.Background(), "q", "a"); ev.Verdict != VerdictSkip {
		t.Fatalf("unknown verdict must degrade to skip, got %+v", ev)
	}
}

func TestApplyScoring(t *testing.T) {
	s := &session.Session{Score: 50, Level: session.LevelIntermediate}

	ApplyScoring(s, &Evaluation{Verdict: VerdictCorrect})
	if s.Score != 55 || s.Stats.Correct != 1 || s.Stats.Turns != 1 {
		t.Fatalf("correct: unexpected state %+v", s)
	}

	ApplyScoring(s, &Evaluation{Verdict: VerdictIncorrect, HintNeeded: true})
	if s.Score != 47 || s.Stats.Incorrect != 1 || s.Stats.HintsUsed != 1 {
		t.Fatalf("incorrect+hint: unexpected state %+v", s)
	}

	ApplyScoring(s, &Evaluation{Verdict: VerdictPartiallyCorrect})
	if s.Score != 49 || s.Stats.Partial != 1 {
		t.Fatalf("partial: unexpected state %+v", s)
	}

	ApplyScoring(s, &Evaluation{Verdict: VerdictSkip})
	if s.Score != 49 || s.Stats.Turns != 4 {
		t.Fatalf("skip must only bump turns: %+v", s)
	}
}

func TestApplyScoring_ClampAndLevel(t *testing.T) {
	s := &session.Session{Score: 2}
	ApplyScoring(s, &Evaluation{Verdict: VerdictIncorrect, HintNeeded: true})
	if s.Score != 0 {
		t.Errorf("score must clamp at 0, got %d", s.Score)
	}
	if s.Level != session.LevelBeginner {
		t.Errorf("expected beginner at score 0, got %s", s.Level)
	}

	s = &session.Session{Score: 99}
	ApplyScoring(s, &Evaluation{Verdict: VerdictCorrect})
	if s.Score != 100 {
		t.Errorf("score must clamp at 100, got %d", s.Score)
	}
	if s.Level != session.LevelAdvanced {
		t.Errorf("expected advanced at score 100, got %s", s.Level)
	}
}
