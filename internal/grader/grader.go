package grader

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"sortit/internal/llm"
)

// Verdicts produced by the answer evaluation model. Skip means the turn was
// not gradable (no question, no answer, or an unparseable model reply).
const (
	VerdictCorrect          = "correct"
	VerdictIncorrect        = "incorrect"
	VerdictPartiallyCorrect = "partially-correct"
	VerdictSkip             = "skip"
)

// DefaultQualityConfidence is the confidence floor above which a turn counts
// as a quality turn even without a correct verdict.
const DefaultQualityConfidence = 0.6

// Evaluation is the model's judgment of one student answer.
type Evaluation struct {
	Verdict       string  `json:"verdict"`
	Confidence    float64 `json:"confidence"`
	HintNeeded    bool    `json:"hint_needed"`
	ShortFeedback string  `json:"short_feedback"`
	Reason        string  `json:"reason,omitempty"`
}

// IsQualityTurn reports whether this evaluation should advance milestone
// pacing: correct or partially-correct verdicts always count, anything else
// counts only above the confidence threshold.
func (ev *Evaluation) IsQualityTurn(confidenceFloor float64) bool {
	if ev == nil || ev.Verdict == VerdictSkip {
		return false
	}
	if ev.Verdict == VerdictCorrect || ev.Verdict == VerdictPartiallyCorrect {
		return true
	}
	return ev.Confidence > 0 && ev.Confidence >= confidenceFloor
}

// Grader asks the LLM to judge a student answer against the tutor's question.
type Grader struct {
	client      *llm.Client
	generateURL string
	model       string
}

func New(client *llm.Client, generateURL, model string) *Grader {
	return &Grader{client: client, generateURL: generateURL, model: model}
}

const evalPromptFormat = `You are an evaluator for an algorithms tutor.
Given the TUTOR_QUESTION and STUDENT_ANSWER, return a strict JSON with keys:
- verdict: one of "correct", "incorrect", "partially-correct"
- confidence: number 0..1
- hint_needed: boolean
- short_feedback: one sentence about why

Output ONLY JSON.

TUTOR_QUESTION:
%s

STUDENT_ANSWER:
%s
`

// EvaluateAnswer grades one student answer. It never fails the turn: any
// upstream or parse problem degrades to a skip verdict with a reason.
func (g *Grader) EvaluateAnswer(ctx context.Context, question, answer string) *Evaluation {
	if question == "" || answer == "" {
		return &Evaluation{Verdict: VerdictSkip, Reason: "no-question-or-answer"}
	}

	prompt := fmt.Sprintf(evalPromptFormat, question, answer)
	reply, err := g.client.Generate(ctx, g.generateURL, g.model, prompt)
	if err != nil {
		log.Printf("[Grader] Evaluation call failed: %v", err)
		return &Evaluation{Verdict: VerdictSkip, Reason: "error"}
	}

	ev := ParseEvaluation(reply)
	if ev.Verdict == VerdictSkip {
		return ev
	}
	switch ev.Verdict {
	case VerdictCorrect, VerdictIncorrect, VerdictPartiallyCorrect:
	default:
		return &Evaluation{Verdict: VerdictSkip, Reason: "invalid-verdict"}
	}
	return ev
}

// ParseEvaluation extracts the verdict JSON even when the model wraps it in
// prose or code fences.
func ParseEvaluation(raw string) *Evaluation {
	jsonLike := extractJSON(raw)
	if jsonLike == "" {
		return &Evaluation{Verdict: VerdictSkip, Reason: "parse-failed"}
	}
	var ev Evaluation
	if err := json.Unmarshal([]byte(jsonLike), &ev); err != nil || ev.Verdict == "" {
		return &Evaluation{Verdict: VerdictSkip, Reason: "parse-failed"}
	}
	return &ev
}

// extractJSON slices from the first '{' to the last '}'.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return ""
	}
	return raw[start : end+1]
}
