package grader

import (
	"sortit/internal/session"
)

// Adaptive score deltas per graded outcome.
const (
	deltaCorrect   = 5
	deltaIncorrect = -5
	deltaPartial   = 2
	deltaHint      = -3
)

// ApplyScoring folds one evaluation into the session's adaptive score, stat
// counters and mastery level. Skip verdicts only bump the turn counter. The
// score is clamped to 0..100.
func ApplyScoring(s *session.Session, ev *Evaluation) {
	if ev == nil || ev.Verdict == VerdictSkip {
		s.Stats.Turns++
		return
	}

	delta := 0
	switch ev.Verdict {
	case VerdictCorrect:
		delta += deltaCorrect
		s.Stats.Correct++
	case VerdictIncorrect:
		delta += deltaIncorrect
		s.Stats.Incorrect++
	case VerdictPartiallyCorrect:
		delta += deltaPartial
		s.Stats.Partial++
	}

	if ev.HintNeeded {
		delta += deltaHint
		s.Stats.HintsUsed++
	}

	score := s.Score + delta
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	s.Score = score
	s.Level = session.LevelForScore(score)
	s.Stats.Turns++
}
