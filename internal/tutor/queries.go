package tutor

import (
	"math"

	"sortit/internal/progress"
	"sortit/internal/session"
	"sortit/internal/xp"
)

// ProgressSnapshot is the read-only view of one algorithm's milestone state.
type ProgressSnapshot struct {
	Algorithm   string               `json:"algorithm"`
	Milestones  []progress.Milestone `json:"milestones"`
	Percent     int                  `json:"percent"`
	IsCompleted bool                 `json:"isCompleted"`
	TotalXP     int                  `json:"xpTotalFromMilestones"`
}

// Progress returns the milestone snapshot for one user and algorithm. A user
// who never touched the algorithm gets an empty snapshot, not an error.
func (s *Service) Progress(userID uint, algorithm string) (*ProgressSnapshot, error) {
	rec, err := s.progress.Find(userID, algorithm)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &ProgressSnapshot{Algorithm: algorithm}, nil
	}

	done := rec.DoneCount()
	total := len(rec.Milestones)
	if total == 0 {
		total = 1
	}
	return &ProgressSnapshot{
		Algorithm:   algorithm,
		Milestones:  rec.Milestones,
		Percent:     int(math.Round(float64(done) / float64(total) * 100)),
		IsCompleted: rec.IsCompleted,
		TotalXP:     rec.TotalXPFromMilestones,
	}, nil
}

// SessionSummary is the adaptive state of one conversation.
type SessionSummary struct {
	ContextID string        `json:"contextId"`
	Algorithm string        `json:"algorithm"`
	Score     int           `json:"score"`
	Level     string        `json:"level"`
	XP        int           `json:"xp"`
	Stats     session.Stats `json:"stats"`
	Turns     int           `json:"turns"`
}

// Summary returns the adaptive state for one conversation, or neutral
// defaults when the conversation does not exist yet.
func (s *Service) Summary(userID uint, contextID string) (*SessionSummary, error) {
	sess, err := s.sessions.Find(userID, contextID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return &SessionSummary{
			ContextID: contextID,
			Score:     50,
			Level:     session.LevelIntermediate,
		}, nil
	}
	return &SessionSummary{
		ContextID: sess.ContextID,
		Algorithm: sess.Algorithm,
		Score:     sess.Score,
		Level:     sess.Level,
		XP:        sess.XP,
		Stats:     sess.Stats,
		Turns:     len(sess.Messages),
	}, nil
}

// UserLevel sums XP across all of the user's conversations and maps it onto
// the level curve.
func (s *Service) UserLevel(userID uint) (xp.LevelInfo, error) {
	total, err := s.sessions.XPTotal(userID)
	if err != nil {
		return xp.LevelInfo{}, err
	}
	return xp.LevelForXP(total), nil
}

// Sessions lists all of a user's conversations.
func (s *Service) Sessions(userID uint) ([]session.Session, error) {
	return s.sessions.ListByUser(userID)
}
