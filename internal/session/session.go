package session

import (
	"time"

	"gorm.io/gorm"
)

// Message roles
const (
	RoleStudent   = "student"
	RoleAssistant = "assistant"
)

// Adaptive mastery levels derived from the 0..100 score
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// Stats counts graded turn outcomes for one session.
type Stats struct {
	Correct   int `json:"correct" gorm:"default:0"`
	Incorrect int `json:"incorrect" gorm:"default:0"`
	Partial   int `json:"partial" gorm:"default:0"`
	HintsUsed int `json:"hintsUsed" gorm:"default:0"`
	Turns     int `json:"turns" gorm:"default:0"`
}

// Session is one tutoring conversation for a (user, context) pair.
// ContextID is a stable key such as "algo:Bubble Sort"; the composite
// unique index keeps concurrent upserts from creating duplicates.
type Session struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	UserID    uint   `json:"user_id" gorm:"uniqueIndex:idx_sessions_user_context"`
	ContextID string `json:"context_id" gorm:"size:128;uniqueIndex:idx_sessions_user_context"`
	Algorithm string `json:"algorithm"`

	Score int    `json:"score" gorm:"default:50"` // adaptive score 0..100
	Level string `json:"level" gorm:"size:16;default:'intermediate'"`
	Stats Stats  `json:"stats" gorm:"embedded;embeddedPrefix:stat_"`

	XP int `json:"xp" gorm:"default:0"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
	Messages  []Message      `json:"-" gorm:"foreignKey:SessionID"`
}

type Message struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	SessionID uint           `json:"session_id"`
	Role      string         `json:"role"` // "student" or "assistant"
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"createdAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// LatestByRole returns the most recent message with the given role, or nil.
func LatestByRole(messages []Message, role string) *Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == role {
			return &messages[i]
		}
	}
	return nil
}

// LevelForScore maps the adaptive score onto a mastery level.
func LevelForScore(score int) string {
	switch {
	case score <= 30:
		return LevelBeginner
	case score > 70:
		return LevelAdvanced
	default:
		return LevelIntermediate
	}
}

// BuildSlidingWindow returns the most recent messages, capped at maxMessages
// entries and maxChars total content, preserving chronological order.
func BuildSlidingWindow(messages []Message, maxMessages, maxChars int) []Message {
	var window []Message
	totalChars := 0

	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if maxMessages > 0 && len(window) >= maxMessages {
			break
		}
		if maxChars > 0 && totalChars+len(m.Content) > maxChars {
			break
		}
		window = append([]Message{m}, window...)
		totalChars += len(m.Content)
	}
	return window
}
