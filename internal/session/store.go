package session

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Store persists sessions and their messages.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// FindOrCreate loads the session for (userID, contextID), creating it with
// defaults when absent. The composite unique index on (user_id, context_id)
// makes concurrent first-turn races resolve to a single row.
func (st *Store) FindOrCreate(userID uint, contextID, algorithm string) (*Session, error) {
	var s Session
	err := st.db.
		Where(&Session{UserID: userID, ContextID: contextID}).
		Attrs(&Session{
			Algorithm: algorithm,
			Score:     50,
			Level:     LevelIntermediate,
		}).
		FirstOrCreate(&s).Error
	if err != nil {
		return nil, fmt.Errorf("find or create session: %w", err)
	}
	if err := st.db.
		Where("session_id = ?", s.ID).
		Order("id asc").
		Find(&s.Messages).Error; err != nil {
		return nil, fmt.Errorf("load session messages: %w", err)
	}
	return &s, nil
}

// Find returns the session for (userID, contextID) with messages loaded,
// or nil when no such session exists.
func (st *Store) Find(userID uint, contextID string) (*Session, error) {
	var s Session
	err := st.db.Where("user_id = ? AND context_id = ?", userID, contextID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if err := st.db.
		Where("session_id = ?", s.ID).
		Order("id asc").
		Find(&s.Messages).Error; err != nil {
		return nil, fmt.Errorf("load session messages: %w", err)
	}
	return &s, nil
}

// AppendMessage stores a new message row and mirrors it onto s.Messages.
func (st *Store) AppendMessage(s *Session, role, content string) error {
	m := Message{SessionID: s.ID, Role: role, Content: content}
	if err := st.db.Create(&m).Error; err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	s.Messages = append(s.Messages, m)
	return nil
}

// Save persists the session's scalar fields (score, level, stats, xp).
func (st *Store) Save(s *Session) error {
	if err := st.db.Save(s).Error; err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// ListByUser returns every session owned by the user, newest first.
func (st *Store) ListByUser(userID uint) ([]Session, error) {
	var sessions []Session
	if err := st.db.
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// XPTotal sums session XP across all of a user's sessions.
func (st *Store) XPTotal(userID uint) (int, error) {
	var total int64
	err := st.db.Model(&Session{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(xp), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("sum user xp: %w", err)
	}
	return int(total), nil
}

// XPRow is one leaderboard aggregation row.
type XPRow struct {
	UserID  uint
	TotalXP int
}

// XPByUser returns summed session XP per user, highest first, capped at limit.
func (st *Store) XPByUser(limit int) ([]XPRow, error) {
	var rows []XPRow
	err := st.db.Model(&Session{}).
		Select("user_id, COALESCE(SUM(xp), 0) AS total_xp").
		Group("user_id").
		Order("total_xp desc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate leaderboard: %w", err)
	}
	return rows, nil
}
