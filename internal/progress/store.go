package progress

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Store persists progress records.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// FindOrCreate loads the record for (userID, algorithm), creating it when
// absent. turnsAtStart is captured only on insert; later calls never rewrite
// it. The composite unique index collapses concurrent first-turn upserts.
func (st *Store) FindOrCreate(userID uint, algorithm string, turnsAtStart int) (*Record, error) {
	var r Record
	err := st.db.
		Where(&Record{UserID: userID, Algorithm: algorithm}).
		Attrs(&Record{TurnsAtStart: turnsAtStart}).
		FirstOrCreate(&r).Error
	if err != nil {
		return nil, fmt.Errorf("find or create progress: %w", err)
	}
	r.DecodeMilestones()
	return &r, nil
}

// Find returns the record for (userID, algorithm), or nil when none exists.
func (st *Store) Find(userID uint, algorithm string) (*Record, error) {
	var r Record
	err := st.db.Where("user_id = ? AND algorithm = ?", userID, algorithm).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find progress: %w", err)
	}
	r.DecodeMilestones()
	return &r, nil
}

// Save re-encodes the milestone blob and persists the record.
func (st *Store) Save(r *Record) error {
	if err := r.EncodeMilestones(); err != nil {
		return fmt.Errorf("encode milestones: %w", err)
	}
	if err := st.db.Save(r).Error; err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}
