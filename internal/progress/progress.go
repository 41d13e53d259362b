package progress

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Milestone status values. "in_progress" is reserved: the engine only ever
// writes pending and done.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// Milestone is the persisted completion state for one learning checkpoint.
// Title is captured at initialization time and may drift from the registry.
type Milestone struct {
	Key         string     `json:"key"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completedAt"`
	XPAwarded   int        `json:"xpAwarded"`
}

// Record tracks one user's milestone progress for one algorithm. Milestones
// are stored as a JSON blob and decoded into the ordered slice around gorm,
// same round-trip the rest of the persistence layer uses for structured state.
type Record struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	UserID    uint   `json:"user_id" gorm:"uniqueIndex:idx_progress_user_algorithm"`
	Algorithm string `json:"algorithm" gorm:"size:64;uniqueIndex:idx_progress_user_algorithm"`

	MilestoneData datatypes.JSON `json:"-" gorm:"column:milestones"`
	Milestones    []Milestone    `json:"milestones" gorm:"-"`

	IsCompleted           bool `json:"isCompleted" gorm:"default:false"`
	TotalXPFromMilestones int  `json:"totalXpFromMilestones" gorm:"default:0"`

	// Pacing counters. TurnsAtStart is the session message count when this
	// record was created; QualityTurns counts only turns where the grader
	// judged the student's answer as showing understanding.
	TurnsAtStart int `json:"turnsAtStart" gorm:"default:0"`
	QualityTurns int `json:"qualityTurns" gorm:"default:0"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Record) TableName() string {
	return "progress_records"
}

// DecodeMilestones unpacks the persisted blob into r.Milestones. A missing or
// malformed blob decodes to an empty slice so the engine can lazily
// re-initialize; data-shape problems never surface as errors here.
func (r *Record) DecodeMilestones() {
	r.Milestones = nil
	if len(r.MilestoneData) == 0 {
		return
	}
	var ms []Milestone
	if err := json.Unmarshal(r.MilestoneData, &ms); err != nil {
		return
	}
	r.Milestones = ms
}

// EncodeMilestones packs r.Milestones back into the persisted blob.
func (r *Record) EncodeMilestones() error {
	raw, err := json.Marshal(r.Milestones)
	if err != nil {
		return err
	}
	r.MilestoneData = datatypes.JSON(raw)
	return nil
}

// DoneCount returns how many milestones are done.
func (r *Record) DoneCount() int {
	n := 0
	for _, m := range r.Milestones {
		if m.Status == StatusDone {
			n++
		}
	}
	return n
}

// AllDone reports whether every milestone is done. An empty slice counts as
// all done, which is what makes an unknown algorithm trivially complete.
func (r *Record) AllDone() bool {
	for _, m := range r.Milestones {
		if m.Status != StatusDone {
			return false
		}
	}
	return true
}

// FindMilestone returns a pointer into r.Milestones for the given key, or nil.
func (r *Record) FindMilestone(key string) *Milestone {
	for i := range r.Milestones {
		if r.Milestones[i].Key == key {
			return &r.Milestones[i]
		}
	}
	return nil
}
