package models

import "time"

// AssignmentTracker is the persisted round-robin cursor of one role pool.
// LastIndex is the pool index handed out most recently, -1 before the first
// assignment.
type AssignmentTracker struct {
	Role      Role      `json:"role" gorm:"primaryKey"`
	LastIndex int       `json:"last_index" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AssignmentTracker) TableName() string {
	return "assignment_trackers"
}
