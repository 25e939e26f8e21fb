package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEngineer Role = "engineer"
	RoleSupport  Role = "support"
)

// AssignmentRoles lists the role pools a ticket rotates through, in the order
// their members appear in Ticket.Assignees.
var AssignmentRoles = []Role{RoleAdmin, RoleEngineer, RoleSupport}

// ParseRole normalises a role name. "viewer" is an older name for the
// support pool and is folded into it.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, true
	case "engineer":
		return RoleEngineer, true
	case "support", "viewer":
		return RoleSupport, true
	default:
		return "", false
	}
}

type Profile struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Email     string         `json:"email" gorm:"uniqueIndex;not null"`
	Password  string         `json:"-" gorm:"not null"`
	FullName  string         `json:"full_name" gorm:"not null"`
	Role      Role           `json:"role" gorm:"not null;index;default:'support'"`
	AvatarURL *string        `json:"avatar_url"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Profile) TableName() string {
	return "profiles"
}
