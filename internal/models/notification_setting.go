package models

import "time"

type NotificationSetting struct {
	ProfileID           uint      `json:"profile_id" gorm:"primaryKey;autoIncrement:false"`
	EmailOnAssignment   bool      `json:"email_on_assignment"`
	EmailOnStatusChange bool      `json:"email_on_status_change"`
	EmailOnChat         bool      `json:"email_on_chat"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (NotificationSetting) TableName() string {
	return "notification_settings"
}

// DefaultNotificationSetting is what a profile gets before saving any preference
func DefaultNotificationSetting(profileID uint) NotificationSetting {
	return NotificationSetting{
		ProfileID:           profileID,
		EmailOnAssignment:   true,
		EmailOnStatusChange: true,
		EmailOnChat:         false,
	}
}
