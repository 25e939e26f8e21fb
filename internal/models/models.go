package models

// All lists every model migrated by db.AutoMigrate, parents first
func All() []interface{} {
	return []interface{}{
		&Profile{},
		&AssignmentTracker{},
		&LogEntry{},
		&Ticket{},
		&ChatMessage{},
		&Recommendation{},
		&NotificationSetting{},
	}
}
