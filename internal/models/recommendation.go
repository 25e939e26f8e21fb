package models

import "time"

type Recommendation struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	TicketID    uint      `json:"ticket_id" gorm:"not null;index"`
	Ticket      *Ticket   `json:"-" gorm:"foreignKey:TicketID"`
	Title       string    `json:"title" gorm:"not null"`
	Description *string   `json:"description" gorm:"type:text"`
	URL         *string   `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Recommendation) TableName() string {
	return "recommendations"
}
