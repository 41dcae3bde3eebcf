package models

import (
	"time"
)

// Message is one inbound or outbound WhatsApp message, kept for the dashboard
// conversation history.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ChatID    string    `gorm:"index;not null" json:"chat_id"`
	Direction string    `gorm:"type:varchar(10);not null" json:"direction"` // "in" or "out"
	Content   string    `gorm:"type:text" json:"content"`
	Status    string    `gorm:"type:varchar(20)" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}
