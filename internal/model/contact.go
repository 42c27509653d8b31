package model

import "time"

// Contact is a person reminders can be assigned to.
type Contact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	PhoneRaw  string    `gorm:"size:64" json:"phone_raw"`
	PhoneE164 string    `gorm:"size:32;not null" json:"phone_e164"`
	ChatID    string    `gorm:"size:64;not null;uniqueIndex" json:"chat_id"`
	Tags      string    `gorm:"size:200" json:"tags"`
	Note      string    `gorm:"size:500" json:"note"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
