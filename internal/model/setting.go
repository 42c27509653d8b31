package model

// Setting is a singleton key/value row (message template and friends).
// Rare admin writes, last writer wins.
type Setting struct {
	Key   string `gorm:"size:100;primaryKey" json:"key"`
	Value string `gorm:"not null" json:"value"`
}

// SettingTemplate is the key the reminder message template lives under.
const SettingTemplate = "message_template"
