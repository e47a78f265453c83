package model

import "time"

// SettingType tags how a setting's text value should be decoded.
type SettingType string

const (
	SettingString  SettingType = "string"
	SettingNumber  SettingType = "number"
	SettingBoolean SettingType = "boolean"
	SettingJSON    SettingType = "json"
)

// Setting is one typed key/value pair of application configuration.
// The value is stored as text and decoded according to Type.
type Setting struct {
	ID          string      `gorm:"primaryKey;size:36" json:"id"`
	Key         string      `gorm:"uniqueIndex;size:100;not null" json:"key"`
	Value       string      `gorm:"type:text;not null" json:"value"`
	Type        SettingType `gorm:"size:20;not null;default:string" json:"type"`
	Description string      `gorm:"size:255" json:"description"`
	Category    string      `gorm:"size:50;not null;default:general" json:"category"`
	CreatedAt   time.Time   `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time   `gorm:"not null" json:"updatedAt"`
}
