package models

import "time"

// Asset is a piece of equipment registered by a company.
type Asset struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:255" json:"name"`
	Model       string `gorm:"size:255" json:"model"`
	Serial      string `gorm:"size:255" json:"serial"`
	Category    string `gorm:"size:255" json:"category"`
	Hours       int    `json:"hours"`
	Cycles      int    `json:"cycles"`
	Environment string `gorm:"size:255" json:"environment"`
	CreatedAt   time.Time
}

// Metric is a dashboard figure.
type Metric struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	Name       string  `gorm:"size:255" json:"name"`
	Value      float64 `json:"value"`
	RecordedAt time.Time
}
