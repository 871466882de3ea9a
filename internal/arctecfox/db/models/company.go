// Package models contains the table rows of the backend store,
// configured to work using GORM as the ORM.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Company is a row of the companies table. Name carries a unique index so a
// company is never stored twice under the same name.
type Company struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"size:255;not null;uniqueIndex"`
	Industry    string    `gorm:"size:255"`
	CompanySize string    `gorm:"size:64"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// User is a row of the users table, keyed by the auth identity id.
// ProfileCompleted is nullable: a row may exist before onboarding sets it.
type User struct {
	ID               string     `gorm:"size:64;primaryKey"`
	Email            string     `gorm:"size:255"`
	FullName         string     `gorm:"size:255"`
	Role             string     `gorm:"size:128"`
	CompanyID        *uuid.UUID `gorm:"type:uuid;index"`
	Industry         string     `gorm:"size:255"`
	CompanySize      string     `gorm:"size:64"`
	CompanyName      string     `gorm:"size:255"`
	ProfileCompleted *bool
	UpdatedAt        time.Time
}
