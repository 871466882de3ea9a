package models

import (
	"time"

	"github.com/google/uuid"
)

// AuthUser is the identity known to the auth provider.
type AuthUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// User is the profile row stored in the users table.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	FullName         string     `json:"full_name"`
	Role             string     `json:"role"`
	CompanyID        *uuid.UUID `json:"company_id"`
	Industry         string     `json:"industry"`
	CompanySize      string     `json:"company_size"`
	CompanyName      string     `json:"company_name"`
	ProfileCompleted bool       `json:"profile_completed"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ProfileData is what a user submits to complete onboarding.
type ProfileData struct {
	FullName    string `json:"full_name"`
	Role        string `json:"role"`
	CompanyName string `json:"company_name" validate:"required"`
	Industry    string `json:"industry"`
	CompanySize string `json:"company_size"`
}
