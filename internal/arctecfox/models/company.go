// Package models defines the core domain models shared by the backend,
// the planning API and the client: companies, users, auth identities,
// asset descriptions and maintenance tasks.
package models

import (
	"github.com/google/uuid"
)

// Company defines the domain model for a company entity.
type Company struct {
	// ID is the unique identifier for the company.
	ID uuid.UUID `json:"id"`
	// Name is the company’s name and its lookup key.
	Name string `json:"name"`
	// Industry is the sector the company operates in.
	Industry string `json:"industry"`
	// CompanySize is the self-reported size bucket, e.g. "11-50".
	CompanySize string `json:"company_size"`
}
