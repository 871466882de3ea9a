// Package controller implements the profile business logic: completing a
// user's onboarding profile (find-or-create company, then upsert the user)
// and reporting whether a profile is complete.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	e "github.com/gartstein/arctecfox/internal/arctecfox/errors"
	"github.com/gartstein/arctecfox/internal/arctecfox/events"
	"github.com/gartstein/arctecfox/internal/arctecfox/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(event events.Event)
}

// IdentityResolver resolves the authenticated identity behind a token.
type IdentityResolver interface {
	GetUser(ctx context.Context, token string) (*models.AuthUser, error)
}

// Repository defines the storage interface used by the profile workflow.
type Repository interface {
	FindCompanyByName(ctx context.Context, name string) (*models.Company, error)
	CreateCompany(ctx context.Context, company *models.Company) error
	UpsertUser(ctx context.Context, user *models.User) (*models.User, error)
	ProfileCompleted(ctx context.Context, userID string) (*bool, error)
}

// ProfileService completes user profiles and reports their status.
type ProfileService struct {
	repo     Repository
	identity IdentityResolver
	producer EventProducer
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewProfileService constructs a ProfileService with a repository, an
// identity resolver, an event producer and a logger.
func NewProfileService(repo Repository, identity IdentityResolver, producer EventProducer, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		repo:     repo,
		identity: identity,
		producer: producer,
		validate: validator.New(),
		logger:   logger.Named("profile_service"),
		now:      time.Now,
	}
}

// CompleteProfile resolves the caller, makes sure a company with the
// submitted name exists and upserts the caller's user row pointing at it
// with profile_completed set.
func (s *ProfileService) CompleteProfile(ctx context.Context, token string, profile *models.ProfileData) (*models.User, error) {
	authUser, err := s.identity.GetUser(ctx, token)
	if err != nil || authUser == nil {
		if err != nil && !errors.Is(err, e.ErrUnauthenticated) {
			s.logger.Warn("identity lookup failed", zap.Error(err))
		}
		return nil, fmt.Errorf("%w: no authenticated user", e.ErrUnauthenticated)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: profile data required", e.ErrInvalidInput)
	}
	if err := s.validate.Struct(profile); err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}

	companyID, err := s.resolveCompany(ctx, profile)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.UpsertUser(ctx, &models.User{
		ID:               authUser.ID,
		Email:            authUser.Email,
		FullName:         profile.FullName,
		Role:             profile.Role,
		CompanyID:        &companyID,
		Industry:         profile.Industry,
		CompanySize:      profile.CompanySize,
		CompanyName:      profile.CompanyName,
		UpdatedAt:        s.now().UTC(),
		ProfileCompleted: true,
	})
	if err != nil {
		s.logger.Error("Profile completion failed", zap.Error(err), zap.String("user_id", authUser.ID))
		return nil, fmt.Errorf("error completing profile: %w", err)
	}

	s.logger.Info("Profile updated",
		zap.String("user_id", user.ID),
		zap.String("company_id", companyID.String()),
	)
	s.producer.Produce(events.Event{Type: events.ProfileCompleted, User: user})
	return user, nil
}

// resolveCompany returns the id of the company named in the profile,
// creating the company when the lookup finds nothing.
func (s *ProfileService) resolveCompany(ctx context.Context, profile *models.ProfileData) (uuid.UUID, error) {
	existing, err := s.repo.FindCompanyByName(ctx, profile.CompanyName)
	switch {
	case err == nil:
		return existing.ID, nil
	case !errors.Is(err, e.ErrNotFound):
		return uuid.Nil, fmt.Errorf("error checking company: %w", err)
	}

	company := &models.Company{
		Name:        profile.CompanyName,
		Industry:    profile.Industry,
		CompanySize: profile.CompanySize,
	}
	if err := s.repo.CreateCompany(ctx, company); err != nil {
		if !errors.Is(err, e.ErrDuplicateName) {
			return uuid.Nil, fmt.Errorf("error creating company: %w", err)
		}
		// Another completion created the same company after our lookup.
		winner, lookupErr := s.repo.FindCompanyByName(ctx, profile.CompanyName)
		if lookupErr != nil {
			return uuid.Nil, fmt.Errorf("error creating company: %w", lookupErr)
		}
		s.logger.Info("Company created concurrently, reusing it", zap.String("company_id", winner.ID.String()))
		return winner.ID, nil
	}

	s.logger.Info("Company created", zap.String("company_id", company.ID.String()), zap.String("name", company.Name))
	s.producer.Produce(events.Event{Type: events.CompanyCreated, Company: company})
	return company.ID, nil
}

// IsProfileComplete reports the stored profile_completed flag. A missing
// row or an unset flag both read as false.
func (s *ProfileService) IsProfileComplete(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("%w: user ID is required to check profile status", e.ErrInvalidInput)
	}

	completed, err := s.repo.ProfileCompleted(ctx, userID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return false, nil
		}
		s.logger.Error("Error checking profile completion", zap.Error(err), zap.String("user_id", userID))
		return false, fmt.Errorf("failed to check profile completion: %w", err)
	}
	if completed == nil {
		return false, nil
	}
	return *completed, nil
}
