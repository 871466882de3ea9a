package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	rows "github.com/gartstein/arctecfox/internal/arctecfox/db/models"
	e "github.com/gartstein/arctecfox/internal/arctecfox/errors"
	"github.com/gartstein/arctecfox/internal/arctecfox/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// AccountStore persists credentials.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *rows.Account) error
	FindAccountByEmail(ctx context.Context, email string) (*rows.Account, error)
	FindAccountByID(ctx context.Context, id uuid.UUID) (*rows.Account, error)
}

// Credentials is the sign-up and sign-in payload.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Session is returned by a successful sign-in.
type Session struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresIn   int64            `json:"expires_in"`
	ExpiresAt   time.Time        `json:"expires_at"`
	User        *models.AuthUser `json:"user"`
}

// Provider implements sign-up, sign-in, sign-out and identity lookup.
type Provider struct {
	accounts AccountStore
	issuer   *TokenIssuer
	revoked  *RevocationList
	validate *validator.Validate
	logger   *zap.Logger
}

// NewProvider constructs a Provider.
func NewProvider(accounts AccountStore, issuer *TokenIssuer, revoked *RevocationList, logger *zap.Logger) *Provider {
	return &Provider{
		accounts: accounts,
		issuer:   issuer,
		revoked:  revoked,
		validate: validator.New(),
		logger:   logger.Named("auth_provider"),
	}
}

// SignUp registers a new account.
func (p *Provider) SignUp(ctx context.Context, creds Credentials) (*models.AuthUser, error) {
	if err := p.validate.Struct(creds); err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &rows.Account{
		ID:           uuid.New(),
		Email:        creds.Email,
		PasswordHash: string(hash),
	}
	if err := p.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, e.ErrDuplicateName) {
			return nil, fmt.Errorf("%w: user already registered", e.ErrDuplicateName)
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	p.logger.Info("account created", zap.String("user_id", account.ID.String()))
	return accountToUser(account), nil
}

// SignIn checks the password and issues an access token.
func (p *Provider) SignIn(ctx context.Context, creds Credentials) (*Session, error) {
	account, err := p.accounts.FindAccountByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid login credentials", e.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid login credentials", e.ErrUnauthenticated)
	}

	token, claims, err := p.issuer.Issue(account.ID.String(), account.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	expiresAt := claims.ExpiresAt.Time
	return &Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
		ExpiresAt:   expiresAt,
		User:        accountToUser(account),
	}, nil
}

// SignOut revokes the token for the rest of its lifetime.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	claims, err := p.issuer.Validate(token)
	if err != nil {
		return fmt.Errorf("%w: %v", e.ErrUnauthenticated, err)
	}
	if err := p.revoked.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	p.logger.Info("signed out", zap.String("user_id", claims.Subject))
	return nil
}

// GetUser resolves the identity behind a token.
func (p *Provider) GetUser(ctx context.Context, token string) (*models.AuthUser, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: no session", e.ErrUnauthenticated)
	}
	claims, err := p.issuer.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrUnauthenticated, err)
	}

	revoked, err := p.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: session has been signed out", e.ErrUnauthenticated)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed subject", e.ErrUnauthenticated)
	}
	account, err := p.accounts.FindAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, fmt.Errorf("%w: account no longer exists", e.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return accountToUser(account), nil
}

func accountToUser(a *rows.Account) *models.AuthUser {
	return &models.AuthUser{
		ID:        a.ID.String(),
		Email:     a.Email,
		CreatedAt: a.CreatedAt,
	}
}
