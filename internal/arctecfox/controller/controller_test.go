package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/gartstein/arctecfox/internal/arctecfox/db"
	e "github.com/gartstein/arctecfox/internal/arctecfox/errors"
	"github.com/gartstein/arctecfox/internal/arctecfox/events"
	"github.com/gartstein/arctecfox/internal/arctecfox/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
)

// MockRepository implements the Repository interface for testing
type MockRepository struct {
	findCompanyByName func(context.Context, string) (*models.Company, error)
	createCompany     func(context.Context, *models.Company) error
	upsertUser        func(context.Context, *models.User) (*models.User, error)
	profileCompleted  func(context.Context, string) (*bool, error)
}

func (m *MockRepository) FindCompanyByName(ctx context.Context, name string) (*models.Company, error) {
	return m.findCompanyByName(ctx, name)
}

func (m *MockRepository) CreateCompany(ctx context.Context, c *models.Company) error {
	return m.createCompany(ctx, c)
}

func (m *MockRepository) UpsertUser(ctx context.Context, u *models.User) (*models.User, error) {
	return m.upsertUser(ctx, u)
}

func (m *MockRepository) ProfileCompleted(ctx context.Context, id string) (*bool, error) {
	return m.profileCompleted(ctx, id)
}

// MockProducer records produced events.
type MockProducer struct {
	mu             sync.Mutex
	producedEvents []events.Event
}

func (m *MockProducer) Produce(event events.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.producedEvents = append(m.producedEvents, event)
}

func (m *MockProducer) types() []events.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.EventType, 0, len(m.producedEvents))
	for _, ev := range m.producedEvents {
		out = append(out, ev.Type)
	}
	return out
}

// stubIdentity maps tokens to identities.
type stubIdentity map[string]*models.AuthUser

func (s stubIdentity) GetUser(_ context.Context, token string) (*models.AuthUser, error) {
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("%w: no session", e.ErrUnauthenticated)
}

var (
	jane     = &models.AuthUser{ID: "user-1", Email: "jane@example.com"}
	identity = stubIdentity{"token-1": jane}
	profile  = &models.ProfileData{
		FullName:    "Jane Doe",
		Role:        "Reliability Engineer",
		CompanyName: "Acme",
		Industry:    "Manufacturing",
		CompanySize: "11-50",
	}
)

func echoUpsert(_ context.Context, u *models.User) (*models.User, error) {
	copied := *u
	return &copied, nil
}

func TestProfileService_CompleteProfile(t *testing.T) {
	existingID := uuid.New()
	createdID := uuid.New()

	tests := []struct {
		name          string
		token         string
		input         *models.ProfileData
		mockSetup     func(*MockRepository)
		expectError   bool
		expectedError error
		errorContains string
		wantCompany   uuid.UUID
		wantEvents    []events.EventType
	}{
		{
			name:  "existing company is reused",
			token: "token-1",
			input: profile,
			mockSetup: func(mr *MockRepository) {
				mr.findCompanyByName = func(_ context.Context, name string) (*models.Company, error) {
					return &models.Company{ID: existingID, Name: name}, nil
				}
				mr.createCompany = func(_ context.Context, _ *models.Company) error {
					return errors.New("must not create")
				}
				mr.upsertUser = echoUpsert
			},
			wantCompany: existingID,
			wantEvents:  []events.EventType{events.ProfileCompleted},
		},
		{
			name:  "missing company is created",
			token: "token-1",
			input: profile,
			mockSetup: func(mr *MockRepository) {
				mr.findCompanyByName = func(_ context.Context, _ string) (*models.Company, error) {
					return nil, e.ErrNotFound
				}
				mr.createCompany = func(_ context.Context, c *models.Company) error {
					if c.Name != "Acme" || c.Industry != "Manufacturing" || c.CompanySize != "11-50" {
						return fmt.Errorf("unexpected company %+v", c)
					}
					c.ID = createdID
					return nil
				}
				mr.upsertUser = echoUpsert
			},
			wantCompany: createdID,
			wantEvents:  []events.EventType{events.CompanyCreated, events.ProfileCompleted},
		},
		{
			name:  "lost creation race reuses the winner",
			token: "token-1",
			input: profile,
			mockSetup: func(mr *MockRepository) {
				calls := 0
				mr.findCompanyByName = func(_ context.Context, name string) (*models.Company, error) {
					calls++
					if calls == 1 {
						return nil, e.ErrNotFound
					}
					return &models.Company{ID: existingID, Name: name}, nil
				}
				mr.createCompany = func(_ context.Context, _ *models.Company) error {
					return e.ErrDuplicateName
				}
				mr.upsertUser = echoUpsert
			},
			wantCompany: existingID,
			wantEvents:  []events.EventType{events.ProfileCompleted},
		},
		{
			name:          "no authenticated user",
			token:         "unknown",
			input:         profile,
			mockSetup:     func(_ *MockRepository) {},
			expectError:   true,
			expectedError: e.ErrUnauthenticated,
		},
		{
			name:          "missing company name",
			token:         "token-1",
			input:         &models.ProfileData{FullName: "Jane"},
			mockSetup:     func(_ *MockRepository) {},
			expectError:   true,
			expectedError: e.ErrInvalidInput,
		},
		{
			name:  "company lookup failure is fatal",
			token: "token-1",
			input: profile,
			mockSetup: func(mr *MockRepository) {
				mr.findCompanyByName = func(_ context.Context, _ string) (*models.Company, error) {
					return nil, errors.New("connection reset")
				}
			},
			expectError:   true,
			errorContains: "error checking company: connection reset",
		},
		{
			name:  "company insert failure is fatal",
			token: "token-1",
			input: profile,
			mockSetup: func(mr *MockRepository) {
				mr.findCompanyByName = func(_ context.Context, _ string) (*models.Company, error) {
					return nil, e.ErrNotFound
				}
				mr.createCompany = func(_ context.Context, _ *models.Company) error {
					return errors.New("permission denied")
				}
			},
			expectError:   true,
			errorContains: "error creating company: permission denied",
		},
		{
			name:  "user upsert failure is fatal",
			token: "token-1",
			input: profile,
			mockSetup: func(mr *MockRepository) {
				mr.findCompanyByName = func(_ context.Context, name string) (*models.Company, error) {
					return &models.Company{ID: existingID, Name: name}, nil
				}
				mr.upsertUser = func(_ context.Context, _ *models.User) (*models.User, error) {
					return nil, errors.New("row level security")
				}
			},
			expectError:   true,
			errorContains: "error completing profile: row level security",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockRepository{}
			mockProducer := &MockProducer{}
			tt.mockSetup(mockRepo)
			service := NewProfileService(mockRepo, identity, mockProducer, zaptest.NewLogger(t))

			user, err := service.CompleteProfile(context.Background(), tt.token, tt.input)

			if tt.expectError {
				require.Error(t, err)
				if tt.expectedError != nil {
					assert.ErrorIs(t, err, tt.expectedError)
				}
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
				assert.Empty(t, mockProducer.types(), "failures must not produce events")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, jane.ID, user.ID)
			assert.Equal(t, jane.Email, user.Email)
			assert.Equal(t, "Jane Doe", user.FullName)
			assert.Equal(t, "Acme", user.CompanyName)
			assert.True(t, user.ProfileCompleted)
			assert.False(t, user.UpdatedAt.IsZero())
			require.NotNil(t, user.CompanyID)
			assert.Equal(t, tt.wantCompany, *user.CompanyID)
			assert.Equal(t, tt.wantEvents, mockProducer.types())
		})
	}
}

func TestProfileService_IsProfileComplete(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name          string
		userID        string
		stored        *bool
		storeErr      error
		want          bool
		expectedError error
		expectError   bool
	}{
		{name: "completed", userID: "u", stored: &yes, want: true},
		{name: "not completed", userID: "u", stored: &no, want: false},
		{name: "flag unset", userID: "u", stored: nil, want: false},
		{name: "row not found", userID: "u", storeErr: e.ErrNotFound, want: false},
		{name: "store failure", userID: "u", storeErr: errors.New("timeout"), expectError: true},
		{name: "empty user id", userID: "", expectError: true, expectedError: e.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockRepository{
				profileCompleted: func(_ context.Context, _ string) (*bool, error) {
					return tt.stored, tt.storeErr
				},
			}
			service := NewProfileService(mockRepo, identity, &MockProducer{}, zaptest.NewLogger(t))

			got, err := service.IsProfileComplete(context.Background(), tt.userID)

			if tt.expectError {
				require.Error(t, err)
				if tt.expectedError != nil {
					assert.ErrorIs(t, err, tt.expectedError)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newSQLiteRepo(t *testing.T) *db.Repository {
	repo, err := db.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestProfileService_CompleteProfileAgainstStore(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	ids := stubIdentity{
		"token-1": jane,
		"token-2": {ID: "user-2", Email: "sam@example.com"},
	}
	service := NewProfileService(repo, ids, events.Nop{}, zaptest.NewLogger(t))

	first, err := service.CompleteProfile(ctx, "token-1", profile)
	require.NoError(t, err)
	second, err := service.CompleteProfile(ctx, "token-2", profile)
	require.NoError(t, err)

	companies, err := repo.FetchAll(ctx, "companies")
	require.NoError(t, err)
	assert.Len(t, companies, 1, "the same company name must map to one row")
	assert.Equal(t, *first.CompanyID, *second.CompanyID, "second completion reuses the first company")

	users, err := repo.FetchAll(ctx, "users")
	require.NoError(t, err)
	assert.Len(t, users, 2)

	done, err := service.IsProfileComplete(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, done)

	done, err = service.IsProfileComplete(ctx, "user-without-row")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestProfileService_CompleteProfileTwiceSameUser(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	service := NewProfileService(repo, identity, events.Nop{}, zaptest.NewLogger(t))

	_, err := service.CompleteProfile(ctx, "token-1", profile)
	require.NoError(t, err)

	updated := *profile
	updated.Role = "Maintenance Manager"
	user, err := service.CompleteProfile(ctx, "token-1", &updated)
	require.NoError(t, err)
	assert.Equal(t, "Maintenance Manager", user.Role)

	users, err := repo.FetchAll(ctx, "users")
	require.NoError(t, err)
	assert.Len(t, users, 1)
	companies, err := repo.FetchAll(ctx, "companies")
	require.NoError(t, err)
	assert.Len(t, companies, 1)
}
