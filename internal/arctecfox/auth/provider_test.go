package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gartstein/arctecfox/internal/arctecfox/cache"
	rows "github.com/gartstein/arctecfox/internal/arctecfox/db/models"
	e "github.com/gartstein/arctecfox/internal/arctecfox/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// memoryAccounts is an in-memory AccountStore.
type memoryAccounts struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*rows.Account
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{accounts: map[uuid.UUID]*rows.Account{}}
}

func (m *memoryAccounts) CreateAccount(_ context.Context, account *rows.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == account.Email {
			return e.ErrDuplicateName
		}
	}
	copied := *account
	m.accounts[account.ID] = &copied
	return nil
}

func (m *memoryAccounts) FindAccountByEmail(_ context.Context, email string) (*rows.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, e.ErrNotFound
}

func (m *memoryAccounts) FindAccountByID(_ context.Context, id uuid.UUID) (*rows.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		return a, nil
	}
	return nil, e.ErrNotFound
}

// memoryKV is an in-memory KeyValueStore.
type memoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: map[string][]byte{}}
}

func (m *memoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memoryKV) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func newTestProvider(t *testing.T) *Provider {
	return NewProvider(
		newMemoryAccounts(),
		NewTokenIssuer("test-secret", time.Hour),
		NewRevocationList(newMemoryKV()),
		zaptest.NewLogger(t),
	)
}

func TestProvider_SignUpAndSignIn(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	user, err := p.SignUp(ctx, Credentials{Email: "jane@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)

	session, err := p.SignIn(ctx, Credentials{Email: "jane@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.User.ID, "sign-in should return the registered identity")
	assert.Equal(t, "bearer", session.TokenType)
	assert.NotEmpty(t, session.AccessToken)

	current, err := p.GetUser(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.ID)
}

func TestProvider_SignUpValidation(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		creds Credentials
	}{
		{name: "missing email", creds: Credentials{Password: "secret1"}},
		{name: "malformed email", creds: Credentials{Email: "not-an-email", Password: "secret1"}},
		{name: "short password", creds: Credentials{Email: "jane@example.com", Password: "123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.SignUp(ctx, tt.creds)
			assert.ErrorIs(t, err, e.ErrInvalidInput)
		})
	}
}

func TestProvider_SignUpDuplicate(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()
	creds := Credentials{Email: "jane@example.com", Password: "secret1"}

	_, err := p.SignUp(ctx, creds)
	require.NoError(t, err)
	_, err = p.SignUp(ctx, creds)
	assert.ErrorIs(t, err, e.ErrDuplicateName)
}

func TestProvider_SignInRejected(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()
	_, err := p.SignUp(ctx, Credentials{Email: "jane@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = p.SignIn(ctx, Credentials{Email: "jane@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, e.ErrUnauthenticated)

	_, err = p.SignIn(ctx, Credentials{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, e.ErrUnauthenticated)
}

func TestProvider_SignOutRevokesToken(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()
	_, err := p.SignUp(ctx, Credentials{Email: "jane@example.com", Password: "secret1"})
	require.NoError(t, err)
	session, err := p.SignIn(ctx, Credentials{Email: "jane@example.com", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, p.SignOut(ctx, session.AccessToken))

	_, err = p.GetUser(ctx, session.AccessToken)
	assert.ErrorIs(t, err, e.ErrUnauthenticated, "a signed-out token must be rejected")
}

func TestProvider_RevocationOutageFailsClosed(t *testing.T) {
	redis := cache.New("127.0.0.1:1", "", 0, zaptest.NewLogger(t))
	defer redis.Close()
	p := NewProvider(
		newMemoryAccounts(),
		NewTokenIssuer("test-secret", time.Hour),
		NewRevocationList(redis),
		zaptest.NewLogger(t),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := p.SignUp(ctx, Credentials{Email: "jane@example.com", Password: "secret1"})
	require.NoError(t, err)
	session, err := p.SignIn(ctx, Credentials{Email: "jane@example.com", Password: "secret1"})
	require.NoError(t, err)

	user, err := p.GetUser(ctx, session.AccessToken)
	require.Error(t, err)
	assert.Nil(t, user)
	assert.Contains(t, err.Error(), "check revocation")
}

func TestProvider_GetUserWithoutToken(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.GetUser(context.Background(), "")
	assert.ErrorIs(t, err, e.ErrUnauthenticated)

	_, err = p.GetUser(context.Background(), "garbage")
	assert.ErrorIs(t, err, e.ErrUnauthenticated)
}
