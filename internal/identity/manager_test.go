package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/mydemos/lms/internal/db"
	"github.com/mydemos/lms/internal/email"
	"github.com/mydemos/lms/internal/email/mocks"
)

func newTestManager(t *testing.T, sender email.Sender) *Manager {
	t.Helper()
	database, err := db.Connect(context.Background(), db.NewMemoryProvider(t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	if sender == nil {
		sender = email.NewLogSender()
	}
	return NewManager(database, Options{
		RequireConfirmedAccount: true,
		PasswordRequiredLength:  8,
		HashCost:                bcrypt.MinCost,
	}, NewTokenManager([]byte("test-signing-key")), sender)
}

func TestCreateUser(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	user, err := m.CreateUser(ctx, RegisterRequest{UserName: "reader1", Email: "reader1@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.NotEmpty(t, user.UserID)
	assert.NotEqual(t, "password1", user.PasswordHash)
	assert.False(t, user.EmailConfirmed)

	found, err := m.FindByName(ctx, "READER1")
	require.NoError(t, err)
	assert.Equal(t, user.UserID, found.UserID)
	assert.True(t, m.CheckPassword(found, "password1"))
	assert.False(t, m.CheckPassword(found, "password2"))

	_, err = m.CreateUser(ctx, RegisterRequest{UserName: "Reader1", Email: "other@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrDuplicateUserName)
}

func TestCreateUserValidation(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"short password", RegisterRequest{UserName: "reader", Email: "r@example.com", Password: "abc1"}},
		{"no digit", RegisterRequest{UserName: "reader", Email: "r@example.com", Password: "abcdefgh"}},
		{"no letter", RegisterRequest{UserName: "reader", Email: "r@example.com", Password: "12345678"}},
		{"bad user name", RegisterRequest{UserName: "re ader", Email: "r@example.com", Password: "password1"}},
		{"bad email", RegisterRequest{UserName: "reader", Email: "example.com", Password: "password1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.CreateUser(ctx, tt.req)
			assert.Error(t, err)
		})
	}
}

func TestRegisterSendsConfirmation(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)
	m := newTestManager(t, sender)
	ctx := context.Background()
	require.NoError(t, m.SeedRoles(ctx, RoleAdmin, RoleUser))

	var body string
	sender.EXPECT().
		SendEmail(gomock.Any(), "new@example.com", "Confirm your email", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, htmlMessage string) error {
			body = htmlMessage
			return nil
		})

	user, err := m.Register(ctx, RegisterRequest{UserName: "newuser", Email: "new@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Contains(t, body, "/Identity/Account/ConfirmEmail?userId="+user.UserID)

	roles, err := m.RolesFor(ctx, user.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{RoleUser}, roles)
}

func TestPasswordSignIn(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	user, err := m.CreateUser(ctx, RegisterRequest{UserName: "signin", Email: "signin@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = m.PasswordSignIn(ctx, "nobody", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = m.PasswordSignIn(ctx, "signin", "wrong-pass1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = m.PasswordSignIn(ctx, "signin", "password1")
	assert.ErrorIs(t, err, ErrNotAllowed)

	token, err := m.GenerateEmailConfirmationToken(user)
	require.NoError(t, err)
	require.NoError(t, m.ConfirmEmail(ctx, user.UserID, token))

	p, err := m.PasswordSignIn(ctx, "signin", "password1")
	require.NoError(t, err)
	assert.Equal(t, user.UserID, p.UserID)
	assert.Equal(t, "signin", p.UserName)
	require.NoError(t, m.ValidatePrincipal(ctx, p))
}

func TestConfirmEmailRejectsForeignToken(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	alice, err := m.CreateUser(ctx, RegisterRequest{UserName: "alice", Email: "alice@example.com", Password: "password1"})
	require.NoError(t, err)
	bob, err := m.CreateUser(ctx, RegisterRequest{UserName: "bob", Email: "bob@example.com", Password: "password1"})
	require.NoError(t, err)

	token, err := m.GenerateEmailConfirmationToken(alice)
	require.NoError(t, err)

	assert.ErrorIs(t, m.ConfirmEmail(ctx, bob.UserID, token), ErrInvalidToken)
	assert.ErrorIs(t, m.ConfirmEmail(ctx, alice.UserID, "garbage"), ErrInvalidToken)

	found, err := m.FindByID(ctx, bob.UserID)
	require.NoError(t, err)
	assert.False(t, found.EmailConfirmed)
}

func TestRoles(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	_, err := m.CreateRole(ctx, "Librarian")
	require.NoError(t, err)
	_, err = m.CreateRole(ctx, "LIBRARIAN")
	assert.ErrorIs(t, err, ErrDuplicateRoleName)

	exists, err := m.RoleExists(ctx, "librarian")
	require.NoError(t, err)
	assert.True(t, exists)

	user, err := m.CreateUser(ctx, RegisterRequest{UserName: "staff", Email: "staff@example.com", Password: "password1"})
	require.NoError(t, err)

	require.NoError(t, m.AddToRole(ctx, user.UserID, "Librarian"))
	require.NoError(t, m.AddToRole(ctx, user.UserID, "Librarian"))
	assert.ErrorIs(t, m.AddToRole(ctx, user.UserID, "Missing"), ErrRoleNotFound)

	ok, err := m.IsInRole(ctx, user.UserID, "librarian")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.IsInRole(ctx, user.UserID, RoleAdmin)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSeedIsIdempotent(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	for range 2 {
		require.NoError(t, m.Seed(ctx, "admin", "admin@example.com", "Admin1234"))
	}

	admin, err := m.FindByName(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, admin.EmailConfirmed)

	roles, err := m.RolesFor(ctx, admin.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{RoleAdmin}, roles)

	p, err := m.PasswordSignIn(ctx, "admin", "Admin1234")
	require.NoError(t, err)
	assert.True(t, p.IsInRole("admin"))
}

func TestSeedWithoutAdminPassword(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	require.NoError(t, m.Seed(ctx, "admin", "admin@example.com", ""))
	_, err := m.FindByName(ctx, "admin")
	assert.ErrorIs(t, err, ErrUserNotFound)

	exists, err := m.RoleExists(ctx, RoleUser)
	require.NoError(t, err)
	assert.True(t, exists)
}
