// Package identity manages user accounts, roles, sign-in and the
// authentication cookie.
package identity

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mydemos/lms/internal/db"
	"github.com/mydemos/lms/internal/email"
	"github.com/mydemos/lms/internal/model"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrRoleNotFound       = errors.New("role not found")
	ErrDuplicateUserName  = errors.New("user name is already taken")
	ErrDuplicateRoleName  = errors.New("role already exists")
	ErrInvalidCredentials = errors.New("invalid user name or password")
	ErrNotAllowed         = errors.New("sign in is not allowed until the email address is confirmed")
)

// Role names created at startup.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// confirmationLifetime bounds how long an email confirmation link works.
const confirmationLifetime = 24 * time.Hour

// Principal is the authenticated identity carried by the auth cookie.
type Principal struct {
	UserID        string
	UserName      string
	Roles         []string
	SecurityStamp string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

func (p *Principal) IsInRole(role string) bool {
	return slices.ContainsFunc(p.Roles, func(r string) bool { return Normalize(r) == Normalize(role) })
}

// Options configures account policies.
type Options struct {
	RequireConfirmedAccount bool
	PasswordRequiredLength  int
	// HashCost is the bcrypt cost; zero means bcrypt.DefaultCost.
	HashCost int
	// ConfirmEmailURL is the absolute or rooted URL of the confirmation page.
	ConfirmEmailURL string
}

// RegisterRequest holds the fields accepted by the registration page.
type RegisterRequest struct {
	UserName string
	Email    string
	Password string
}

// Manager handles users, roles and password sign-in.
type Manager struct {
	database *db.Database
	opts     Options
	tokens   *TokenManager
	sender   email.Sender
}

func NewManager(database *db.Database, opts Options, tokens *TokenManager, sender email.Sender) *Manager {
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	if opts.PasswordRequiredLength == 0 {
		opts.PasswordRequiredLength = 8
	}
	if opts.ConfirmEmailURL == "" {
		opts.ConfirmEmailURL = "/Identity/Account/ConfirmEmail"
	}
	return &Manager{
		database: database,
		opts:     opts,
		tokens:   tokens,
		sender:   sender,
	}
}

// CreateUser validates and stores a new account with a hashed password.
func (m *Manager) CreateUser(ctx context.Context, req RegisterRequest) (*model.User, error) {
	log.Debug("Creating new user", "user_name", req.UserName)

	if err := ValidateUserName(req.UserName); err != nil {
		return nil, fmt.Errorf("invalid user name: %w", err)
	}
	if err := ValidateEmail(req.Email); err != nil {
		return nil, fmt.Errorf("invalid email: %w", err)
	}
	if err := ValidatePassword(req.Password, m.opts.PasswordRequiredLength); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	_, err := m.FindByName(ctx, req.UserName)
	if err == nil {
		return nil, ErrDuplicateUserName
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check user name: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), m.opts.HashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		UserID:             uuid.NewString(),
		UserName:           req.UserName,
		NormalizedUserName: Normalize(req.UserName),
		Email:              req.Email,
		PasswordHash:       string(hash),
		SecurityStamp:      uuid.NewString(),
		CreatedAt:          time.Now().UTC(),
	}

	c := m.database.NewContext()
	defer c.Close()
	c.Users().Add(user)
	if _, err := c.SaveChanges(ctx); err != nil {
		if errors.Is(err, db.ErrUniqueViolation) {
			return nil, ErrDuplicateUserName
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info("Created new user", "user_name", user.UserName, "user_id", user.UserID)
	return user, nil
}

// Register creates the account and emails a confirmation link.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	user, err := m.CreateUser(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := m.AddToRole(ctx, user.UserID, RoleUser); err != nil && !errors.Is(err, ErrRoleNotFound) {
		return nil, err
	}

	token, err := m.GenerateEmailConfirmationToken(user)
	if err != nil {
		return nil, err
	}

	link := m.opts.ConfirmEmailURL + "?userId=" + url.QueryEscape(user.UserID) + "&code=" + url.QueryEscape(token)
	body := fmt.Sprintf(`Please confirm your account by <a href="%s">clicking here</a>.`, html.EscapeString(link))
	if err := m.sender.SendEmail(ctx, user.Email, "Confirm your email", body); err != nil {
		return nil, fmt.Errorf("failed to send confirmation email: %w", err)
	}
	return user, nil
}

func (m *Manager) FindByName(ctx context.Context, userName string) (*model.User, error) {
	c := m.database.NewContext()
	defer c.Close()

	users, err := c.Users().Where(ctx, "normalized_user_name", Normalize(userName))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	return &users[0], nil
}

func (m *Manager) FindByID(ctx context.Context, userID string) (*model.User, error) {
	c := m.database.NewContext()
	defer c.Close()

	user, err := c.Users().Find(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// CheckPassword reports whether password matches the stored hash.
func (m *Manager) CheckPassword(user *model.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func (m *Manager) GenerateEmailConfirmationToken(user *model.User) (string, error) {
	token, _, err := m.tokens.Issue(&Principal{
		UserID:        user.UserID,
		UserName:      user.UserName,
		SecurityStamp: user.SecurityStamp,
	}, PurposeConfirmEmail, confirmationLifetime)
	if err != nil {
		return "", fmt.Errorf("failed to generate confirmation token: %w", err)
	}
	return token, nil
}

// ConfirmEmail marks the user's email confirmed when code is a valid
// confirmation token for that user.
func (m *Manager) ConfirmEmail(ctx context.Context, userID, code string) error {
	p, err := m.tokens.Parse(code, PurposeConfirmEmail)
	if err != nil {
		return err
	}
	if p.UserID != userID {
		return fmt.Errorf("%w: token was issued for another user", ErrInvalidToken)
	}

	user, err := m.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.SecurityStamp != p.SecurityStamp {
		return fmt.Errorf("%w: security stamp changed", ErrInvalidToken)
	}
	if user.EmailConfirmed {
		return nil
	}

	user.EmailConfirmed = true
	c := m.database.NewContext()
	defer c.Close()
	c.Users().Update(user)
	if _, err := c.SaveChanges(ctx); err != nil {
		return fmt.Errorf("failed to confirm email: %w", err)
	}

	log.Info("Email confirmed", "user_id", userID)
	return nil
}

// CreateRole adds a role. Role names are unique ignoring case.
func (m *Manager) CreateRole(ctx context.Context, name string) (*model.Role, error) {
	exists, err := m.RoleExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateRoleName
	}

	role := &model.Role{RoleID: uuid.NewString(), Name: name, NormalizedName: Normalize(name)}
	c := m.database.NewContext()
	defer c.Close()
	c.Roles().Add(role)
	if _, err := c.SaveChanges(ctx); err != nil {
		if errors.Is(err, db.ErrUniqueViolation) {
			return nil, ErrDuplicateRoleName
		}
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	log.Info("Created role", "role", name)
	return role, nil
}

func (m *Manager) RoleExists(ctx context.Context, name string) (bool, error) {
	_, err := m.findRole(ctx, name)
	if errors.Is(err, ErrRoleNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *Manager) findRole(ctx context.Context, name string) (*model.Role, error) {
	c := m.database.NewContext()
	defer c.Close()

	roles, err := c.Roles().Where(ctx, "normalized_name", Normalize(name))
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	if len(roles) == 0 {
		return nil, ErrRoleNotFound
	}
	return &roles[0], nil
}

// AddToRole links the user to an existing role. Adding a role the user
// already has is a no-op.
func (m *Manager) AddToRole(ctx context.Context, userID, roleName string) error {
	role, err := m.findRole(ctx, roleName)
	if err != nil {
		return err
	}
	if _, err := m.FindByID(ctx, userID); err != nil {
		return err
	}

	c := m.database.NewContext()
	defer c.Close()
	if _, err := c.UserRoles().Find(ctx, userID, role.RoleID); err == nil {
		return nil
	}
	c.UserRoles().Add(&model.UserRole{UserID: userID, RoleID: role.RoleID})
	if _, err := c.SaveChanges(ctx); err != nil {
		return fmt.Errorf("failed to add user to role: %w", err)
	}
	return nil
}

// RolesFor returns the names of the user's roles, sorted.
func (m *Manager) RolesFor(ctx context.Context, userID string) ([]string, error) {
	c := m.database.NewContext()
	defer c.Close()

	links, err := c.UserRoles().Where(ctx, "user_id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}

	names := make([]string, 0, len(links))
	for _, link := range links {
		role, err := c.Roles().Find(ctx, link.RoleID)
		if err != nil {
			return nil, fmt.Errorf("failed to get role %s: %w", link.RoleID, err)
		}
		names = append(names, role.Name)
	}
	slices.Sort(names)
	return names, nil
}

func (m *Manager) IsInRole(ctx context.Context, userID, roleName string) (bool, error) {
	roles, err := m.RolesFor(ctx, userID)
	if err != nil {
		return false, err
	}
	p := Principal{Roles: roles}
	return p.IsInRole(roleName), nil
}

// PasswordSignIn verifies credentials and returns the principal to store in
// the auth cookie.
func (m *Manager) PasswordSignIn(ctx context.Context, userName, password string) (*Principal, error) {
	log.Debug("Sign in attempt", "user_name", userName)

	user, err := m.FindByName(ctx, userName)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !m.CheckPassword(user, password) {
		return nil, ErrInvalidCredentials
	}
	if m.opts.RequireConfirmedAccount && !user.EmailConfirmed {
		return nil, ErrNotAllowed
	}

	return m.PrincipalFor(ctx, user)
}

// PrincipalFor builds a principal from the stored user and roles.
func (m *Manager) PrincipalFor(ctx context.Context, user *model.User) (*Principal, error) {
	roles, err := m.RolesFor(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	return &Principal{
		UserID:        user.UserID,
		UserName:      user.UserName,
		Roles:         roles,
		SecurityStamp: user.SecurityStamp,
	}, nil
}

// ValidatePrincipal checks that the principal's user still exists with the
// same security stamp.
func (m *Manager) ValidatePrincipal(ctx context.Context, p *Principal) error {
	user, err := m.FindByID(ctx, p.UserID)
	if err != nil {
		return err
	}
	if user.SecurityStamp != p.SecurityStamp {
		return fmt.Errorf("%w: security stamp changed", ErrInvalidToken)
	}
	return nil
}
