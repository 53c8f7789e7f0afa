package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

// SeedRoles creates any of the given roles that do not exist yet.
func (m *Manager) SeedRoles(ctx context.Context, roles ...string) error {
	for _, role := range roles {
		exists, err := m.RoleExists(ctx, role)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := m.CreateRole(ctx, role); err != nil && !errors.Is(err, ErrDuplicateRoleName) {
			return fmt.Errorf("failed to seed role %s: %w", role, err)
		}
	}
	return nil
}

// SeedAdminUser creates a confirmed admin account in the Admin role unless a
// user with that name already exists. An empty password skips seeding.
func (m *Manager) SeedAdminUser(ctx context.Context, userName, email, password string) error {
	if password == "" {
		log.Warn("Admin password not configured, skipping admin seeding")
		return nil
	}

	user, err := m.FindByName(ctx, userName)
	switch {
	case errors.Is(err, ErrUserNotFound):
		user, err = m.CreateUser(ctx, RegisterRequest{UserName: userName, Email: email, Password: password})
		if err != nil {
			return fmt.Errorf("failed to seed admin user: %w", err)
		}
		token, err := m.GenerateEmailConfirmationToken(user)
		if err != nil {
			return err
		}
		if err := m.ConfirmEmail(ctx, user.UserID, token); err != nil {
			return fmt.Errorf("failed to confirm admin user: %w", err)
		}
	case err != nil:
		return err
	}

	return m.AddToRole(ctx, user.UserID, RoleAdmin)
}

// Seed creates the default roles and the admin account.
func (m *Manager) Seed(ctx context.Context, adminUserName, adminEmail, adminPassword string) error {
	if err := m.SeedRoles(ctx, RoleAdmin, RoleUser); err != nil {
		return err
	}
	if err := m.SeedAdminUser(ctx, adminUserName, adminEmail, adminPassword); err != nil {
		return err
	}
	log.Info("Identity data seeded")
	return nil
}
