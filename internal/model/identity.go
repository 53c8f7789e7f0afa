package model

import "time"

// User is an account known to the identity store.
type User struct {
	UserID             string    `json:"user_id" gorm:"primaryKey"`
	UserName           string    `json:"user_name"`
	NormalizedUserName string    `json:"-"`
	Email              string    `json:"email"`
	EmailConfirmed     bool      `json:"email_confirmed"`
	PasswordHash       string    `json:"-"`
	SecurityStamp      string    `json:"-"`
	CreatedAt          time.Time `json:"created_at"`
}

type Role struct {
	RoleID         string `json:"role_id" gorm:"primaryKey"`
	Name           string `json:"name"`
	NormalizedName string `json:"-"`
}

// UserRole links a user to a role. The pair is the key.
type UserRole struct {
	UserID string `json:"user_id" gorm:"primaryKey"`
	RoleID string `json:"role_id" gorm:"primaryKey"`
}

func (User) TableName() string     { return "users" }
func (Role) TableName() string     { return "roles" }
func (UserRole) TableName() string { return "user_roles" }
