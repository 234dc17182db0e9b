package entity

import (
	"time"

	"tell-all/pkg/jwt"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsAdmin   bool      `json:"is_admin"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role is the claim carried in issued tokens.
func (u *User) Role() string {
	if u.IsAdmin {
		return jwt.RoleAdmin
	}
	return jwt.RoleUser
}
