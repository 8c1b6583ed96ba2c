package models

import "time"

// User roles. Citizens submit reports; admins review them and work
// tickets.
const (
	RolePublic = "public"
	RoleAdmin  = "admin"
)

// User is an account, either a citizen or an operator.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	RealName     string    `json:"real_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
