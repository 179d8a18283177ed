package model

import "time"

type UserProfile struct {
	ID        int       `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	FullName  string    `json:"full_name" db:"full_name"`
	IsAdmin   bool      `json:"is_admin" db:"is_admin"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Principal is the caller identity asserted by the identity provider.
// It is passed explicitly to every engine call.
type Principal struct {
	UserID   int
	Email    string
	FullName string
	IsAdmin  bool
}

func (p Principal) Profile() *UserProfile {
	return &UserProfile{
		ID:       p.UserID,
		Email:    p.Email,
		FullName: p.FullName,
		IsAdmin:  p.IsAdmin,
	}
}
