package domain

import (
	"time"
)

// Role type to distinguish between user roles
type Role string

const (
	RoleCoach  Role = "coach"
	RoleClient Role = "client"
)

func (r Role) Valid() bool {
	return r == RoleCoach || r == RoleClient
}

// User is either a coach operating the back office or one of their clients.
type User struct {
	ID           string    `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`    // unique
	PasswordHash string    `bson:"passwordHash" json:"-"` // never exposed
	Role         Role      `bson:"role" json:"role"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`

	// Set on clients only.
	CoachID *string `bson:"coachId,omitempty" json:"coachId,omitempty"`
}

func (u *User) IsCoach() bool {
	return u.Role == RoleCoach
}

func (u *User) IsClient() bool {
	return u.Role == RoleClient
}
