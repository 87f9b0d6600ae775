// Package domain contains the core entities and the ports to the outside world.
package domain

import (
	"context"
	"time"
)

// Role is the access role the backend assigns to a user.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// User is the profile record of the signed-in user as reported by the backend.
type User struct {
	ID         int64      `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	Role       Role       `json:"role"`
	IsVerified bool       `json:"is_verified"`
	IsActive   bool       `json:"is_active"`
	AvatarURL  string     `json:"avatar_url,omitempty"`
	FirstName  string     `json:"first_name,omitempty"`
	LastName   string     `json:"last_name,omitempty"`
	Bio        string     `json:"bio,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	Location   string     `json:"location,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// IsAdmin reports whether the admin section should be shown to the user.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DisplayName returns the full name if known, the username otherwise.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// UserPatch is a partial update of a User. Nil fields are left untouched.
type UserPatch struct {
	Username   *string
	Email      *string
	Role       *Role
	IsVerified *bool
	IsActive   *bool
	AvatarURL  *string
	FirstName  *string
	LastName   *string
	Bio        *string
	Phone      *string
	Location   *string
	UpdatedAt  *time.Time
}

// Apply returns a copy of u with the non-nil patch fields merged in.
func (p UserPatch) Apply(u User) User {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsVerified != nil {
		u.IsVerified = *p.IsVerified
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Location != nil {
		u.Location = *p.Location
	}
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		u.UpdatedAt = &t
	}
	return u
}

// PatchFromUser builds a patch carrying every mutable field of u.
func PatchFromUser(u User) UserPatch {
	return UserPatch{
		Username:   &u.Username,
		Email:      &u.Email,
		Role:       &u.Role,
		IsVerified: &u.IsVerified,
		IsActive:   &u.IsActive,
		AvatarURL:  &u.AvatarURL,
		FirstName:  &u.FirstName,
		LastName:   &u.LastName,
		Bio:        &u.Bio,
		Phone:      &u.Phone,
		Location:   &u.Location,
		UpdatedAt:  u.UpdatedAt,
	}
}

// UserListItem is a row of the admin user listing.
type UserListItem struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	IsActive   bool      `json:"is_active"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// Session is the client-side authentication state of one browser.
// IsAuthenticated implies a non-empty Token; User and Token travel together.
type Session struct {
	User            *User  `json:"user"`
	Token           string `json:"token"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// Empty reports whether the session holds no state at all.
func (s Session) Empty() bool {
	return s.User == nil && s.Token == "" && !s.IsAuthenticated
}

// Consistent reports whether the session satisfies its invariant.
func (s Session) Consistent() bool {
	if s.IsAuthenticated {
		return s.Token != "" && s.User != nil
	}
	return true
}

// SessionRepository is the persistence port for session records.
// Load returns (nil, nil) when no record exists for key.
type SessionRepository interface {
	Load(ctx context.Context, key string) (*Session, error)
	Save(ctx context.Context, key string, s Session) error
	Delete(ctx context.Context, key string) error
}

// SessionSweeper is implemented by repositories that need explicit removal of
// expired records.
type SessionSweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionPinger is implemented by repositories backed by a remote server.
type SessionPinger interface {
	Ping(ctx context.Context) error
}
