package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"accountportal/internal/domain"
)

func TestGuard(t *testing.T) {
	u := alice()
	tests := []struct {
		name string
		sess domain.Session
		want Decision
	}{
		{"empty", domain.Session{}, Decision{RedirectTo: LoginPath}},
		{"token only", domain.Session{Token: "T1"}, Decision{RedirectTo: LoginPath}},
		{"authenticated without token", domain.Session{User: &u, IsAuthenticated: true}, Decision{RedirectTo: LoginPath}},
		{"user and token but flag unset", domain.Session{User: &u, Token: "T1"}, Decision{RedirectTo: LoginPath}},
		{"authenticated", domain.Session{User: &u, Token: "T1", IsAuthenticated: true}, Decision{Allow: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Guard(tt.sess))
		})
	}
}

func TestGuestOnly(t *testing.T) {
	u := alice()
	assert.Equal(t, Decision{Allow: true}, GuestOnly(domain.Session{}))
	assert.Equal(t, Decision{RedirectTo: DashboardPath},
		GuestOnly(domain.Session{User: &u, Token: "T1", IsAuthenticated: true}))
}

func TestGuard_AdminRoleIsNotRequired(t *testing.T) {
	u := alice()
	u.Role = domain.RoleModerator
	assert.True(t, Guard(domain.Session{User: &u, Token: "T1", IsAuthenticated: true}).Allow)
}
