package app

import "accountportal/internal/domain"

const (
	// LoginPath is where unauthenticated viewers are sent.
	LoginPath = "/auth/login"
	// DashboardPath is the landing screen after login.
	DashboardPath = "/dashboard"
)

// Decision is the outcome of a guard check.
type Decision struct {
	Allow      bool
	RedirectTo string
}

// Guard admits viewers with an authenticated session and sends everyone else
// to the login screen. Roles are not checked here.
func Guard(s domain.Session) Decision {
	if s.IsAuthenticated && s.Token != "" && s.User != nil {
		return Decision{Allow: true}
	}
	return Decision{RedirectTo: LoginPath}
}

// GuestOnly keeps authenticated viewers away from the login and register
// screens.
func GuestOnly(s domain.Session) Decision {
	if Guard(s).Allow {
		return Decision{RedirectTo: DashboardPath}
	}
	return Decision{Allow: true}
}
