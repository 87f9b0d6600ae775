package domain

import "context"

// AccessToken is the credential issued by the backend on login.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Registration is the payload of a new account request.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordReset is the payload that completes a forgotten-password flow.
type PasswordReset struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Phone     string `json:"phone"`
	Location  string `json:"location"`
}

// Avatar is an image file to upload as the user's avatar.
type Avatar struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Backend is the port to the account backend. Calls that take a token send it
// as a bearer credential; an empty token sends none.
type Backend interface {
	Login(ctx context.Context, username, password string) (AccessToken, error)
	CurrentUser(ctx context.Context, token string) (*User, error)
	Register(ctx context.Context, r Registration) error
	VerifyEmail(ctx context.Context, email, code string) error
	ResendVerification(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, r PasswordReset) error

	UpdateProfile(ctx context.Context, token string, p ProfileUpdate) (*User, error)
	ChangePassword(ctx context.Context, token, current, next string) error
	UploadAvatar(ctx context.Context, token string, a Avatar) error
	DeleteAvatar(ctx context.Context, token string) error
	ListUsers(ctx context.Context, token string) ([]UserListItem, error)
}
