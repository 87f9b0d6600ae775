package app

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"accountportal/internal/domain"
)

const (
	usernameMin  = 3
	usernameMax  = 50
	passwordMin  = 8
	passwordMax  = 100
	codeLength   = 6
	nameMax      = 50
	bioMax       = 500
	phoneMax     = 20
	locationMax  = 100
	msgEmail     = "Please enter a valid email address"
	msgMismatch  = "Passwords don't match"
	msgCode      = "Verification code must be 6 digits"
	msgPassword  = "Password must be at least 8 characters"
	msgPassLong  = "Password must be less than 100 characters"
	msgUserShort = "Username must be at least 3 characters"
	msgUserLong  = "Username must be less than 50 characters"
)

// LoginForm is the submitted login screen.
type LoginForm struct {
	Username string
	Password string
}

// Validate checks field shapes before any network call.
func (f *LoginForm) Validate() error {
	f.Username = strings.TrimSpace(f.Username)
	errs := domain.ValidationErrors{}
	if runes(f.Username) < usernameMin {
		errs.Add("username", msgUserShort)
	}
	if runes(f.Password) < passwordMin {
		errs.Add("password", msgPassword)
	}
	return errs.Err()
}

// RegisterForm is the submitted registration screen.
type RegisterForm struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Validate checks field shapes before any network call.
func (f *RegisterForm) Validate() error {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	errs := domain.ValidationErrors{}
	switch n := runes(f.Username); {
	case n < usernameMin:
		errs.Add("username", msgUserShort)
	case n > usernameMax:
		errs.Add("username", msgUserLong)
	}
	if !validEmail(f.Email) {
		errs.Add("email", msgEmail)
	}
	checkNewPassword(errs, "password", f.Password)
	if f.ConfirmPassword != f.Password {
		errs.Add("confirm_password", msgMismatch)
	}
	return errs.Err()
}

// VerifyEmailForm is the submitted verification code screen.
type VerifyEmailForm struct {
	Email string
	Code  string
}

// Validate checks field shapes before any network call.
func (f *VerifyEmailForm) Validate() error {
	f.Email = strings.TrimSpace(f.Email)
	f.Code = strings.TrimSpace(f.Code)
	errs := domain.ValidationErrors{}
	if !validEmail(f.Email) {
		errs.Add("email", msgEmail)
	}
	if !validCode(f.Code) {
		errs.Add("code", msgCode)
	}
	return errs.Err()
}

// EmailForm carries a single address: resend verification, forgot password.
type EmailForm struct {
	Email string
}

// Validate checks field shapes before any network call.
func (f *EmailForm) Validate() error {
	f.Email = strings.TrimSpace(f.Email)
	errs := domain.ValidationErrors{}
	if !validEmail(f.Email) {
		errs.Add("email", msgEmail)
	}
	return errs.Err()
}

// ResetPasswordForm completes a forgotten-password flow.
type ResetPasswordForm struct {
	Email           string
	Code            string
	NewPassword     string
	ConfirmPassword string
}

// Validate checks field shapes before any network call.
func (f *ResetPasswordForm) Validate() error {
	f.Email = strings.TrimSpace(f.Email)
	f.Code = strings.TrimSpace(f.Code)
	errs := domain.ValidationErrors{}
	if !validEmail(f.Email) {
		errs.Add("email", msgEmail)
	}
	if !validCode(f.Code) {
		errs.Add("code", msgCode)
	}
	checkNewPassword(errs, "new_password", f.NewPassword)
	if f.ConfirmPassword != f.NewPassword {
		errs.Add("confirm_password", msgMismatch)
	}
	return errs.Err()
}

// ProfileForm is the editable part of the profile.
type ProfileForm struct {
	FirstName string
	LastName  string
	Bio       string
	Phone     string
	Location  string
}

// Validate checks field lengths before any network call.
func (f *ProfileForm) Validate() error {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Bio = strings.TrimSpace(f.Bio)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Location = strings.TrimSpace(f.Location)

	errs := domain.ValidationErrors{}
	maxLen(errs, "first_name", f.FirstName, nameMax, "First name must be at most 50 characters")
	maxLen(errs, "last_name", f.LastName, nameMax, "Last name must be at most 50 characters")
	maxLen(errs, "bio", f.Bio, bioMax, "Bio must be at most 500 characters")
	maxLen(errs, "phone", f.Phone, phoneMax, "Phone must be at most 20 characters")
	maxLen(errs, "location", f.Location, locationMax, "Location must be at most 100 characters")
	return errs.Err()
}

// Update converts the form into the backend payload.
func (f ProfileForm) Update() domain.ProfileUpdate {
	return domain.ProfileUpdate{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Bio:       f.Bio,
		Phone:     f.Phone,
		Location:  f.Location,
	}
}

// ChangePasswordForm is the security screen.
type ChangePasswordForm struct {
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// Validate checks field shapes before any network call.
func (f *ChangePasswordForm) Validate() error {
	errs := domain.ValidationErrors{}
	if f.CurrentPassword == "" {
		errs.Add("current_password", "Current password is required")
	}
	checkNewPassword(errs, "new_password", f.NewPassword)
	if f.ConfirmPassword != f.NewPassword {
		errs.Add("confirm_password", msgMismatch)
	}
	return errs.Err()
}

func checkNewPassword(errs domain.ValidationErrors, field, pw string) {
	switch n := runes(pw); {
	case n < passwordMin:
		errs.Add(field, msgPassword)
	case n > passwordMax:
		errs.Add(field, msgPassLong)
	}
}

func maxLen(errs domain.ValidationErrors, field, v string, limit int, msg string) {
	if runes(v) > limit {
		errs.Add(field, msg)
	}
}

func runes(s string) int {
	return utf8.RuneCountInString(s)
}

// validEmail accepts a bare addr-spec whose domain has at least one dot.
func validEmail(s string) bool {
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	host := s[at+1:]
	dot := strings.LastIndexByte(host, '.')
	return dot > 0 && dot < len(host)-1
}

func validCode(s string) bool {
	if len(s) != codeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
