package adapthttp

import (
	"errors"
	"net/http"
	"net/url"

	"accountportal/internal/app"
	"accountportal/internal/logger"
)

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login", http.StatusOK, pageData{
		Title: "Log in",
		Form:  map[string]string{"username": r.URL.Query().Get("username")},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	h := handleFrom(r.Context())
	form := app.LoginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	data := pageData{Title: "Log in", Form: formValues(r, "username")}

	user, err := s.auth.Login(r.Context(), h, form)
	if errors.Is(err, app.ErrProfileFetch) {
		data.Notice = "Failed to get user information. Please try again."
		s.render(w, r, "login", http.StatusBadGateway, data)
		return
	}
	if err != nil {
		s.fail(w, r, "login", data, err, "Login failed. Please check your credentials.")
		return
	}
	s.log.Info("login succeeded", logger.ClientID(h.ClientID()), logger.UserID(user.ID))
	s.redirect(w, r, app.DashboardPath, flashSuccess, "Welcome back, "+user.DisplayName()+"!")
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "register", http.StatusOK, pageData{Title: "Create account"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	form := app.RegisterForm{
		Username:        r.PostFormValue("username"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
	data := pageData{Title: "Create account", Form: formValues(r, "username", "email")}

	if err := s.auth.Register(r.Context(), handleFrom(r.Context()), form); err != nil {
		s.fail(w, r, "register", data, err, "Registration failed. Please try again.")
		return
	}
	s.redirect(w, r, verifyEmailURL(form.Email), flashSuccess,
		"Registration successful! Please check your email for a verification code.")
}

func (s *Server) handleVerifyEmailForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "verify_email", http.StatusOK, pageData{
		Title:   "Verify your email",
		Session: s.viewer(r),
		Form:    map[string]string{"email": r.URL.Query().Get("email")},
	})
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	form := app.VerifyEmailForm{
		Email: r.PostFormValue("email"),
		Code:  r.PostFormValue("code"),
	}
	data := pageData{Title: "Verify your email", Form: formValues(r, "email", "code")}

	if err := s.auth.VerifyEmail(r.Context(), handleFrom(r.Context()), form); err != nil {
		s.fail(w, r, "verify_email", data, err, "Verification failed. Please check the code and try again.")
		return
	}
	s.redirect(w, r, app.LoginPath, flashSuccess, "Email verified successfully! You can now log in.")
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	form := app.EmailForm{Email: r.PostFormValue("email")}
	data := pageData{Title: "Verify your email", Form: formValues(r, "email")}

	if err := s.auth.ResendVerification(r.Context(), handleFrom(r.Context()), form); err != nil {
		s.fail(w, r, "verify_email", data, err, "Could not resend the verification code.")
		return
	}
	s.redirect(w, r, verifyEmailURL(form.Email), flashInfo, "A new verification code has been sent to your email.")
}

func (s *Server) handleForgotPasswordForm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.render(w, r, "forgot_password", http.StatusOK, pageData{
		Title:   "Forgot password",
		Session: s.viewer(r),
		Form:    map[string]string{"email": q.Get("email")},
		Data:    map[string]bool{"Sent": q.Get("sent") == "1" && q.Get("email") != ""},
	})
}

// handleForgotPassword also serves as the resend action of the "check your
// email" state.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	form := app.EmailForm{Email: r.PostFormValue("email")}
	data := pageData{Title: "Forgot password", Form: formValues(r, "email"), Data: map[string]bool{"Sent": false}}

	if err := s.auth.ForgotPassword(r.Context(), handleFrom(r.Context()), form); err != nil {
		s.fail(w, r, "forgot_password", data, err, "Could not send the reset code. Please try again.")
		return
	}
	q := url.Values{"email": {form.Email}, "sent": {"1"}}
	s.redirect(w, r, "/auth/forgot-password?"+q.Encode(), flashSuccess, "Check your email for a password reset code.")
}

func (s *Server) handleResetPasswordForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "reset_password", http.StatusOK, pageData{
		Title:   "Reset password",
		Session: s.viewer(r),
		Form:    map[string]string{"email": r.URL.Query().Get("email")},
	})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	form := app.ResetPasswordForm{
		Email:           r.PostFormValue("email"),
		Code:            r.PostFormValue("code"),
		NewPassword:     r.PostFormValue("new_password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
	data := pageData{Title: "Reset password", Form: formValues(r, "email", "code")}

	if err := s.auth.ResetPassword(r.Context(), handleFrom(r.Context()), form); err != nil {
		s.fail(w, r, "reset_password", data, err, "Password reset failed. Please try again.")
		return
	}
	s.redirect(w, r, app.LoginPath, flashSuccess, "Password reset successfully! You can now log in with your new password.")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	h := handleFrom(r.Context())
	if err := s.auth.Logout(r.Context(), h); err != nil {
		s.log.Error("logout failed", logger.ClientID(h.ClientID()), logger.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.redirect(w, r, app.LoginPath, flashInfo, "You have been logged out.")
}

func verifyEmailURL(email string) string {
	return "/auth/verify-email?" + url.Values{"email": {email}}.Encode()
}
