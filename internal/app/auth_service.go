package app

import (
	"context"
	"fmt"
	"log/slog"

	"accountportal/internal/domain"
	"accountportal/internal/logger"
)

// AuthService runs the login, registration, verification and password reset
// flows against the backend.
type AuthService struct {
	backend domain.Backend
	log     *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(backend domain.Backend, log *slog.Logger) *AuthService {
	return &AuthService{
		backend: backend,
		log:     log.With(logger.Component("auth")),
	}
}

// Login exchanges credentials for a token, fetches the profile with it and
// authenticates the session. The token is rolled back whenever the session
// cannot be authenticated; a failed profile fetch returns ErrProfileFetch.
func (s *AuthService) Login(ctx context.Context, h *SessionHandle, f LoginForm) (*domain.User, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	release, err := h.Acquire("login")
	if err != nil {
		return nil, err
	}
	defer release()

	tok, err := s.backend.Login(ctx, f.Username, f.Password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := h.SetToken(ctx, tok.AccessToken); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	user, err := s.backend.CurrentUser(ctx, tok.AccessToken)
	if err != nil || user == nil {
		s.rollback(ctx, h, tok.AccessToken)
		s.log.Warn("profile fetch after login failed", logger.ClientID(h.ClientID()), logger.Error(err))
		if err == nil {
			return nil, ErrProfileFetch
		}
		return nil, fmt.Errorf("%w: %w", ErrProfileFetch, err)
	}

	if err := h.Login(ctx, *user, tok.AccessToken); err != nil {
		s.rollback(ctx, h, tok.AccessToken)
		return nil, fmt.Errorf("login: %w", err)
	}
	return user, nil
}

func (s *AuthService) rollback(ctx context.Context, h *SessionHandle, token string) {
	if err := h.RollbackToken(ctx, token); err != nil {
		s.log.Error("token rollback failed", logger.ClientID(h.ClientID()), logger.Error(err))
	}
}

// Logout clears the session.
func (s *AuthService) Logout(ctx context.Context, h *SessionHandle) error {
	return h.Logout(ctx)
}

// Register creates an account. On success the caller continues with email
// verification for f.Email.
func (s *AuthService) Register(ctx context.Context, h *SessionHandle, f RegisterForm) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return s.submit(h, "register", func() error {
		return s.backend.Register(ctx, domain.Registration{
			Username: f.Username,
			Email:    f.Email,
			Password: f.Password,
		})
	})
}

// VerifyEmail submits the emailed verification code.
func (s *AuthService) VerifyEmail(ctx context.Context, h *SessionHandle, f VerifyEmailForm) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return s.submit(h, "verify-email", func() error {
		return s.backend.VerifyEmail(ctx, f.Email, f.Code)
	})
}

// ResendVerification asks the backend to send a new verification code.
// Rate limiting is left to the backend.
func (s *AuthService) ResendVerification(ctx context.Context, h *SessionHandle, f EmailForm) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return s.submit(h, "resend-verification", func() error {
		return s.backend.ResendVerification(ctx, f.Email)
	})
}

// ForgotPassword asks the backend to email a reset code. It is also the
// resend action of the "check your email" screen.
func (s *AuthService) ForgotPassword(ctx context.Context, h *SessionHandle, f EmailForm) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return s.submit(h, "forgot-password", func() error {
		return s.backend.ForgotPassword(ctx, f.Email)
	})
}

// ResetPassword completes the reset with the emailed code.
func (s *AuthService) ResetPassword(ctx context.Context, h *SessionHandle, f ResetPasswordForm) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return s.submit(h, "reset-password", func() error {
		return s.backend.ResetPassword(ctx, domain.PasswordReset{
			Email:       f.Email,
			Code:        f.Code,
			NewPassword: f.NewPassword,
		})
	})
}

func (s *AuthService) submit(h *SessionHandle, action string, call func() error) error {
	release, err := h.Acquire(action)
	if err != nil {
		return err
	}
	defer release()

	if err := call(); err != nil {
		s.log.Info("backend rejected submission", logger.Action(action), logger.ClientID(h.ClientID()), logger.Error(err))
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}
