package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"accountportal/internal/domain"
	"accountportal/internal/logger"
)

// MaxAvatarSize is the largest avatar image accepted for upload.
const MaxAvatarSize = 5 << 20

var avatarTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// AccountService runs the dashboard flows. Every call carries the session
// token; a token rejected by the backend logs the session out.
type AccountService struct {
	backend domain.Backend
	log     *slog.Logger
}

// NewAccountService creates an AccountService backed by the given backend.
func NewAccountService(backend domain.Backend, log *slog.Logger) *AccountService {
	return &AccountService{
		backend: backend,
		log:     log.With(logger.Component("account")),
	}
}

// RefreshProfile reloads the profile from the backend into the session.
func (s *AccountService) RefreshProfile(ctx context.Context, h *SessionHandle) (domain.Session, error) {
	var user *domain.User
	err := s.authorized(ctx, h, func(token string) error {
		var err error
		user, err = s.backend.CurrentUser(ctx, token)
		return err
	})
	if err != nil {
		return domain.Session{}, err
	}
	if user == nil {
		return domain.Session{}, ErrProfileFetch
	}
	return h.UpdateUser(ctx, domain.PatchFromUser(*user))
}

// UpdateProfile saves the editable profile fields and merges the result into
// the session user.
func (s *AccountService) UpdateProfile(ctx context.Context, h *SessionHandle, f ProfileForm) (domain.Session, error) {
	if err := f.Validate(); err != nil {
		return domain.Session{}, err
	}
	release, err := h.Acquire("update-profile")
	if err != nil {
		return domain.Session{}, err
	}
	defer release()

	var user *domain.User
	err = s.authorized(ctx, h, func(token string) error {
		var err error
		user, err = s.backend.UpdateProfile(ctx, token, f.Update())
		return err
	})
	if err != nil {
		return domain.Session{}, err
	}
	if user == nil {
		u := f.Update()
		return h.UpdateUser(ctx, domain.UserPatch{
			FirstName: &u.FirstName,
			LastName:  &u.LastName,
			Bio:       &u.Bio,
			Phone:     &u.Phone,
			Location:  &u.Location,
		})
	}
	return h.UpdateUser(ctx, domain.PatchFromUser(*user))
}

// ChangePassword replaces the password of the signed-in user.
func (s *AccountService) ChangePassword(ctx context.Context, h *SessionHandle, f ChangePasswordForm) error {
	if err := f.Validate(); err != nil {
		return err
	}
	release, err := h.Acquire("change-password")
	if err != nil {
		return err
	}
	defer release()

	return s.authorized(ctx, h, func(token string) error {
		return s.backend.ChangePassword(ctx, token, f.CurrentPassword, f.NewPassword)
	})
}

// UploadAvatar checks the image size and sniffed type, uploads it and reloads
// the profile to pick up the new avatar URL.
func (s *AccountService) UploadAvatar(ctx context.Context, h *SessionHandle, filename string, data []byte) (domain.Session, error) {
	avatar, err := checkAvatar(filename, data)
	if err != nil {
		return domain.Session{}, err
	}
	release, err := h.Acquire("upload-avatar")
	if err != nil {
		return domain.Session{}, err
	}
	defer release()

	err = s.authorized(ctx, h, func(token string) error {
		return s.backend.UploadAvatar(ctx, token, avatar)
	})
	if err != nil {
		return domain.Session{}, err
	}
	return s.RefreshProfile(ctx, h)
}

// DeleteAvatar removes the avatar and clears it from the session user.
func (s *AccountService) DeleteAvatar(ctx context.Context, h *SessionHandle) (domain.Session, error) {
	release, err := h.Acquire("delete-avatar")
	if err != nil {
		return domain.Session{}, err
	}
	defer release()

	err = s.authorized(ctx, h, func(token string) error {
		return s.backend.DeleteAvatar(ctx, token)
	})
	if err != nil {
		return domain.Session{}, err
	}
	empty := ""
	return h.UpdateUser(ctx, domain.UserPatch{AvatarURL: &empty})
}

// ListUsers returns all accounts. Only admins get a non-error answer; the
// backend decides.
func (s *AccountService) ListUsers(ctx context.Context, h *SessionHandle) ([]domain.UserListItem, error) {
	var items []domain.UserListItem
	err := s.authorized(ctx, h, func(token string) error {
		var err error
		items, err = s.backend.ListUsers(ctx, token)
		return err
	})
	return items, err
}

// authorized runs call with the session token. A backend authorization
// failure forces a logout before the error is returned, unless the session
// has moved on to another token in the meantime.
func (s *AccountService) authorized(ctx context.Context, h *SessionHandle, call func(token string) error) error {
	sess, err := h.Snapshot(ctx)
	if err != nil {
		return err
	}
	if !sess.IsAuthenticated {
		return ErrNotAuthenticated
	}

	err = call(sess.Token)
	if errors.Is(err, domain.ErrUnauthorized) {
		cleared, lerr := h.LogoutIfToken(ctx, sess.Token)
		switch {
		case lerr != nil:
			s.log.Error("forced logout failed", logger.ClientID(h.ClientID()), logger.Error(lerr))
		case cleared:
			s.log.Info("token rejected by backend, logged out", logger.ClientID(h.ClientID()))
		default:
			s.log.Info("rejected token already replaced, session kept", logger.ClientID(h.ClientID()))
		}
	}
	return err
}

func checkAvatar(filename string, data []byte) (domain.Avatar, error) {
	errs := domain.ValidationErrors{}
	if len(data) == 0 {
		errs.Add("file", "Please choose an image")
		return domain.Avatar{}, errs
	}
	if len(data) > MaxAvatarSize {
		errs.Add("file", "Image must be at most 5 MB")
		return domain.Avatar{}, errs
	}
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), avatarTypes...) {
		errs.Add("file", fmt.Sprintf("Unsupported image type %s", mt.String()))
		return domain.Avatar{}, errs
	}
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) {
		name = "avatar" + mt.Extension()
	}
	return domain.Avatar{Filename: name, ContentType: mt.String(), Data: data}, nil
}
