package adapthttp

import (
	"errors"
	"io"
	"net/http"

	"accountportal/internal/app"
	"accountportal/internal/domain"
	"accountportal/internal/logger"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "dashboard", http.StatusOK, pageData{Title: "Dashboard", Session: sessionFrom(r.Context())})
}

func profileValues(u *domain.User) map[string]string {
	if u == nil {
		return map[string]string{}
	}
	return map[string]string{
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"bio":        u.Bio,
		"phone":      u.Phone,
		"location":   u.Location,
	}
}

// handleProfileForm reloads the profile so the form shows the backend's
// current values; a failed reload falls back to the stored profile.
func (s *Server) handleProfileForm(w http.ResponseWriter, r *http.Request) {
	h := handleFrom(r.Context())
	sess := sessionFrom(r.Context())
	data := pageData{Title: "Profile"}

	fresh, err := s.account.RefreshProfile(r.Context(), h)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		s.redirect(w, r, app.LoginPath, flashError, msgSessionExpired)
		return
	case err != nil:
		s.log.Warn("profile refresh failed", logger.ClientID(h.ClientID()), logger.Error(err))
		data.Notice = domain.UserMessage(err, "Could not load the latest profile.")
	default:
		sess = fresh
	}
	data.Session = sess
	data.Form = profileValues(sess.User)
	s.render(w, r, "profile", http.StatusOK, data)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	form := app.ProfileForm{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Bio:       r.PostFormValue("bio"),
		Phone:     r.PostFormValue("phone"),
		Location:  r.PostFormValue("location"),
	}
	data := pageData{
		Title:   "Profile",
		Session: sessionFrom(r.Context()),
		Form:    formValues(r, "first_name", "last_name", "bio", "phone", "location"),
	}

	if _, err := s.account.UpdateProfile(r.Context(), handleFrom(r.Context()), form); err != nil {
		s.failAccount(w, r, "profile", data, err, "Failed to update profile.")
		return
	}
	s.redirect(w, r, "/dashboard/profile", flashSuccess, "Profile updated successfully!")
}

func (s *Server) handleAvatarForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "avatar", http.StatusOK, pageData{Title: "Avatar", Session: sessionFrom(r.Context())})
}

func (s *Server) handleAvatarUpload(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Avatar", Session: sessionFrom(r.Context())}

	r.Body = http.MaxBytesReader(w, r.Body, app.MaxAvatarSize+1<<20)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		msg := "Please choose an image"
		if errors.As(err, &tooLarge) {
			msg = "Image must be at most 5 MB"
		}
		s.fail(w, r, "avatar", data, domain.ValidationErrors{"file": msg}, "")
		return
	}
	defer file.Close() //nolint:errcheck

	content, err := io.ReadAll(io.LimitReader(file, app.MaxAvatarSize+1))
	if err != nil {
		s.fail(w, r, "avatar", data, err, "Could not read the uploaded file.")
		return
	}
	if _, err := s.account.UploadAvatar(r.Context(), handleFrom(r.Context()), hdr.Filename, content); err != nil {
		s.failAccount(w, r, "avatar", data, err, "Failed to upload avatar.")
		return
	}
	s.redirect(w, r, "/dashboard/avatar", flashSuccess, "Avatar uploaded successfully!")
}

func (s *Server) handleAvatarDelete(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Avatar", Session: sessionFrom(r.Context())}

	if _, err := s.account.DeleteAvatar(r.Context(), handleFrom(r.Context())); err != nil {
		s.failAccount(w, r, "avatar", data, err, "Failed to delete avatar.")
		return
	}
	if r.Method == http.MethodDelete {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.redirect(w, r, "/dashboard/avatar", flashSuccess, "Avatar deleted.")
}

func (s *Server) handleSecurityForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "security", http.StatusOK, pageData{Title: "Security", Session: sessionFrom(r.Context())})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	form := app.ChangePasswordForm{
		CurrentPassword: r.PostFormValue("current_password"),
		NewPassword:     r.PostFormValue("new_password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
	data := pageData{Title: "Security", Session: sessionFrom(r.Context())}

	if err := s.account.ChangePassword(r.Context(), handleFrom(r.Context()), form); err != nil {
		s.failAccount(w, r, "security", data, err, "Failed to change password.")
		return
	}
	s.redirect(w, r, "/dashboard/security", flashSuccess, "Password changed successfully!")
}

// handleAdminUsers lists accounts. The link is only shown to admins; the
// backend rejects everyone else.
func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Users", Session: sessionFrom(r.Context())}

	users, err := s.account.ListUsers(r.Context(), handleFrom(r.Context()))
	if err != nil {
		s.failAccount(w, r, "admin_users", data, err, "Failed to load users.")
		return
	}
	data.Data = users
	s.render(w, r, "admin_users", http.StatusOK, data)
}
