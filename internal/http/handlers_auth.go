package http

import (
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleLoginRequest struct {
	Credential string `json:"credential"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// googleProfile is the verified identity echoed back after Google sign-in.
type googleProfile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in services.SignupInput
	if err := decodeBody(r, &in, "fullName", "email", "password", "baseCurrency"); err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	if _, err := s.users.Signup(r.Context(), in); err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	writeMessage(w, http.StatusCreated, "User registered successfully")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeBody(r, &in, "email", "password"); err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	u, err := s.users.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		s.logger.WithComponent(applog.ComponentAuth).InfoContext(r.Context(), "Login rejected",
			applog.FieldClientIP, s.securityDetector.ExtractClientIP(r))
		writeServiceError(w, r, err, "")
		return
	}

	if !s.startSession(w, r, u) {
		return
	}
	writeMessage(w, http.StatusOK, "Login successful")
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	var in googleLoginRequest
	if err := decodeBody(r, &in, "credential"); err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	u, id, err := s.users.LoginWithGoogle(r.Context(), in.Credential)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	if !s.startSession(w, r, u) {
		return
	}
	writeJSON(w, http.StatusOK, googleProfile{
		Subject:       id.Subject,
		Email:         id.Email,
		EmailVerified: id.EmailVerified,
		Name:          id.Name,
		Picture:       id.Picture,
	})
}

// startSession issues a token for u and sets the session cookie. It writes
// the error response itself and reports false on failure.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, u core.User) bool {
	token, expires, err := s.tokens.Issue(u.ID)
	if err != nil {
		writeServiceError(w, r, err, "")
		return false
	}
	auth.SetTokenCookie(w, s.cookie, token, expires)

	s.logger.WithComponent(applog.ComponentAuth).InfoContext(r.Context(), "User signed in",
		applog.FieldUserID, u.ID)
	return true
}

func (s *Server) handleSignout(w http.ResponseWriter, r *http.Request) {
	auth.ClearTokenCookie(w, s.cookie)
	writeMessage(w, http.StatusOK, "Logout successful")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Get(r.Context(), currentUser(r))
	if err != nil {
		writeServiceError(w, r, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (s *Server) handleChangePreferences(w http.ResponseWriter, r *http.Request) {
	var in services.PreferencesInput
	if err := decodeBody(r, &in, "currency", "theme"); err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	u, err := s.users.UpdatePreferences(r.Context(), currentUser(r), in)
	if err != nil {
		writeServiceError(w, r, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in services.ProfileInput
	if err := decodeBody(r, &in, "fullName", "email"); err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	u, emailChanged, err := s.users.UpdateProfile(r.Context(), currentUser(r), in)
	if err != nil {
		writeServiceError(w, r, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":                   "Profile updated successfully",
		"emailVerificationRequired": emailChanged,
		"user":                      u,
	})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var in changePasswordRequest
	if err := decodeBody(r, &in, "currentPassword", "newPassword"); err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	if err := s.users.ChangePassword(r.Context(), currentUser(r), in.CurrentPassword, in.NewPassword); err != nil {
		writeServiceError(w, r, err, "User not found")
		return
	}
	writeMessage(w, http.StatusOK, "Password changed successfully")
}
