package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode"

	"fintrack/internal/auth"
	"fintrack/internal/core"
)

const minPasswordLen = 8

type SignupInput struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	BaseCurrency string `json:"baseCurrency"`
}

type PreferencesInput struct {
	Currency string `json:"currency"`
	Theme    string `json:"theme"`
}

type ProfileInput struct {
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
}

type UserService struct {
	store  UserStore
	google auth.GoogleVerifier
}

// NewUserService wires the user store. google may be nil when Google sign-in
// is not configured.
func NewUserService(store UserStore, google auth.GoogleVerifier) *UserService {
	return &UserService{store: store, google: google}
}

func (s *UserService) Signup(ctx context.Context, in SignupInput) (core.User, error) {
	if strings.TrimSpace(in.FullName) == "" {
		return core.User{}, core.Invalid("Full name is required")
	}
	if !validEmail(in.Email) {
		return core.User{}, core.Invalid("A valid email is required")
	}
	if !strongPassword(in.Password) {
		return core.User{}, weakPassword()
	}
	currency, err := core.ParseCurrency(in.BaseCurrency)
	if err != nil {
		return core.User{}, err
	}

	u := core.User{
		FullName:     strings.TrimSpace(in.FullName),
		Email:        in.Email,
		BaseCurrency: currency,
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}

	if u.PasswordHash, err = auth.HashPassword(in.Password); err != nil {
		return core.User{}, err
	}

	created, err := s.store.CreateUser(ctx, u)
	if errors.Is(err, core.ErrAlreadyExists) {
		return core.User{}, core.Invalid("Email is already registered")
	}
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "user_id", created.ID)
	return created, nil
}

// Login checks email and password. Unknown emails and wrong passwords yield
// the same error.
func (s *UserService) Login(ctx context.Context, email, password string) (core.User, error) {
	if !validEmail(email) {
		return core.User{}, core.Invalid("A valid email is required")
	}
	if password == "" {
		return core.User{}, core.Invalid("Password is required")
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, errBadCredentials()
	}
	if err != nil {
		return core.User{}, fmt.Errorf("load user: %w", err)
	}
	// accounts created through Google have no password
	if u.PasswordHash == "" {
		return core.User{}, errBadCredentials()
	}

	ok, err := auth.ComparePassword(u.PasswordHash, password)
	if err != nil {
		return core.User{}, err
	}
	if !ok {
		return core.User{}, errBadCredentials()
	}
	return u, nil
}

// LoginWithGoogle verifies a Google ID token and returns the matching
// existing account.
func (s *UserService) LoginWithGoogle(ctx context.Context, credential string) (core.User, auth.GoogleIdentity, error) {
	if strings.TrimSpace(credential) == "" {
		return core.User{}, auth.GoogleIdentity{}, core.Invalid("Google credential is required")
	}
	if s.google == nil {
		return core.User{}, auth.GoogleIdentity{}, core.Invalid(auth.ErrGoogleNotConfigured.Error())
	}

	id, err := s.google.Verify(ctx, credential)
	if errors.Is(err, auth.ErrGoogleNotConfigured) {
		return core.User{}, auth.GoogleIdentity{}, core.Invalid(err.Error())
	}
	if err != nil {
		slog.WarnContext(ctx, "Google credential rejected", "error", err)
		return core.User{}, auth.GoogleIdentity{}, core.Invalid("Invalid Google credential")
	}

	u, err := s.store.GetUserByEmail(ctx, id.Email)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, auth.GoogleIdentity{}, core.Invalid("User does not exist")
	}
	if err != nil {
		return core.User{}, auth.GoogleIdentity{}, fmt.Errorf("load user: %w", err)
	}

	if id.EmailVerified && !u.Verified {
		if err := s.store.MarkUserVerified(ctx, u.ID); err != nil {
			return core.User{}, auth.GoogleIdentity{}, fmt.Errorf("mark user verified: %w", err)
		}
		u.Verified = true
	}
	return u, id, nil
}

func (s *UserService) Get(ctx context.Context, id string) (core.User, error) {
	return s.store.GetUserByID(ctx, id)
}

func (s *UserService) UpdatePreferences(ctx context.Context, id string, in PreferencesInput) (core.User, error) {
	var currency core.Currency
	if in.Currency != "" {
		c, err := core.ParseCurrency(in.Currency)
		if err != nil {
			return core.User{}, err
		}
		currency = c
	}
	return s.store.UpdateUserPreferences(ctx, id, currency, strings.TrimSpace(in.Theme))
}

// UpdateProfile changes name and email. A new email clears the verified flag;
// the second result reports whether that happened.
func (s *UserService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (core.User, bool, error) {
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return core.User{}, false, err
	}

	if in.FullName != nil {
		u.FullName = strings.TrimSpace(*in.FullName)
	}

	emailChanged := false
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if !validEmail(email) {
			return core.User{}, false, core.Invalid("A valid email is required")
		}
		if email != u.Email {
			u.Email = email
			u.Verified = false
			emailChanged = true
		}
	}

	if err := u.Validate(); err != nil {
		return core.User{}, false, err
	}

	updated, err := s.store.UpdateUserProfile(ctx, u)
	if errors.Is(err, core.ErrAlreadyExists) {
		return core.User{}, false, core.Invalid("Email is already registered")
	}
	if err != nil {
		return core.User{}, false, fmt.Errorf("update profile: %w", err)
	}
	return updated, emailChanged, nil
}

func (s *UserService) ChangePassword(ctx context.Context, id, current, next string) error {
	if current == "" {
		return core.Invalid("Current password is required")
	}
	if !strongPassword(next) {
		return weakPassword()
	}

	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if u.PasswordHash == "" {
		return core.Invalid("Current password is incorrect")
	}

	ok, err := auth.ComparePassword(u.PasswordHash, current)
	if err != nil {
		return err
	}
	if !ok {
		return core.Invalid("Current password is incorrect")
	}
	if current == next {
		return core.Invalid("New password must be different from current password")
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.store.UpdatePasswordHash(ctx, id, hash)
}

func validEmail(s string) bool {
	s = strings.TrimSpace(s)
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@"):], ".")
}

// strongPassword requires at least 8 characters with upper and lower case
// letters, a digit and a symbol.
func strongPassword(p string) bool {
	if len([]rune(p)) < minPasswordLen {
		return false
	}
	var lower, upper, digit, symbol bool
	for _, r := range p {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsSpace(r):
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}

func weakPassword() error {
	return core.Invalid("Password must be at least 8 characters long and include uppercase, lowercase, number, and symbol")
}

func errBadCredentials() error {
	return core.Invalid("Invalid email or password")
}
