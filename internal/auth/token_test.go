package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens("secret", 0)
	fixed := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return fixed }

	raw, expires, err := tokens.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !expires.Equal(fixed.Add(TokenTTL)) {
		t.Errorf("expires = %v, want %v", expires, fixed.Add(TokenTTL))
	}

	uid, err := tokens.Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if uid != "user-1" {
		t.Errorf("Parse() = %q, want user-1", uid)
	}
}

func TestTokens_Rejects(t *testing.T) {
	issued := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	tokens := NewTokens("secret", time.Hour)
	tokens.now = func() time.Time { return issued }
	valid, _, err := tokens.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour))},
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "user-1"}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	otherAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		UserID:           "user-1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour))},
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tests := []struct {
		name   string
		raw    string
		secret string
		now    time.Time
	}{
		{"garbage", "not-a-token", "secret", issued},
		{"wrong secret", valid, "other", issued},
		{"expired", valid, "secret", issued.Add(2 * time.Hour)},
		{"missing user id", noUser, "secret", issued},
		{"missing expiry", noExpiry, "secret", issued},
		{"unexpected algorithm", otherAlg, "secret", issued},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewTokens(tt.secret, time.Hour)
			p.now = func() time.Time { return tt.now }

			if _, err := p.Parse(tt.raw); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *http.Request)
		want  string
	}{
		{"none", func(*http.Request) {}, ""},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: "c"}) }, "c"},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer b") }, "b"},
		{"cookie wins", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: CookieName, Value: "c"})
			r.Header.Set("Authorization", "Bearer b")
		}, "c"},
		{"basic ignored", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(r)
			if got := TokenFromRequest(r); got != tt.want {
				t.Errorf("TokenFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserIDFromContext(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for anonymous context")
	}

	uid, err := UserIDFromContext(WithUserID(context.Background(), "user-1"))
	if err != nil || uid != "user-1" {
		t.Errorf("UserIDFromContext() = %q, %v", uid, err)
	}
}

func TestCookies(t *testing.T) {
	expires := time.Date(2024, 3, 22, 12, 0, 0, 0, time.UTC)

	t.Run("local", func(t *testing.T) {
		rec := httptest.NewRecorder()
		SetTokenCookie(rec, CookieOptions{}, "tok", expires)

		cookies := rec.Result().Cookies()
		if len(cookies) != 1 {
			t.Fatalf("expected one cookie, got %d", len(cookies))
		}
		c := cookies[0]
		if c.Name != CookieName || c.Value != "tok" || !c.HttpOnly || c.Secure || c.SameSite != http.SameSiteLaxMode {
			t.Errorf("unexpected cookie: %+v", c)
		}
	})

	t.Run("production", func(t *testing.T) {
		rec := httptest.NewRecorder()
		SetTokenCookie(rec, CookieOptions{Secure: true, Domain: "example.com"}, "tok", expires)

		c := rec.Result().Cookies()[0]
		if !c.Secure || c.SameSite != http.SameSiteNoneMode || c.Domain != "example.com" {
			t.Errorf("unexpected cookie: %+v", c)
		}
	})

	t.Run("clear", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ClearTokenCookie(rec, CookieOptions{})

		c := rec.Result().Cookies()[0]
		if c.Value != "" || c.MaxAge >= 0 {
			t.Errorf("cookie not expired: %+v", c)
		}
	})
}
