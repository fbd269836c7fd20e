package auth

import (
	"net/http"
	"time"
)

// CookieOptions controls the session cookie attributes. Secure cookies are
// sent with SameSite=None so a separately hosted frontend can use them.
type CookieOptions struct {
	Secure bool
	Domain string
}

func (o CookieOptions) sameSite() http.SameSite {
	if o.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// SetTokenCookie writes the session cookie.
func SetTokenCookie(w http.ResponseWriter, o CookieOptions, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Domain:   o.Domain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: o.sameSite(),
	})
}

// ClearTokenCookie expires the session cookie immediately.
func ClearTokenCookie(w http.ResponseWriter, o CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   o.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: o.sameSite(),
	})
}
