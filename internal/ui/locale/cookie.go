package locale

import (
	"net/http"
	"time"
)

// CookieName — cookie, в котором сохраняется выбранный язык.
const CookieName = "language"

// cookieMaxAge — срок хранения выбранного языка.
const cookieMaxAge = 365 * 24 * time.Hour

// FromRequest читает сохранённый язык из cookie запроса.
func FromRequest(r *http.Request) (Code, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return ParseCode(cookie.Value)
}

// SetCookie сохраняет выбранный язык в cookie ответа.
func SetCookie(w http.ResponseWriter, code Code, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    string(code),
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
