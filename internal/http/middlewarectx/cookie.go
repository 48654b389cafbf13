package middlewarectx

import (
	"net/http"
	"time"
)

// SetTokenCookie выставляет браузерному клиенту HttpOnly cookie с токеном.
func SetTokenCookie(w http.ResponseWriter, r *http.Request, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearTokenCookie удаляет cookie с токеном. Атрибуты совпадают с
// SetTokenCookie, иначе браузер не сопоставит cookie.
func ClearTokenCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// OAuthStateCookie имя cookie, в которой между началом входа через
// провайдера и обратным вызовом хранится state.
const OAuthStateCookie = "oauth_state"

// SetOAuthStateCookie сохраняет state на время входа через провайдера.
// SameSite=Lax нужен, чтобы cookie пришла с переходом со страницы провайдера.
func SetOAuthStateCookie(w http.ResponseWriter, r *http.Request, state string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     OAuthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearOAuthStateCookie удаляет state после обратного вызова.
func ClearOAuthStateCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     OAuthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
