package access

import (
	"net/http"
	"time"
)

// DenyReason — причина отказа для redirect-and-notify.
type DenyReason int

const (
	// ReasonAnonymous — требуется вход.
	ReasonAnonymous DenyReason = iota
	// ReasonNotAdmin — требуется роль admin.
	ReasonNotAdmin
)

// Responder отрисовывает ответы для Wait и Deny.
type Responder interface {
	// Waiting — страница ожидания с автообновлением.
	Waiting(w http.ResponseWriter, r *http.Request)
	// Denied — редирект с локализованным уведомлением.
	Denied(w http.ResponseWriter, r *http.Request, reason DenyReason)
}

// Middleware — HTTP-обёртка Gate для защищённых страниц.
type Middleware struct {
	// GateFor возвращает Gate клиента запроса.
	GateFor func(r *http.Request) *Gate
	// Responder — отрисовка Wait и Deny.
	Responder Responder
	// WaitTimeout — сколько ждать загрузки сессии перед страницей ожидания.
	WaitTimeout time.Duration
}

// RequireAuth пропускает только вошедших пользователей.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return m.require(false, next)
}

// RequireAdmin пропускает только администраторов.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return m.require(true, next)
}

func (m Middleware) require(requireAdmin bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gate := m.GateFor(r)
		if gate == nil {
			m.Responder.Denied(w, r, ReasonAnonymous)
			return
		}

		switch gate.Await(r.Context(), requireAdmin, m.WaitTimeout) {
		case Allow:
			next.ServeHTTP(w, r)
		case Wait:
			m.Responder.Waiting(w, r)
		default:
			reason := ReasonAnonymous
			if gate.IsAuthenticated() {
				reason = ReasonNotAdmin
			}
			m.Responder.Denied(w, r, reason)
		}
	})
}
