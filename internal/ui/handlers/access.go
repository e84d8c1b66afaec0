// access.go — ответы gate для защищённых страниц: ожидание загрузки
// сессии и redirect-and-notify при отказе.
package handlers

import (
	"net/http"
	"net/url"

	"github.com/bigkaa/cleancity/portal/internal/access"
	"github.com/bigkaa/cleancity/portal/internal/ui/notify"
)

// waitingRefresh — период автообновления страницы ожидания (секунды).
const waitingRefresh = 2

// Waiting отрисовывает страницу ожидания с автообновлением.
func (b *Base) Waiting(w http.ResponseWriter, r *http.Request) {
	v := b.view(r, "access.waiting_title")
	v.Refresh = waitingRefresh
	w.Header().Set("Cache-Control", "no-store")
	b.render(w, http.StatusOK, "waiting", v)
}

// Denied перенаправляет анонимного пользователя на вход,
// а не-администратора на главную, с уведомлением.
func (b *Base) Denied(w http.ResponseWriter, r *http.Request, reason access.DenyReason) {
	if reason == access.ReasonNotAdmin {
		b.notify(r, notify.Error, "access.admin_only")
		redirect(w, r, "/")
		return
	}
	b.notify(r, notify.Info, "access.login_required")
	redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()))
}

var _ access.Responder = (*Base)(nil)
