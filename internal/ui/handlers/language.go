// language.go — переключение языка интерфейса.
package handlers

import (
	"net/http"

	"github.com/bigkaa/cleancity/portal/internal/ui/locale"
)

// HandleSetLanguage — POST /language.
// Неподдерживаемый код не меняет локаль. Выбранная локаль сохраняется
// в cookie "language", затем возврат на исходную страницу.
func (b *Base) HandleSetLanguage(w http.ResponseWriter, r *http.Request) {
	c := clientOf(r)
	c.Locale.Set(r.FormValue("lang"))
	locale.SetCookie(w, c.Locale.Code(), b.secure)

	redirect(w, r, safeRedirect(r.FormValue("redirect"), "/"))
}
