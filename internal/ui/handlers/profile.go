// profile.go — просмотр и изменение профиля.
package handlers

import (
	"context"
	"net/http"

	"github.com/bigkaa/cleancity/portal/internal/service"
	"github.com/bigkaa/cleancity/portal/internal/ui/notify"
)

// ProfileHandler — страница профиля.
type ProfileHandler struct {
	*Base
}

// NewProfileHandler создаёт ProfileHandler.
func NewProfileHandler(base *Base) *ProfileHandler {
	return &ProfileHandler{Base: base}
}

// HandleView — GET /profile. Если профиль ещё не загружен,
// запрашивается повторно.
func (h *ProfileHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	c := clientOf(r)
	if c.Session.Snapshot().Profile == nil {
		ctx, cancel := context.WithTimeout(r.Context(), authTimeout)
		err := c.Session.RefreshProfile(ctx)
		cancel()
		if err != nil {
			h.logError(r, err)
			h.notify(r, notify.Error, "profile.unavailable")
		}
	}

	v := h.view(r, "profile.title")
	if p := v.Session.Profile; p != nil {
		v.Form.Values["display_name"] = p.DisplayName
		v.Form.Values["city"] = p.City
		v.Form.Values["region"] = p.Region
	}
	h.render(w, http.StatusOK, "profile", v)
}

// HandleUpdate — POST /profile.
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	form := service.ProfileForm{
		DisplayName: r.FormValue("display_name"),
		City:        r.FormValue("city"),
		Region:      r.FormValue("region"),
	}

	upd, err := form.Update()
	if err != nil {
		v := h.view(r, "profile.title")
		v.Form.Values["display_name"] = form.DisplayName
		v.Form.Values["city"] = form.City
		v.Form.Values["region"] = form.Region
		formErrors(v, err)
		h.render(w, http.StatusUnprocessableEntity, "profile", v)
		return
	}

	if err := clientOf(r).Session.UpdateProfile(r.Context(), upd); err != nil {
		h.fail(w, r, err, "/profile")
		return
	}

	h.notify(r, notify.Success, "profile.saved")
	redirect(w, r, "/profile")
}
