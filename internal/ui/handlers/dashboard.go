// dashboard.go — главная страница пользователя.
package handlers

import (
	"net/http"

	"github.com/bigkaa/cleancity/portal/internal/service"
)

// DashboardHandler — панель пользователя: баланс, обращения, отходы.
type DashboardHandler struct {
	*Base
	stats *service.StatsService
}

// NewDashboardHandler создаёт DashboardHandler.
func NewDashboardHandler(base *Base, stats *service.StatsService) *DashboardHandler {
	return &DashboardHandler{Base: base, stats: stats}
}

// HandleDashboard — GET /.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.stats.Dashboard(r.Context(), clientOf(r).Session.Snapshot().UserID)
	if err != nil {
		h.failPage(w, r, err)
		return
	}

	v := h.view(r, "dashboard.title")
	v.Data = d
	h.render(w, http.StatusOK, "dashboard", v)
}
