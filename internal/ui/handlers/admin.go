// admin.go — статистика и модерация обращений (роль admin).
package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/cleancity/portal/internal/domain/model"
	"github.com/bigkaa/cleancity/portal/internal/service"
	"github.com/bigkaa/cleancity/portal/internal/ui/notify"
)

// adminPageSize — обращений на странице модерации.
const adminPageSize = 20

// adminReportsPage — данные страницы модерации.
type adminReportsPage struct {
	Items    []*model.IssueReport
	Total    int
	Status   string
	Statuses []model.ReportStatus
	Page     int
	HasPrev  bool
	HasNext  bool
}

// AdminHandler — страницы администратора.
type AdminHandler struct {
	*Base
	stats   *service.StatsService
	reports *service.ReportService
}

// NewAdminHandler создаёт AdminHandler.
func NewAdminHandler(base *Base, stats *service.StatsService, reports *service.ReportService) *AdminHandler {
	return &AdminHandler{Base: base, stats: stats, reports: reports}
}

// HandleOverview — GET /admin.
func (h *AdminHandler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Overview(r.Context(), actor(r))
	if err != nil {
		h.failPage(w, r, err)
		return
	}

	v := h.view(r, "admin.title")
	v.Data = stats
	h.render(w, http.StatusOK, "admin", v)
}

// HandleReports — GET /admin/reports?status=&page=.
func (h *AdminHandler) HandleReports(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	result, err := h.reports.List(r.Context(), actor(r), status, adminPageSize, (page-1)*adminPageSize)
	if err != nil {
		if errorsIsValidation(err) {
			h.notify(r, notify.Error, "error.validation")
			redirect(w, r, "/admin/reports")
			return
		}
		h.failPage(w, r, err)
		return
	}

	v := h.view(r, "admin.moderate")
	v.Data = adminReportsPage{
		Items:    result.Items,
		Total:    result.Total,
		Status:   status,
		Statuses: model.ReportStatuses,
		Page:     page,
		HasPrev:  page > 1,
		HasNext:  page*adminPageSize < result.Total,
	}
	h.render(w, http.StatusOK, "admin_reports", v)
}

// HandleUpdateStatus — POST /admin/reports/{id}/status.
func (h *AdminHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	back := safeRedirect(r.FormValue("return"), "/admin/reports")

	_, err := h.reports.UpdateStatus(r.Context(), actor(r), chi.URLParam(r, "id"),
		r.FormValue("status"), r.FormValue("admin_note"))
	if err != nil {
		if errorsIsValidation(err) {
			h.notify(r, notify.Error, validationKey(err))
			redirect(w, r, back)
			return
		}
		h.fail(w, r, err, back)
		return
	}

	h.notify(r, notify.Success, "admin.status_updated")
	redirect(w, r, back)
}
