// waste.go — учёт сданных отходов и начисление баллов.
package handlers

import (
	"net/http"

	"github.com/bigkaa/cleancity/portal/internal/domain/model"
	"github.com/bigkaa/cleancity/portal/internal/service"
	"github.com/bigkaa/cleancity/portal/internal/ui/notify"
	"github.com/bigkaa/cleancity/portal/internal/ui/pages"
)

// wastePageSize — количество записей в истории.
const wastePageSize = 50

// wastePage — данные страницы отходов.
type wastePage struct {
	Entries []*model.WasteEntry
	Types   []model.WasteType
	Rates   map[model.WasteType]float64
	Points  []*model.CollectionPoint
}

// WasteHandler — страница отходов.
type WasteHandler struct {
	*Base
	waste  *service.WasteService
	points *service.CollectionPointService
}

// NewWasteHandler создаёт WasteHandler.
func NewWasteHandler(base *Base, waste *service.WasteService, points *service.CollectionPointService) *WasteHandler {
	return &WasteHandler{Base: base, waste: waste, points: points}
}

// HandleList — GET /waste.
func (h *WasteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	v := h.view(r, "waste.title")
	if !h.fill(w, r, v) {
		return
	}
	h.render(w, http.StatusOK, "waste", v)
}

// HandleSubmit — POST /waste.
func (h *WasteHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	form := service.WasteForm{
		WasteType:         r.FormValue("waste_type"),
		WeightKg:          r.FormValue("weight_kg"),
		CollectionPointID: r.FormValue("collection_point_id"),
	}

	entry, err := h.waste.Submit(r.Context(), clientOf(r).Session.Snapshot().UserID, form)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if !errorsIsValidation(err) {
			h.logError(r, err)
			h.notify(r, notify.Error, errorKey(err))
			status = statusFor(err)
		}
		v := h.view(r, "waste.title")
		v.Form.Values["waste_type"] = form.WasteType
		v.Form.Values["weight_kg"] = form.WeightKg
		v.Form.Values["collection_point_id"] = form.CollectionPointID
		formErrors(v, err)
		if !h.fill(w, r, v) {
			return
		}
		h.render(w, status, "waste", v)
		return
	}

	h.notify(r, notify.Success, "waste.recorded", entry.PointsEarned)
	redirect(w, r, "/waste")
}

// fill загружает историю и пункты приёма; при ошибке отрисовывает
// страницу ошибки и возвращает false.
func (h *WasteHandler) fill(w http.ResponseWriter, r *http.Request, v *pages.View) bool {
	entries, err := h.waste.ListMine(r.Context(), v.Session.UserID, wastePageSize, 0)
	if err != nil {
		h.failPage(w, r, err)
		return false
	}
	points, err := h.points.List(r.Context(), "")
	if err != nil {
		h.failPage(w, r, err)
		return false
	}

	rates := make(map[model.WasteType]float64, len(model.WasteTypes))
	for _, t := range model.WasteTypes {
		rates[t] = model.RateFor(t)
	}
	v.Data = wastePage{
		Entries: entries,
		Types:   model.WasteTypes,
		Rates:   rates,
		Points:  points,
	}
	return true
}
