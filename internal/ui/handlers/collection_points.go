// collection_points.go — публичный список пунктов приёма с расписанием.
package handlers

import (
	"net/http"
	"strings"

	"github.com/bigkaa/cleancity/portal/internal/domain/model"
	"github.com/bigkaa/cleancity/portal/internal/service"
)

// pointsPage — данные страницы пунктов приёма.
type pointsPage struct {
	Points []*model.CollectionPoint
	Cities []string
	City   string
}

// CollectionPointsHandler — страница пунктов приёма.
type CollectionPointsHandler struct {
	*Base
	points *service.CollectionPointService
}

// NewCollectionPointsHandler создаёт CollectionPointsHandler.
func NewCollectionPointsHandler(base *Base, points *service.CollectionPointService) *CollectionPointsHandler {
	return &CollectionPointsHandler{Base: base, points: points}
}

// HandleList — GET /collection-points?city=.
func (h *CollectionPointsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))

	points, err := h.points.List(r.Context(), city)
	if err != nil {
		h.failPage(w, r, err)
		return
	}
	cities, err := h.points.Cities(r.Context())
	if err != nil {
		h.failPage(w, r, err)
		return
	}

	v := h.view(r, "points_map.title")
	v.Data = pointsPage{Points: points, Cities: cities, City: city}
	h.render(w, http.StatusOK, "collection_points", v)
}
