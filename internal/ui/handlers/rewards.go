// rewards.go — каталог вознаграждений и обмен баллов.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/cleancity/portal/internal/domain/model"
	"github.com/bigkaa/cleancity/portal/internal/service"
	"github.com/bigkaa/cleancity/portal/internal/ui/notify"
)

// historySize — количество последних обменов на странице.
const historySize = 10

// rewardsPage — данные страницы вознаграждений.
type rewardsPage struct {
	Rewards []*model.Reward
	Balance int
	History []*model.Redemption
}

// RewardsHandler — страница вознаграждений.
type RewardsHandler struct {
	*Base
	rewards *service.RewardService
}

// NewRewardsHandler создаёт RewardsHandler.
func NewRewardsHandler(base *Base, rewards *service.RewardService) *RewardsHandler {
	return &RewardsHandler{Base: base, rewards: rewards}
}

// HandleCatalog — GET /rewards.
func (h *RewardsHandler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	userID := clientOf(r).Session.Snapshot().UserID

	catalog, err := h.rewards.Catalog(r.Context())
	if err != nil {
		h.failPage(w, r, err)
		return
	}
	balance, err := h.rewards.Balance(r.Context(), userID)
	if err != nil {
		h.failPage(w, r, err)
		return
	}
	history, err := h.rewards.History(r.Context(), userID, historySize)
	if err != nil {
		h.failPage(w, r, err)
		return
	}

	v := h.view(r, "rewards.title")
	v.Data = rewardsPage{Rewards: catalog, Balance: balance.Balance, History: history}
	h.render(w, http.StatusOK, "rewards", v)
}

// HandleRedeem — POST /rewards/{id}/redeem.
func (h *RewardsHandler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	userID := clientOf(r).Session.Snapshot().UserID

	red, err := h.rewards.Redeem(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "/rewards")
		return
	}

	h.notify(r, notify.Success, "rewards.redeemed", red.RewardTitle, red.PointsSpent)
	redirect(w, r, "/rewards")
}
