package handlers

import (
	"net/http"
	"slices"

	"cartoonify/internal/domain"
)

type entitlementView struct {
	IsPremiumSubscriber bool             `json:"is_premium_subscriber"`
	TemporaryUnlocks    []domain.StyleID `json:"temporary_unlocks"`
}

type rewardRequest struct {
	StyleID domain.StyleID `json:"style_id"`
}

func (a *App) entitlements(w http.ResponseWriter) {
	state := a.Flow.Ledger().State()
	unlocks := state.UnlockedStyles()
	slices.Sort(unlocks)
	a.json(w, http.StatusOK, entitlementView{
		IsPremiumSubscriber: state.IsPremiumSubscriber,
		TemporaryUnlocks:    unlocks,
	})
}

func (a *App) Entitlements(w http.ResponseWriter, r *http.Request) {
	a.entitlements(w)
}

// Subscribe records a subscription purchase reported by the store.
func (a *App) Subscribe(w http.ResponseWriter, r *http.Request) {
	if err := a.Flow.Ledger().Subscribe(r.Context()); err != nil {
		a.fail(w, r, err)
		return
	}
	a.entitlements(w)
}

// RewardedAd records a completed rewarded ad for a premium style.
func (a *App) RewardedAd(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if !a.decode(w, r, &req) {
		return
	}
	style, err := a.Flow.Catalog().Lookup(req.StyleID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !style.IsPremium {
		a.error(w, http.StatusBadRequest, "not_premium", "style does not require an unlock")
		return
	}
	if err := a.Flow.Ledger().RewardAdCompleted(r.Context(), style.ID); err != nil {
		a.fail(w, r, err)
		return
	}
	a.entitlements(w)
}
