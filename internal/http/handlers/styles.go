package handlers

import (
	"net/http"

	"cartoonify/internal/domain"
	"cartoonify/internal/entitlement"
)

type styleView struct {
	domain.StyleDefinition
	Available bool `json:"available"`
}

// Styles lists the catalog in display order, flagging which styles the
// current entitlements allow.
func (a *App) Styles(w http.ResponseWriter, r *http.Request) {
	ledger := a.Flow.Ledger()
	all := a.Flow.Catalog().All()
	items := make([]styleView, 0, len(all))
	for _, s := range all {
		items = append(items, styleView{StyleDefinition: s, Available: ledger.CanUse(s) == entitlement.Allowed})
	}
	a.json(w, http.StatusOK, map[string]any{
		"items":             items,
		"default_intensity": domain.DefaultIntensity,
	})
}
