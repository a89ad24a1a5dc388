package reportinghttp

import "github.com/go-chi/chi/v5"

// MountRoutes registers report, stock and reconciliation endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/reports/trial-balance", h.handleTrialBalance)
	r.Get("/reports/balance-sheet", h.handleBalanceSheet)
	r.Get("/reports/profit-loss", h.handleProfitLoss)
	r.Get("/reports/gst-register", h.handleGSTRegister)
	r.Get("/groups/{id}/total", h.handleGroupTotal)
	r.Get("/stock/summary", h.handleStockSummary)
	r.Group(func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Post("/reconcile/gst", h.handleReconcileGST)
		r.Post("/companies/{id}/invalidate", h.handleInvalidate)
	})
}
