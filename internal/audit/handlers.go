package audit

import (
	"net/http"

	"github.com/noah-isme/toko-tierprice/internal/common"
)

// Handler exposes the audit trail to administrators.
type Handler struct {
	Store Store
}

// List handles GET /api/v1/admin/audit and returns the newest entries first.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_NOT_CONFIGURED", "audit store not configured", nil)
		return
	}
	limit := common.LimitParam(r.URL.Query().Get("limit"), 50, 200)
	entries, err := h.Store.List(r.Context(), limit)
	if err != nil {
		common.JSONError(w, http.StatusServiceUnavailable, "AUDIT_QUERY_FAILED", "unable to fetch audit entries", nil)
		return
	}
	common.Data(w, http.StatusOK, entries)
}
