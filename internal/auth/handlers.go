package auth

import (
	"encoding/json"
	"net/http"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-tierprice/internal/common"
)

// Handler exposes the back-office login endpoint.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=1024"`
}

// Login handles POST /api/v1/admin/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "invalid request payload", common.ValidationDetails(err))
			return
		}
	}
	result, err := h.Service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		common.WriteError(w, err, "login failed")
		return
	}
	common.Data(w, http.StatusOK, result)
}
