package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-tierprice/internal/common"
	"github.com/noah-isme/toko-tierprice/internal/settings"
)

// SettingsStore reads and writes per-channel cross-variant settings.
type SettingsStore interface {
	settings.Provider
	Set(ctx context.Context, namespace, salesChannelID string, v settings.Values) error
	Delete(ctx context.Context, namespace, salesChannelID string) error
}

// Locker guards read-modify-write cycles on a resource.
type Locker interface {
	WithLock(ctx context.Context, resource string, ttl time.Duration, fn func(context.Context) error) error
}

// SettingsHandler exposes the admin settings endpoints.
type SettingsHandler struct {
	Store     SettingsStore
	Namespace string
	Locker    Locker
	LockTTL   time.Duration
	Validate  *validator.Validate
	Logger    zerolog.Logger
}

type settingsPatch struct {
	GroupByPrice *bool   `json:"groupByPrice"`
	Blacklist    *string `json:"blacklist" validate:"omitempty,max=2048"`
	Whitelist    *string `json:"whitelist" validate:"omitempty,max=2048"`
}

func (p settingsPatch) apply(v settings.Values) settings.Values {
	if p.GroupByPrice != nil {
		v.GroupByPrice = *p.GroupByPrice
	}
	if p.Blacklist != nil {
		v.Blacklist = *p.Blacklist
	}
	if p.Whitelist != nil {
		v.Whitelist = *p.Whitelist
	}
	return v.Normalize()
}

func channelParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "salesChannelId"))
}

// Get handles GET /api/v1/admin/settings/{salesChannelId} and returns the effective values.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings store not configured", nil)
		return
	}
	v, err := h.Store.Get(r.Context(), h.Namespace, channelParam(r))
	if err != nil {
		h.Logger.Error().Err(err).Msg("load settings")
		common.JSONError(w, http.StatusServiceUnavailable, "SETTINGS_UNAVAILABLE", "settings unavailable", nil)
		return
	}
	common.Data(w, http.StatusOK, v)
}

// Put handles PUT /api/v1/admin/settings/{salesChannelId} and replaces the channel values.
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings store not configured", nil)
		return
	}
	var v settings.Values
	if !h.decode(w, r, &v) {
		return
	}
	v = v.Normalize()
	if err := h.Store.Set(r.Context(), h.Namespace, channelParam(r), v); err != nil {
		h.Logger.Error().Err(err).Msg("store settings")
		common.JSONError(w, http.StatusServiceUnavailable, "SETTINGS_UNAVAILABLE", "settings unavailable", nil)
		return
	}
	h.logChange(r, "replaced")
	common.Data(w, http.StatusOK, v)
}

// Patch handles PATCH /api/v1/admin/settings/{salesChannelId}. The current effective
// values are read, merged with the patch and written back under a lock.
func (h *SettingsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings store not configured", nil)
		return
	}
	var patch settingsPatch
	if !h.decode(w, r, &patch) {
		return
	}
	channel := channelParam(r)
	var updated settings.Values
	update := func(ctx context.Context) error {
		current, err := h.Store.Get(ctx, h.Namespace, channel)
		if err != nil {
			return err
		}
		updated = patch.apply(current)
		return h.Store.Set(ctx, h.Namespace, channel, updated)
	}

	var err error
	if h.Locker != nil {
		err = h.Locker.WithLock(r.Context(), settings.Key(h.Namespace, channel), h.LockTTL, update)
	} else {
		err = update(r.Context())
	}
	if err != nil {
		h.Logger.Error().Err(err).Msg("patch settings")
		common.JSONError(w, http.StatusServiceUnavailable, "SETTINGS_UNAVAILABLE", "settings unavailable", nil)
		return
	}
	h.logChange(r, "patched")
	common.Data(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/admin/settings/{salesChannelId}; lookups fall back to global values again.
func (h *SettingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings store not configured", nil)
		return
	}
	if err := h.Store.Delete(r.Context(), h.Namespace, channelParam(r)); err != nil {
		h.Logger.Error().Err(err).Msg("delete settings")
		common.JSONError(w, http.StatusServiceUnavailable, "SETTINGS_UNAVAILABLE", "settings unavailable", nil)
		return
	}
	h.logChange(r, "deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *SettingsHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "invalid request payload", common.ValidationDetails(err))
			return false
		}
	}
	return true
}

func (h *SettingsHandler) logChange(r *http.Request, action string) {
	user, _ := common.UserID(r.Context())
	h.Logger.Info().
		Str("sales_channel_id", channelParam(r)).
		Str("admin", user).
		Str("action", action).
		Msg("cross variant settings changed")
}
