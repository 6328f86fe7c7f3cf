package handler

import (
	"log/slog"
	"net/http"

	"betty/internal/httputil"
	"betty/internal/service/profile"
)

// ProfileHandler handles user profile HTTP requests
type ProfileHandler struct {
	profiles *profile.Service
	logger   *slog.Logger
}

func NewProfileHandler(profiles *profile.Service, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// Get returns the caller's profile, provisioning it on first access
// GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	user, err := h.profiles.EnsureUser(r.Context(), userID, httputil.GetEmail(r))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, user)
}

// Update patches the caller's profile
// PATCH /api/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req profile.UpdateProfileRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.profiles.Update(r.Context(), userID, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, user)
}

// Stats serves the profile dashboard aggregates
// GET /api/profile/stats
func (h *ProfileHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	stats, err := h.profiles.Stats(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, stats)
}

// GetPreferences returns the caller's app preferences
// GET /api/profile/preferences
func (h *ProfileHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	prefs, err := h.profiles.Preferences(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences replaces the caller's app preferences
// PUT /api/profile/preferences
func (h *ProfileHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var prefs map[string]any
	if err := httputil.ParseJSON(w, r, &prefs); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.profiles.UpdatePreferences(r.Context(), userID, prefs)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, updated)
}

// GetNotifications returns the caller's notification settings
// GET /api/profile/notifications
func (h *ProfileHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	settings, err := h.profiles.NotificationSettings(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, settings)
}

// UpdateNotifications replaces the caller's notification settings
// PUT /api/profile/notifications
func (h *ProfileHandler) UpdateNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var settings map[string]any
	if err := httputil.ParseJSON(w, r, &settings); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.profiles.UpdateNotificationSettings(r.Context(), userID, settings)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, updated)
}

// DeleteAccount archives the caller's account. The record moves to the
// deleted-users archive; it is never hard-deleted
// DELETE /api/profile
func (h *ProfileHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.profiles.Delete(r.Context(), userID); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
