package handlers

import (
    "encoding/json"
    "errors"
    "net/http"

    "gorm.io/gorm"

    "thehive-go/middleware"
    "thehive-go/models"
    "thehive-go/utils"
)

func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
    claims := middleware.GetUserFromContext(r)
    if claims == nil {
        sendError(w, http.StatusUnauthorized, "Invalid or missing token", nil)
        return
    }

    var profile models.UserProfile
    if err := h.db.Where("user_id = ?", claims.UserID).First(&profile).Error; err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            sendError(w, http.StatusNotFound, "Profile not found", nil)
            return
        }
        sendError(w, http.StatusInternalServerError, "Database error", nil)
        return
    }

    sendJSON(w, http.StatusOK, profile)
}

func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
    claims := middleware.GetUserFromContext(r)
    if claims == nil {
        sendError(w, http.StatusUnauthorized, "Invalid or missing token", nil)
        return
    }

    var req models.UpdateProfileRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        sendError(w, http.StatusBadRequest, "Invalid request body", err.Error())
        return
    }

    if err := utils.ValidateStruct(req); err != nil {
        sendError(w, http.StatusBadRequest, "Validation failed", utils.FormatValidationError(err))
        return
    }

    var profile models.UserProfile
    if err := h.db.Where("user_id = ?", claims.UserID).First(&profile).Error; err != nil {
        sendError(w, http.StatusNotFound, "Profile not found", nil)
        return
    }

    // Profile edits never touch the timebank balance; only settlement does.
    profile.Bio = utils.SanitizeString(req.Bio)
    profile.Province = utils.SanitizeString(req.Province)
    profile.District = utils.SanitizeString(req.District)
    if req.IsVisible != nil {
        profile.IsVisible = *req.IsVisible
    }

    if err := h.db.Save(&profile).Error; err != nil {
        sendError(w, http.StatusInternalServerError, "Failed to update profile", nil)
        return
    }

    h.logAudit(&claims.UserID, "UPDATE", "PROFILE", "Profile updated", r.RemoteAddr, r.UserAgent())

    sendJSON(w, http.StatusOK, profile)
}

func (h *Handlers) ListProfiles(w http.ResponseWriter, r *http.Request) {
    var profiles []models.UserProfile
    if err := h.db.Where("is_visible = ?", true).Find(&profiles).Error; err != nil {
        sendError(w, http.StatusInternalServerError, "Failed to fetch profiles", nil)
        return
    }

    sendJSON(w, http.StatusOK, profiles)
}
