package handlers

import (
    "encoding/json"
    "fmt"
    "net/http"
    "strconv"

    "thehive-go/middleware"
    "thehive-go/models"
    "thehive-go/utils"
)

func (h *Handlers) GetAllUsers(w http.ResponseWriter, r *http.Request) {
    var users []models.User
    if err := h.db.Preload("Profile").Find(&users).Error; err != nil {
        sendError(w, http.StatusInternalServerError, "Failed to fetch users", nil)
        return
    }
    for i := range users {
        users[i].Password = ""
    }

    sendJSON(w, http.StatusOK, users)
}

// VerifyUser flips the email-verified flag on a user's profile.
func (h *Handlers) VerifyUser(w http.ResponseWriter, r *http.Request) {
    var req struct {
        UserID   uint `json:"user_id" validate:"required,gt=0"`
        Verified bool `json:"verified"`
    }

    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        sendError(w, http.StatusBadRequest, "Invalid request body", err.Error())
        return
    }

    if err := utils.ValidateStruct(req); err != nil {
        sendError(w, http.StatusBadRequest, "Validation failed", utils.FormatValidationError(err))
        return
    }

    var profile models.UserProfile
    if err := h.db.Where("user_id = ?", req.UserID).First(&profile).Error; err != nil {
        sendError(w, http.StatusNotFound, "Profile not found", nil)
        return
    }

    if err := h.db.Model(&profile).Update("email_verified", req.Verified).Error; err != nil {
        sendError(w, http.StatusInternalServerError, "Failed to update verification status", nil)
        return
    }

    claims := middleware.GetUserFromContext(r)
    if claims != nil {
        h.logAudit(&claims.UserID, "VERIFY", "USER",
            fmt.Sprintf("User %d verified=%v", req.UserID, req.Verified), r.RemoteAddr, r.UserAgent())
    }

    sendJSON(w, http.StatusOK, map[string]interface{}{
        "message": "User verification status updated",
        "profile": profile,
    })
}

func (h *Handlers) GetAuditLogs(w http.ResponseWriter, r *http.Request) {
    page, _ := strconv.Atoi(r.URL.Query().Get("page"))
    if page <= 0 {
        page = 1
    }
    limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
    if limit <= 0 || limit > 100 {
        limit = 50
    }
    offset := (page - 1) * limit

    var logs []models.AuditLog
    if err := h.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
        sendError(w, http.StatusInternalServerError, "Failed to fetch audit logs", nil)
        return
    }

    sendJSON(w, http.StatusOK, logs)
}

// DeleteOffer is the admin hard delete. Owner-initiated removal goes through
// CancelOffer and keeps the row.
func (h *Handlers) DeleteOffer(w http.ResponseWriter, r *http.Request) {
    id, err := parseID(r, "id")
    if err != nil {
        sendError(w, http.StatusBadRequest, err.Error(), nil)
        return
    }

    var offer models.Offer
    if err := h.db.First(&offer, id).Error; err != nil {
        sendError(w, http.StatusNotFound, "Offer not found", nil)
        return
    }

    if err := h.db.Unscoped().Delete(&offer).Error; err != nil {
        sendError(w, http.StatusInternalServerError, "Failed to delete offer", nil)
        return
    }

    claims := middleware.GetUserFromContext(r)
    if claims != nil {
        h.logAudit(&claims.UserID, "DELETE", "OFFER", offer.Title, r.RemoteAddr, r.UserAgent())
    }

    sendJSON(w, http.StatusOK, map[string]string{"message": "Offer deleted"})
}

func (h *Handlers) DeleteRequest(w http.ResponseWriter, r *http.Request) {
    id, err := parseID(r, "id")
    if err != nil {
        sendError(w, http.StatusBadRequest, err.Error(), nil)
        return
    }

    var request models.Request
    if err := h.db.First(&request, id).Error; err != nil {
        sendError(w, http.StatusNotFound, "Request not found", nil)
        return
    }

    if err := h.db.Unscoped().Delete(&request).Error; err != nil {
        sendError(w, http.StatusInternalServerError, "Failed to delete request", nil)
        return
    }

    claims := middleware.GetUserFromContext(r)
    if claims != nil {
        h.logAudit(&claims.UserID, "DELETE", "REQUEST", request.Title, r.RemoteAddr, r.UserAgent())
    }

    sendJSON(w, http.StatusOK, map[string]string{"message": "Request deleted"})
}
