package handlers

import (
    "encoding/json"
    "fmt"
    "net/http"

    "thehive-go/middleware"
    "thehive-go/models"
    "thehive-go/utils"
)

func (h *Handlers) ListHandshakes(w http.ResponseWriter, r *http.Request) {
    claims := middleware.GetUserFromContext(r)
    if claims == nil {
        sendError(w, http.StatusUnauthorized, "Invalid or missing token", nil)
        return
    }

    var handshakes []models.Handshake
    if err := h.db.
        Where("provider_id = ? OR seeker_id = ?", claims.UserID, claims.UserID).
        Preload("Offer").Preload("Request").
        Preload("Provider").Preload("Seeker").
        Order("created_at DESC").
        Find(&handshakes).Error; err != nil {
        sendError(w, http.StatusInternalServerError, "Failed to fetch handshakes", nil)
        return
    }
    for i := range handshakes {
        handshakes[i].Provider.Password = ""
        handshakes[i].Seeker.Password = ""
    }

    sendJSON(w, http.StatusOK, handshakes)
}

func (h *Handlers) ProposeHandshake(w http.ResponseWriter, r *http.Request) {
    claims := middleware.GetUserFromContext(r)
    if claims == nil {
        sendError(w, http.StatusUnauthorized, "Invalid or missing token", nil)
        return
    }

    var req models.ProposeHandshakeRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        sendError(w, http.StatusBadRequest, "Invalid request body", err.Error())
        return
    }

    if err := utils.ValidateStruct(req); err != nil {
        sendError(w, http.StatusBadRequest, "Validation failed", utils.FormatValidationError(err))
        return
    }

    var target models.TargetRef
    switch {
    case req.OfferID != nil && req.RequestID == nil:
        target = models.TargetRef{Kind: models.TargetOffer, ID: *req.OfferID}
    case req.RequestID != nil && req.OfferID == nil:
        target = models.TargetRef{Kind: models.TargetRequest, ID: *req.RequestID}
    default:
        sendError(w, http.StatusBadRequest, "Exactly one of offer_id or request_id must be set", nil)
        return
    }

    handshake, err := h.engine.Propose(claims.UserID, target, req.Hours)
    if err != nil {
        sendEngineError(w, err)
        return
    }

    h.logAudit(&claims.UserID, "PROPOSE", "HANDSHAKE",
        fmt.Sprintf("Handshake %d proposed", handshake.ID), r.RemoteAddr, r.UserAgent())

    sendJSON(w, http.StatusCreated, handshake)
}

func (h *Handlers) AcceptHandshake(w http.ResponseWriter, r *http.Request) {
    claims := middleware.GetUserFromContext(r)
    if claims == nil {
        sendError(w, http.StatusUnauthorized, "Invalid or missing token", nil)
        return
    }

    id, err := parseID(r, "id")
    if err != nil {
        sendError(w, http.StatusBadRequest, err.Error(), nil)
        return
    }

    handshake, err := h.engine.Accept(claims.UserID, id)
    if err != nil {
        sendEngineError(w, err)
        return
    }

    h.logAudit(&claims.UserID, "ACCEPT", "HANDSHAKE",
        fmt.Sprintf("Handshake %d accepted", handshake.ID), r.RemoteAddr, r.UserAgent())

    sendJSON(w, http.StatusOK, handshake)
}

func (h *Handlers) DeclineHandshake(w http.ResponseWriter, r *http.Request) {
    claims := middleware.GetUserFromContext(r)
    if claims == nil {
        sendError(w, http.StatusUnauthorized, "Invalid or missing token", nil)
        return
    }

    id, err := parseID(r, "id")
    if err != nil {
        sendError(w, http.StatusBadRequest, err.Error(), nil)
        return
    }

    handshake, err := h.engine.Decline(claims.UserID, id)
    if err != nil {
        sendEngineError(w, err)
        return
    }

    h.logAudit(&claims.UserID, "DECLINE", "HANDSHAKE",
        fmt.Sprintf("Handshake %d declined", handshake.ID), r.RemoteAddr, r.UserAgent())

    sendJSON(w, http.StatusOK, handshake)
}

func (h *Handlers) ConfirmHandshake(w http.ResponseWriter, r *http.Request) {
    claims := middleware.GetUserFromContext(r)
    if claims == nil {
        sendError(w, http.StatusUnauthorized, "Invalid or missing token", nil)
        return
    }

    id, err := parseID(r, "id")
    if err != nil {
        sendError(w, http.StatusBadRequest, err.Error(), nil)
        return
    }

    handshake, err := h.engine.Confirm(claims.UserID, id)
    if err != nil {
        sendEngineError(w, err)
        return
    }

    if handshake.Status == models.HandshakeStatusCompleted {
        h.logAudit(&claims.UserID, "SETTLE", "HANDSHAKE",
            fmt.Sprintf("Handshake %d settled", handshake.ID), r.RemoteAddr, r.UserAgent())
    } else {
        h.logAudit(&claims.UserID, "CONFIRM", "HANDSHAKE",
            fmt.Sprintf("Handshake %d confirmed by user %d", handshake.ID, claims.UserID), r.RemoteAddr, r.UserAgent())
    }

    sendJSON(w, http.StatusOK, handshake)
}
