package handlers

import (
    "net/http"
    "strconv"

    "thehive-go/middleware"
    "thehive-go/models"
)

// GetTransactions lists the caller's ledger history, newest first. The ledger
// is append-only so this is a pure read; there are no mutation endpoints.
func (h *Handlers) GetTransactions(w http.ResponseWriter, r *http.Request) {
    claims := middleware.GetUserFromContext(r)
    if claims == nil {
        sendError(w, http.StatusUnauthorized, "Invalid or missing token", nil)
        return
    }

    page, _ := strconv.Atoi(r.URL.Query().Get("page"))
    if page <= 0 {
        page = 1
    }
    limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
    if limit <= 0 || limit > 100 {
        limit = 20
    }
    offset := (page - 1) * limit

    var transactions []models.Transaction
    if err := h.db.
        Where("sender_id = ? OR receiver_id = ?", claims.UserID, claims.UserID).
        Preload("Sender").Preload("Receiver").
        Order("created_at DESC").
        Limit(limit).
        Offset(offset).
        Find(&transactions).Error; err != nil {
        sendError(w, http.StatusInternalServerError, "Failed to fetch transactions", nil)
        return
    }
    for i := range transactions {
        transactions[i].Sender.Password = ""
        transactions[i].Receiver.Password = ""
    }

    sendJSON(w, http.StatusOK, transactions)
}
