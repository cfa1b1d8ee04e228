package handlers

import (
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strconv"

    "github.com/gorilla/mux"
    "gorm.io/gorm"

    "thehive-go/middleware"
    "thehive-go/models"
    "thehive-go/utils"
)

func parseID(r *http.Request, key string) (uint, error) {
    raw := mux.Vars(r)[key]
    id, err := strconv.ParseUint(raw, 10, 32)
    if err != nil {
        return 0, fmt.Errorf("invalid id %q", raw)
    }
    return uint(id), nil
}

// storeLocation encrypts the exact coordinates and replaces the public ones
// with the deterministic fuzzed point. The post must already have an ID.
func storeLocation(kind string, id uint, lat, lon float64) (exact string, fLat, fLon float64, err error) {
    exact, err = utils.EncryptSensitiveData(fmt.Sprintf("%f,%f", lat, lon))
    if err != nil {
        return "", 0, 0, err
    }
    fLat, fLon = utils.FuzzCoordinates(kind, id, lat, lon)
    return exact, fLat, fLon, nil
}

func (h *Handlers) ListOffers(w http.ResponseWriter, r *http.Request) {
    query := h.db.Preload("User").Order("created_at DESC")
    if status := r.URL.Query().Get("status"); status != "" {
        query = query.Where("status = ?", status)
    }
    if tag := r.URL.Query().Get("tag"); tag != "" {
        query = query.Where("tags LIKE ?", "%"+utils.NormalizeTags(tag)+"%")
    }

    var offers []models.Offer
    if err := query.Find(&offers).Error; err != nil {
        sendError(w, http.StatusInternalServerError, "Failed to fetch offers", nil)
        return
    }
    for i := range offers {
        offers[i].User.Password = ""
    }

    sendJSON(w, http.StatusOK, offers)
}

func (h *Handlers) GetOffer(w http.ResponseWriter, r *http.Request) {
    id, err := parseID(r, "id")
    if err != nil {
        sendError(w, http.StatusBadRequest, err.Error(), nil)
        return
    }

    var offer models.Offer
    if err := h.db.Preload("User").First(&offer, id).Error; err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            sendError(w, http.StatusNotFound, "Offer not found", nil)
            return
        }
        sendError(w, http.StatusInternalServerError, "Database error", nil)
        return
    }
    offer.User.Password = ""

    sendJSON(w, http.StatusOK, offer)
}

func (h *Handlers) CreateOffer(w http.ResponseWriter, r *http.Request) {
    claims := middleware.GetUserFromContext(r)
    if claims == nil {
        sendError(w, http.StatusUnauthorized, "Invalid or missing token", nil)
        return
    }

    var req models.CreateOfferRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        sendError(w, http.StatusBadRequest, "Invalid request body", err.Error())
        return
    }

    if err := utils.ValidateStruct(req); err != nil {
        sendError(w, http.StatusBadRequest, "Validation failed", utils.FormatValidationError(err))
        return
    }

    offer := models.Offer{
        UserID:          claims.UserID,
        Title:           utils.SanitizeString(req.Title),
        Description:     req.Description,
        Category:        req.Category,
        DurationHours:   req.DurationHours,
        Date:            req.Date,
        Tags:            utils.NormalizeTags(req.Tags),
        MaxParticipants: req.MaxParticipants,
        Status:          models.PostStatusOpen,
    }

    err := h.db.Transaction(func(tx *gorm.DB) error {
        if err := tx.Create(&offer).Error; err != nil {
            return err
        }
        exact, fLat, fLon, err := storeLocation("offer", offer.ID, req.Latitude, req.Longitude)
        if err != nil {
            return err
        }
        offer.ExactLocation = exact
        offer.Latitude = fLat
        offer.Longitude = fLon
        return tx.Save(&offer).Error
    })
    if err != nil {
        sendError(w, http.StatusInternalServerError, "Failed to create offer", nil)
        return
    }

    h.logAudit(&claims.UserID, "CREATE", "OFFER", offer.Title, r.RemoteAddr, r.UserAgent())

    sendJSON(w, http.StatusCreated, offer)
}

func (h *Handlers) CancelOffer(w http.ResponseWriter, r *http.Request) {
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

    var offer models.Offer
    if err := h.db.First(&offer, id).Error; err != nil {
        sendError(w, http.StatusNotFound, "Offer not found", nil)
        return
    }
    if offer.UserID != claims.UserID {
        sendError(w, http.StatusForbidden, "Only the owner can cancel this offer", nil)
        return
    }
    if offer.Status == models.PostStatusCompleted || offer.Status == models.PostStatusCancelled {
        sendError(w, http.StatusBadRequest, "Offer is already closed", nil)
        return
    }

    // Owner cancellation is a soft delete: the row stays, status flips.
    if err := h.db.Model(&offer).Update("status", models.PostStatusCancelled).Error; err != nil {
        sendError(w, http.StatusInternalServerError, "Failed to cancel offer", nil)
        return
    }

    h.logAudit(&claims.UserID, "CANCEL", "OFFER", offer.Title, r.RemoteAddr, r.UserAgent())

    sendJSON(w, http.StatusOK, map[string]string{"message": "Offer cancelled"})
}

func (h *Handlers) ListRequests(w http.ResponseWriter, r *http.Request) {
    query := h.db.Preload("User").Order("created_at DESC")
    if status := r.URL.Query().Get("status"); status != "" {
        query = query.Where("status = ?", status)
    }
    if tag := r.URL.Query().Get("tag"); tag != "" {
        query = query.Where("tags LIKE ?", "%"+utils.NormalizeTags(tag)+"%")
    }

    var requests []models.Request
    if err := query.Find(&requests).Error; err != nil {
        sendError(w, http.StatusInternalServerError, "Failed to fetch requests", nil)
        return
    }
    for i := range requests {
        requests[i].User.Password = ""
    }

    sendJSON(w, http.StatusOK, requests)
}

func (h *Handlers) GetRequest(w http.ResponseWriter, r *http.Request) {
    id, err := parseID(r, "id")
    if err != nil {
        sendError(w, http.StatusBadRequest, err.Error(), nil)
        return
    }

    var request models.Request
    if err := h.db.Preload("User").First(&request, id).Error; err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            sendError(w, http.StatusNotFound, "Request not found", nil)
            return
        }
        sendError(w, http.StatusInternalServerError, "Database error", nil)
        return
    }
    request.User.Password = ""

    sendJSON(w, http.StatusOK, request)
}

func (h *Handlers) CreateRequest(w http.ResponseWriter, r *http.Request) {
    claims := middleware.GetUserFromContext(r)
    if claims == nil {
        sendError(w, http.StatusUnauthorized, "Invalid or missing token", nil)
        return
    }

    var req models.CreateRequestRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        sendError(w, http.StatusBadRequest, "Invalid request body", err.Error())
        return
    }

    if err := utils.ValidateStruct(req); err != nil {
        sendError(w, http.StatusBadRequest, "Validation failed", utils.FormatValidationError(err))
        return
    }

    request := models.Request{
        UserID:        claims.UserID,
        Title:         utils.SanitizeString(req.Title),
        Description:   req.Description,
        Category:      req.Category,
        DurationHours: req.DurationHours,
        Date:          req.Date,
        Tags:          utils.NormalizeTags(req.Tags),
        Status:        models.PostStatusOpen,
    }

    err := h.db.Transaction(func(tx *gorm.DB) error {
        if err := tx.Create(&request).Error; err != nil {
            return err
        }
        exact, fLat, fLon, err := storeLocation("request", request.ID, req.Latitude, req.Longitude)
        if err != nil {
            return err
        }
        request.ExactLocation = exact
        request.Latitude = fLat
        request.Longitude = fLon
        return tx.Save(&request).Error
    })
    if err != nil {
        sendError(w, http.StatusInternalServerError, "Failed to create request", nil)
        return
    }

    h.logAudit(&claims.UserID, "CREATE", "REQUEST", request.Title, r.RemoteAddr, r.UserAgent())

    sendJSON(w, http.StatusCreated, request)
}

func (h *Handlers) CancelRequest(w http.ResponseWriter, r *http.Request) {
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

    var request models.Request
    if err := h.db.First(&request, id).Error; err != nil {
        sendError(w, http.StatusNotFound, "Request not found", nil)
        return
    }
    if request.UserID != claims.UserID {
        sendError(w, http.StatusForbidden, "Only the owner can cancel this request", nil)
        return
    }
    if request.Status == models.PostStatusCompleted || request.Status == models.PostStatusCancelled {
        sendError(w, http.StatusBadRequest, "Request is already closed", nil)
        return
    }

    if err := h.db.Model(&request).Update("status", models.PostStatusCancelled).Error; err != nil {
        sendError(w, http.StatusInternalServerError, "Failed to cancel request", nil)
        return
    }

    h.logAudit(&claims.UserID, "CANCEL", "REQUEST", request.Title, r.RemoteAddr, r.UserAgent())

    sendJSON(w, http.StatusOK, map[string]string{"message": "Request cancelled"})
}
