package handlers

import (
    "encoding/json"
    "errors"
    "net/http"
    "time"

    "gorm.io/gorm"

    "thehive-go/config"
    "thehive-go/models"
    "thehive-go/timebank"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
    Status    int         `json:"status"`
    Error     string      `json:"error"`
    Details   interface{} `json:"details,omitempty"`
    Timestamp time.Time   `json:"timestamp"`
}

func sendError(w http.ResponseWriter, status int, err string, details interface{}) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    json.NewEncoder(w).Encode(ErrorResponse{
        Status:    status,
        Error:     err,
        Details:   details,
        Timestamp: time.Now(),
    })
}

func sendJSON(w http.ResponseWriter, status int, payload interface{}) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    json.NewEncoder(w).Encode(payload)
}

type Handlers struct {
    db     *gorm.DB
    config *config.Config
    engine *timebank.Engine
}

func NewHandlers(db *gorm.DB, cfg *config.Config) *Handlers {
    return &Handlers{
        db:     db,
        config: cfg,
        engine: timebank.NewEngine(db),
    }
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
    sendJSON(w, http.StatusOK, map[string]interface{}{
        "status":    "healthy",
        "timestamp": time.Now(),
        "service":   "TheHive",
        "version":   "1.0.0",
    })
}

func (h *Handlers) logAudit(userID *uint, action, resource, details, ipAddress, userAgent string) {
    audit := models.AuditLog{
        UserID:    userID,
        Action:    action,
        Resource:  resource,
        Details:   details,
        IPAddress: ipAddress,
        UserAgent: userAgent,
    }
    h.db.Create(&audit)
}

// sendEngineError maps timebank business-rule errors onto HTTP statuses.
func sendEngineError(w http.ResponseWriter, err error) {
    switch {
    case errors.Is(err, timebank.ErrNotFound):
        sendError(w, http.StatusNotFound, err.Error(), nil)
    case errors.Is(err, timebank.ErrNotProvider),
        errors.Is(err, timebank.ErrNotParticipant):
        sendError(w, http.StatusForbidden, err.Error(), nil)
    case errors.Is(err, timebank.ErrDuplicateActive),
        errors.Is(err, timebank.ErrAlreadyConfirmed):
        sendError(w, http.StatusConflict, err.Error(), nil)
    case errors.Is(err, timebank.ErrInvalidTarget),
        errors.Is(err, timebank.ErrSelfDealing),
        errors.Is(err, timebank.ErrCapacityExceeded),
        errors.Is(err, timebank.ErrInvalidState),
        errors.Is(err, timebank.ErrInsufficientBalance):
        sendError(w, http.StatusBadRequest, err.Error(), nil)
    default:
        sendError(w, http.StatusInternalServerError, "Internal server error", err.Error())
    }
}
