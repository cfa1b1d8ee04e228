package handlers

import (
    "encoding/json"
    "errors"
    "log"
    "net/http"

    "gorm.io/gorm"

    "thehive-go/models"
    "thehive-go/utils"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
    var req models.RegisterRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        sendError(w, http.StatusBadRequest, "Invalid request body", err.Error())
        return
    }

    if err := utils.ValidateStruct(req); err != nil {
        sendError(w, http.StatusBadRequest, "Validation failed", utils.FormatValidationError(err))
        return
    }

    var existingUser models.User
    if err := h.db.Where("username = ? OR email = ?", req.Username, req.Email).First(&existingUser).Error; err == nil {
        sendError(w, http.StatusConflict, "User already exists", nil)
        return
    }

    hashedPassword, err := utils.HashPassword(req.Password)
    if err != nil {
        sendError(w, http.StatusInternalServerError, "Failed to hash password", nil)
        return
    }

    isAdmin := false
    if req.AdminCode != "" {
        if req.AdminCode != h.config.AdminCode {
            sendError(w, http.StatusBadRequest, "Invalid admin code", nil)
            return
        }
        isAdmin = true
        log.Printf("Admin user registered with admin code: %s", req.Username)
    }

    user := models.User{
        Username: utils.SanitizeString(req.Username),
        Email:    req.Email,
        Password: hashedPassword,
        IsActive: true,
        IsAdmin:  isAdmin,
    }

    // The profile with its starting grant is created in the same transaction
    // as the user: there is never a user without a profile, and the grant is
    // the only Beellar minting in the system.
    err = h.db.Transaction(func(tx *gorm.DB) error {
        if err := tx.Create(&user).Error; err != nil {
            return err
        }
        profile := models.UserProfile{
            UserID:          user.ID,
            IsVisible:       true,
            TimebankBalance: h.config.StartingBalance,
        }
        return tx.Create(&profile).Error
    })
    if err != nil {
        log.Printf("Failed to create user %s: %v", req.Username, err)
        sendError(w, http.StatusInternalServerError, "Failed to create user", nil)
        return
    }

    h.logAudit(&user.ID, "CREATE", "USER", "User registered", r.RemoteAddr, r.UserAgent())

    user.Password = ""
    sendJSON(w, http.StatusCreated, map[string]interface{}{
        "message": "User registered successfully",
        "user":    user,
    })
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
    var req models.LoginRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        sendError(w, http.StatusBadRequest, "Invalid request body", err.Error())
        return
    }

    if err := utils.ValidateStruct(req); err != nil {
        sendError(w, http.StatusBadRequest, "Validation failed", utils.FormatValidationError(err))
        return
    }

    var user models.User
    if err := h.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            sendError(w, http.StatusUnauthorized, "Invalid credentials", nil)
            return
        }
        sendError(w, http.StatusInternalServerError, "Database error", nil)
        return
    }

    if !utils.CheckPasswordHash(req.Password, user.Password) {
        sendError(w, http.StatusUnauthorized, "Invalid credentials", nil)
        return
    }

    if !user.IsActive {
        sendError(w, http.StatusForbidden, "Account is deactivated", nil)
        return
    }

    token, err := utils.GenerateToken(user.ID, user.Username, user.IsAdmin)
    if err != nil {
        log.Printf("Failed to generate token for user %s: %v", req.Username, err)
        sendError(w, http.StatusInternalServerError, "Failed to generate token", nil)
        return
    }

    h.logAudit(&user.ID, "LOGIN", "AUTH", "User logged in", r.RemoteAddr, r.UserAgent())

    user.Password = ""
    sendJSON(w, http.StatusOK, models.LoginResponse{
        Token: token,
        User:  user,
    })
}
