package main

import (
    "log"
    "net/http"

    "thehive-go/config"
    "thehive-go/database"
    "thehive-go/handlers"
    "thehive-go/middleware"
    "thehive-go/utils"

    "github.com/gorilla/mux"
    "github.com/joho/godotenv"
)

func main() {
    // Load environment variables
    if err := godotenv.Load(); err != nil {
        log.Println("No .env file found")
    }

    cfg := config.Load()
    config.ValidateConfig(cfg)

    if err := utils.InitializeEncryption(cfg.EncryptionKey); err != nil {
        log.Fatal("Failed to initialize encryption:", err)
    }

    if err := utils.InitializeJWT(cfg.JWTSecret); err != nil {
        log.Fatal("Failed to initialize JWT:", err)
    }

    db, err := database.Initialize(cfg.DatabaseURL)
    if err != nil {
        log.Fatal("Failed to initialize database:", err)
    }

    h := handlers.NewHandlers(db, cfg)

    r := mux.NewRouter()

    // Apply global middleware
    r.Use(middleware.CORS)
    r.Use(middleware.RateLimit)

    // Public routes
    r.HandleFunc("/api/register", h.Register).Methods("POST")
    r.HandleFunc("/api/login", h.Login).Methods("POST")
    r.HandleFunc("/api/health", h.HealthCheck).Methods("GET")
    r.HandleFunc("/api/offers", h.ListOffers).Methods("GET")
    r.HandleFunc("/api/offers/{id:[0-9]+}", h.GetOffer).Methods("GET")
    r.HandleFunc("/api/requests", h.ListRequests).Methods("GET")
    r.HandleFunc("/api/requests/{id:[0-9]+}", h.GetRequest).Methods("GET")

    // Protected routes
    protected := r.PathPrefix("/api").Subrouter()
    protected.Use(middleware.JWTAuth)

    // Profile routes
    protected.HandleFunc("/profile", h.GetProfile).Methods("GET")
    protected.HandleFunc("/profile", h.UpdateProfile).Methods("PUT")
    protected.HandleFunc("/profiles", h.ListProfiles).Methods("GET")

    // Post routes
    protected.HandleFunc("/offers", h.CreateOffer).Methods("POST")
    protected.HandleFunc("/offers/{id:[0-9]+}/cancel", h.CancelOffer).Methods("PATCH")
    protected.HandleFunc("/requests", h.CreateRequest).Methods("POST")
    protected.HandleFunc("/requests/{id:[0-9]+}/cancel", h.CancelRequest).Methods("PATCH")

    // Handshake routes
    protected.HandleFunc("/handshakes", h.ListHandshakes).Methods("GET")
    protected.HandleFunc("/handshakes", h.ProposeHandshake).Methods("POST")
    protected.HandleFunc("/handshakes/{id:[0-9]+}/accept", h.AcceptHandshake).Methods("PATCH")
    protected.HandleFunc("/handshakes/{id:[0-9]+}/decline", h.DeclineHandshake).Methods("PATCH")
    protected.HandleFunc("/handshakes/{id:[0-9]+}/confirm", h.ConfirmHandshake).Methods("PATCH")

    // Transaction routes
    protected.HandleFunc("/transactions", h.GetTransactions).Methods("GET")

    // Admin routes
    adminRoutes := protected.PathPrefix("/admin").Subrouter()
    adminRoutes.Use(middleware.AdminAuth)
    adminRoutes.HandleFunc("/users", h.GetAllUsers).Methods("GET")
    adminRoutes.HandleFunc("/users/verify", h.VerifyUser).Methods("POST")
    adminRoutes.HandleFunc("/audit-logs", h.GetAuditLogs).Methods("GET")
    adminRoutes.HandleFunc("/offers/{id:[0-9]+}", h.DeleteOffer).Methods("DELETE")
    adminRoutes.HandleFunc("/requests/{id:[0-9]+}", h.DeleteRequest).Methods("DELETE")

    port := cfg.Port
    if port == "" {
        port = "8080"
    }

    log.Printf("Server starting on port %s", port)
    log.Printf("Environment: %s", cfg.Environment)
    if cfg.Environment == "development" {
        log.Printf("Admin Code: %s", cfg.AdminCode)
    }
    log.Fatal(http.ListenAndServe(":"+port, r))
}
