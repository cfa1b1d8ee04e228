package config

import (
    "log"
    "os"
    "strconv"
)

type Config struct {
    DatabaseURL     string
    JWTSecret       string
    EncryptionKey   string
    AdminCode       string
    Port            string
    Environment     string
    StartingBalance int
}

func Load() *Config {
    return &Config{
        DatabaseURL:     getEnv("DATABASE_URL", "thehive.db"),
        JWTSecret:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
        EncryptionKey:   getEnv("ENCRYPTION_KEY", "TheHiveGo2025SecureKey1234567890"),
        AdminCode:       getEnv("ADMIN_CODE", "THEHIVE_ADMIN_2025"),
        Port:            getEnv("PORT", "8080"),
        Environment:     getEnv("ENVIRONMENT", "development"),
        StartingBalance: getEnvInt("STARTING_BALANCE", 3),
    }
}

func getEnv(key, defaultValue string) string {
    if value := os.Getenv(key); value != "" {
        return value
    }
    return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
    if value := os.Getenv(key); value != "" {
        if n, err := strconv.Atoi(value); err == nil {
            return n
        }
        log.Printf("WARNING: %s is not a valid integer, using default %d", key, defaultValue)
    }
    return defaultValue
}

func ValidateConfig(cfg *Config) {
    if len(cfg.EncryptionKey) != 32 {
        log.Fatalf("ENCRYPTION_KEY must be exactly 32 characters, got %d", len(cfg.EncryptionKey))
    }
    if len(cfg.JWTSecret) < 32 {
        log.Printf("WARNING: JWT_SECRET should be at least 32 characters for security")
    }
    if cfg.StartingBalance < 0 {
        log.Fatalf("STARTING_BALANCE must not be negative, got %d", cfg.StartingBalance)
    }
    if cfg.Environment == "production" && cfg.AdminCode == "THEHIVE_ADMIN_2025" {
        log.Printf("WARNING: Change ADMIN_CODE in production environment")
    }
}
