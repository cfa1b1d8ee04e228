package models

import (
    "time"

    "gorm.io/gorm"
)

type User struct {
    ID        uint           `json:"id" gorm:"primaryKey"`
    Username  string         `json:"username" gorm:"uniqueIndex;not null"`
    Email     string         `json:"email" gorm:"uniqueIndex;not null"`
    Password  string         `json:"-" gorm:"not null"`
    IsActive  bool           `json:"is_active" gorm:"default:true"`
    IsAdmin   bool           `json:"is_admin" gorm:"default:false"`
    CreatedAt time.Time      `json:"created_at"`
    UpdatedAt time.Time      `json:"updated_at"`
    DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

    Profile *UserProfile `json:"profile,omitempty" gorm:"foreignKey:UserID"`
}

// UserProfile carries the public half of a user plus their TimeBank balance.
// Exactly one profile exists per user; it is created in the same database
// transaction as the user. The balance never goes negative and is only moved
// by the settlement routine in the timebank package.
type UserProfile struct {
    ID              uint           `json:"id" gorm:"primaryKey"`
    UserID          uint           `json:"user_id" gorm:"uniqueIndex;not null"`
    Bio             string         `json:"bio"`
    Province        string         `json:"province"`
    District        string         `json:"district"`
    IsVisible       bool           `json:"is_visible" gorm:"default:true"`
    EmailVerified   bool           `json:"email_verified" gorm:"default:false"`
    TimebankBalance int            `json:"timebank_balance" gorm:"not null;default:0"`
    CreatedAt       time.Time      `json:"created_at"`
    UpdatedAt       time.Time      `json:"updated_at"`
    DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}

type RegisterRequest struct {
    Username  string `json:"username" validate:"required,min=3,max=30"`
    Email     string `json:"email" validate:"required,email"`
    Password  string `json:"password" validate:"required,min=8"`
    AdminCode string `json:"admin_code,omitempty"` // Optional field for admin registration
}

type LoginRequest struct {
    Username string `json:"username" validate:"required"`
    Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
    Token string `json:"token"`
    User  User   `json:"user"`
}

type UpdateProfileRequest struct {
    Bio       string `json:"bio" validate:"max=500"`
    Province  string `json:"province" validate:"max=100"`
    District  string `json:"district" validate:"max=100"`
    IsVisible *bool  `json:"is_visible,omitempty"`
}
