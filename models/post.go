package models

import (
    "time"

    "gorm.io/gorm"
)

// Post status values shared by offers and requests.
const (
    PostStatusOpen       = "open"
    PostStatusInProgress = "in_progress"
    PostStatusCompleted  = "completed"
    PostStatusCancelled  = "cancelled"
)

// Offer is a service someone is willing to provide. Offers may run as group
// sessions: MaxParticipants caps how many seekers can occupy a slot, and a
// slot stays occupied once a handshake is accepted, even after completion.
type Offer struct {
    ID              uint           `json:"id" gorm:"primaryKey"`
    UserID          uint           `json:"user_id" gorm:"not null;index"`
    User            User           `json:"user" gorm:"foreignKey:UserID"`
    Title           string         `json:"title" gorm:"not null"`
    Description     string         `json:"description"`
    Category        string         `json:"category"`
    DurationHours   int            `json:"duration_hours" gorm:"not null;default:1"`
    Date            *time.Time     `json:"date"`
    Tags            string         `json:"tags"` // comma-separated
    Latitude        float64        `json:"latitude"`
    Longitude       float64        `json:"longitude"`
    ExactLocation   string         `json:"-"` // encrypted true coordinates
    MaxParticipants int            `json:"max_participants" gorm:"not null;default:1"`
    Status          string         `json:"status" gorm:"not null;default:open"`
    CreatedAt       time.Time      `json:"created_at"`
    UpdatedAt       time.Time      `json:"updated_at"`
    DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}

// Request is a service someone needs. Unlike offers, requests are strictly
// one-to-one: at most one non-declined handshake can exist on a request.
type Request struct {
    ID            uint           `json:"id" gorm:"primaryKey"`
    UserID        uint           `json:"user_id" gorm:"not null;index"`
    User          User           `json:"user" gorm:"foreignKey:UserID"`
    Title         string         `json:"title" gorm:"not null"`
    Description   string         `json:"description"`
    Category      string         `json:"category"`
    DurationHours int            `json:"duration_hours" gorm:"not null;default:1"`
    Date          *time.Time     `json:"date"`
    Tags          string         `json:"tags"` // comma-separated
    Latitude      float64        `json:"latitude"`
    Longitude     float64        `json:"longitude"`
    ExactLocation string         `json:"-"` // encrypted true coordinates
    Status        string         `json:"status" gorm:"not null;default:open"`
    CreatedAt     time.Time      `json:"created_at"`
    UpdatedAt     time.Time      `json:"updated_at"`
    DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

type CreateOfferRequest struct {
    Title           string     `json:"title" validate:"required,min=3,max=100"`
    Description     string     `json:"description" validate:"max=2000"`
    Category        string     `json:"category" validate:"max=50"`
    DurationHours   int        `json:"duration_hours" validate:"required,min=1,max=24"`
    Date            *time.Time `json:"date"`
    Tags            string     `json:"tags" validate:"max=200"`
    Latitude        float64    `json:"latitude" validate:"min=-90,max=90"`
    Longitude       float64    `json:"longitude" validate:"min=-180,max=180"`
    MaxParticipants int        `json:"max_participants" validate:"required,min=1,max=50"`
}

type CreateRequestRequest struct {
    Title         string     `json:"title" validate:"required,min=3,max=100"`
    Description   string     `json:"description" validate:"max=2000"`
    Category      string     `json:"category" validate:"max=50"`
    DurationHours int        `json:"duration_hours" validate:"required,min=1,max=24"`
    Date          *time.Time `json:"date"`
    Tags          string     `json:"tags" validate:"max=200"`
    Latitude      float64    `json:"latitude" validate:"min=-90,max=90"`
    Longitude     float64    `json:"longitude" validate:"min=-180,max=180"`
}
