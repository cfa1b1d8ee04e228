package models

import (
    "time"

    "gorm.io/gorm"
)

// Handshake status values. A handshake starts proposed, the provider moves it
// to accepted or declined, and dual confirmation settles it to completed.
// in_progress is equivalent to accepted for settlement purposes.
const (
    HandshakeStatusProposed   = "proposed"
    HandshakeStatusAccepted   = "accepted"
    HandshakeStatusInProgress = "in_progress"
    HandshakeStatusCompleted  = "completed"
    HandshakeStatusDeclined   = "declined"
)

// Handshake links exactly one of {offer, request} to a provider (the post
// owner) and a seeker (the initiator). Both foreign keys are nullable at the
// storage level; the timebank engine enforces the exactly-one invariant and
// all callers go through Target().
type Handshake struct {
    ID                uint           `json:"id" gorm:"primaryKey"`
    OfferID           *uint          `json:"offer_id" gorm:"index"`
    Offer             *Offer         `json:"offer,omitempty" gorm:"foreignKey:OfferID"`
    RequestID         *uint          `json:"request_id" gorm:"index"`
    Request           *Request       `json:"request,omitempty" gorm:"foreignKey:RequestID"`
    ProviderID        uint           `json:"provider_id" gorm:"not null;index"`
    Provider          User           `json:"provider" gorm:"foreignKey:ProviderID"`
    SeekerID          uint           `json:"seeker_id" gorm:"not null;index"`
    Seeker            User           `json:"seeker" gorm:"foreignKey:SeekerID"`
    Hours             int            `json:"hours" gorm:"not null"`
    Status            string         `json:"status" gorm:"not null;default:proposed"`
    ProviderConfirmed bool           `json:"provider_confirmed" gorm:"not null;default:false"`
    SeekerConfirmed   bool           `json:"seeker_confirmed" gorm:"not null;default:false"`
    CreatedAt         time.Time      `json:"created_at"`
    UpdatedAt         time.Time      `json:"updated_at"`
    DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`
}

// TargetKind discriminates the post a handshake was proposed against.
type TargetKind string

const (
    TargetOffer   TargetKind = "offer"
    TargetRequest TargetKind = "request"
)

// TargetRef is the tagged-union view of a handshake's target.
type TargetRef struct {
    Kind TargetKind
    ID   uint
}

// Target returns the handshake's target as a tagged union, and false when the
// row violates the exactly-one invariant.
func (h *Handshake) Target() (TargetRef, bool) {
    if h.OfferID != nil && h.RequestID == nil {
        return TargetRef{Kind: TargetOffer, ID: *h.OfferID}, true
    }
    if h.RequestID != nil && h.OfferID == nil {
        return TargetRef{Kind: TargetRequest, ID: *h.RequestID}, true
    }
    return TargetRef{}, false
}

// IsParticipant reports whether the user is the provider or seeker.
func (h *Handshake) IsParticipant(userID uint) bool {
    return userID == h.ProviderID || userID == h.SeekerID
}

type ProposeHandshakeRequest struct {
    OfferID   *uint `json:"offer_id"`
    RequestID *uint `json:"request_id"`
    Hours     int   `json:"hours" validate:"omitempty,min=1,max=24"`
}
