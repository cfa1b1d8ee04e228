package models

import (
    "time"
)

// Transaction is an append-only ledger entry recording one Beellar movement.
// Exactly one is created per completed handshake (one per participant slot for
// group offers). Rows are never updated or deleted; there is deliberately no
// soft-delete column.
type Transaction struct {
    ID                   uint      `json:"id" gorm:"primaryKey"`
    HandshakeID          uint      `json:"handshake_id" gorm:"not null;index"`
    Handshake            Handshake `json:"-" gorm:"foreignKey:HandshakeID"`
    SenderID             uint      `json:"sender_id" gorm:"not null;index"`
    Sender               User      `json:"sender" gorm:"foreignKey:SenderID"`
    ReceiverID           uint      `json:"receiver_id" gorm:"not null;index"`
    Receiver             User      `json:"receiver" gorm:"foreignKey:ReceiverID"`
    Amount               int       `json:"amount" gorm:"not null"`
    SenderBalanceAfter   int       `json:"sender_balance_after" gorm:"not null"`
    ReceiverBalanceAfter int       `json:"receiver_balance_after" gorm:"not null"`
    Reference            string    `json:"reference" gorm:"uniqueIndex;not null"`
    CreatedAt            time.Time `json:"created_at"`
}
