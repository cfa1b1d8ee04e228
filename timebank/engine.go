// Package timebank implements the handshake lifecycle and the Beellar
// settlement that runs when both sides of an exchange confirm completion.
//
// Every operation executes inside a single database transaction and re-reads
// the handshake row with an update lock before mutating it, so two concurrent
// confirms cannot both observe "other side not yet confirmed" and settle the
// same handshake twice. A failed settlement returns an error out of the
// transaction, which rolls back the just-set confirmation flag; the caller can
// retry later.
package timebank

import (
    "errors"
    "fmt"

    "github.com/google/uuid"
    "gorm.io/gorm"

    "thehive-go/models"
)

type Engine struct {
    db *gorm.DB
}

func NewEngine(db *gorm.DB) *Engine {
    return &Engine{db: db}
}

// Propose opens a handshake from a seeker against someone else's offer or
// request. The post owner becomes the provider. Hours default to the post's
// duration when the seeker does not specify them.
func (e *Engine) Propose(seekerID uint, target models.TargetRef, hours int) (*models.Handshake, error) {
    var created models.Handshake

    err := e.db.Transaction(func(tx *gorm.DB) error {
        switch target.Kind {
        case models.TargetOffer:
            var offer models.Offer
            if err := lockForUpdate(tx).First(&offer, target.ID).Error; err != nil {
                if errors.Is(err, gorm.ErrRecordNotFound) {
                    return ErrNotFound
                }
                return fmt.Errorf("failed to load offer: %w", err)
            }
            if offer.UserID == seekerID {
                return ErrSelfDealing
            }
            if offer.Status == models.PostStatusCompleted || offer.Status == models.PostStatusCancelled {
                return ErrInvalidState
            }

            var dup int64
            if err := tx.Model(&models.Handshake{}).
                Where("offer_id = ? AND seeker_id = ? AND status <> ?",
                    offer.ID, seekerID, models.HandshakeStatusDeclined).
                Count(&dup).Error; err != nil {
                return fmt.Errorf("failed to check existing handshakes: %w", err)
            }
            if dup > 0 {
                return ErrDuplicateActive
            }

            count, err := acceptedParticipantCount(tx, offer.ID)
            if err != nil {
                return err
            }
            if count >= int64(offer.MaxParticipants) {
                return ErrCapacityExceeded
            }

            if hours <= 0 {
                hours = offer.DurationHours
            }
            created = models.Handshake{
                OfferID:    &offer.ID,
                ProviderID: offer.UserID,
                SeekerID:   seekerID,
                Hours:      hours,
                Status:     models.HandshakeStatusProposed,
            }

        case models.TargetRequest:
            var request models.Request
            if err := lockForUpdate(tx).First(&request, target.ID).Error; err != nil {
                if errors.Is(err, gorm.ErrRecordNotFound) {
                    return ErrNotFound
                }
                return fmt.Errorf("failed to load request: %w", err)
            }
            if request.UserID == seekerID {
                return ErrSelfDealing
            }
            if request.Status == models.PostStatusCompleted || request.Status == models.PostStatusCancelled {
                return ErrInvalidState
            }

            // Requests are strictly one-to-one: any live handshake blocks a
            // new proposal regardless of who opened it.
            var active int64
            if err := tx.Model(&models.Handshake{}).
                Where("request_id = ? AND status IN ?", request.ID, activeStatuses()).
                Count(&active).Error; err != nil {
                return fmt.Errorf("failed to check existing handshakes: %w", err)
            }
            if active > 0 {
                return ErrDuplicateActive
            }

            if hours <= 0 {
                hours = request.DurationHours
            }
            created = models.Handshake{
                RequestID:  &request.ID,
                ProviderID: request.UserID,
                SeekerID:   seekerID,
                Hours:      hours,
                Status:     models.HandshakeStatusProposed,
            }

        default:
            return ErrInvalidTarget
        }

        if err := tx.Create(&created).Error; err != nil {
            return fmt.Errorf("failed to create handshake: %w", err)
        }
        return nil
    })
    if err != nil {
        return nil, err
    }
    return &created, nil
}

// Accept moves a proposed handshake to accepted. Only the provider may
// accept, and offer capacity is re-checked inside the transaction because the
// proposal could predate the slot that filled the offer.
func (e *Engine) Accept(providerID, handshakeID uint) (*models.Handshake, error) {
    var hs models.Handshake

    err := e.db.Transaction(func(tx *gorm.DB) error {
        if err := lockForUpdate(tx).First(&hs, handshakeID).Error; err != nil {
            if errors.Is(err, gorm.ErrRecordNotFound) {
                return ErrNotFound
            }
            return fmt.Errorf("failed to load handshake: %w", err)
        }
        if hs.ProviderID != providerID {
            return ErrNotProvider
        }
        if hs.Status != models.HandshakeStatusProposed {
            return ErrInvalidState
        }

        target, ok := hs.Target()
        if !ok {
            return ErrInvalidTarget
        }

        if target.Kind == models.TargetOffer {
            var offer models.Offer
            if err := lockForUpdate(tx).First(&offer, target.ID).Error; err != nil {
                return fmt.Errorf("failed to load offer: %w", err)
            }
            count, err := acceptedParticipantCount(tx, offer.ID)
            if err != nil {
                return err
            }
            if count >= int64(offer.MaxParticipants) {
                return ErrCapacityExceeded
            }
            if offer.Status == models.PostStatusOpen {
                if err := tx.Model(&offer).Update("status", models.PostStatusInProgress).Error; err != nil {
                    return fmt.Errorf("failed to update offer status: %w", err)
                }
            }
        } else {
            var request models.Request
            if err := lockForUpdate(tx).First(&request, target.ID).Error; err != nil {
                return fmt.Errorf("failed to load request: %w", err)
            }
            if request.Status == models.PostStatusOpen {
                if err := tx.Model(&request).Update("status", models.PostStatusInProgress).Error; err != nil {
                    return fmt.Errorf("failed to update request status: %w", err)
                }
            }
        }

        hs.Status = models.HandshakeStatusAccepted
        if err := tx.Save(&hs).Error; err != nil {
            return fmt.Errorf("failed to save handshake: %w", err)
        }
        return nil
    })
    if err != nil {
        return nil, err
    }
    return &hs, nil
}

// Decline terminates a handshake with no currency effect. Only the provider
// may decline, and only before completion.
func (e *Engine) Decline(providerID, handshakeID uint) (*models.Handshake, error) {
    var hs models.Handshake

    err := e.db.Transaction(func(tx *gorm.DB) error {
        if err := lockForUpdate(tx).First(&hs, handshakeID).Error; err != nil {
            if errors.Is(err, gorm.ErrRecordNotFound) {
                return ErrNotFound
            }
            return fmt.Errorf("failed to load handshake: %w", err)
        }
        if hs.ProviderID != providerID {
            return ErrNotProvider
        }
        if hs.Status != models.HandshakeStatusProposed && hs.Status != models.HandshakeStatusAccepted {
            return ErrInvalidState
        }

        hs.Status = models.HandshakeStatusDeclined
        if err := tx.Save(&hs).Error; err != nil {
            return fmt.Errorf("failed to save handshake: %w", err)
        }
        return nil
    })
    if err != nil {
        return nil, err
    }
    return &hs, nil
}

// Confirm records one participant's completion confirmation. When the second
// flag flips, settlement runs in the same transaction: a settlement failure
// rolls the flag back with everything else.
func (e *Engine) Confirm(actorID, handshakeID uint) (*models.Handshake, error) {
    var hs models.Handshake

    err := e.db.Transaction(func(tx *gorm.DB) error {
        if err := lockForUpdate(tx).First(&hs, handshakeID).Error; err != nil {
            if errors.Is(err, gorm.ErrRecordNotFound) {
                return ErrNotFound
            }
            return fmt.Errorf("failed to load handshake: %w", err)
        }
        if !hs.IsParticipant(actorID) {
            return ErrNotParticipant
        }
        if hs.Status != models.HandshakeStatusAccepted && hs.Status != models.HandshakeStatusInProgress {
            return ErrInvalidState
        }

        switch actorID {
        case hs.ProviderID:
            if hs.ProviderConfirmed {
                return ErrAlreadyConfirmed
            }
            hs.ProviderConfirmed = true
        case hs.SeekerID:
            if hs.SeekerConfirmed {
                return ErrAlreadyConfirmed
            }
            hs.SeekerConfirmed = true
        }

        if hs.ProviderConfirmed && hs.SeekerConfirmed {
            if err := e.settle(tx, &hs); err != nil {
                return err
            }
            hs.Status = models.HandshakeStatusCompleted
        }

        if err := tx.Save(&hs).Error; err != nil {
            return fmt.Errorf("failed to save handshake: %w", err)
        }

        if hs.Status == models.HandshakeStatusCompleted {
            if err := e.closeTarget(tx, &hs); err != nil {
                return err
            }
        }
        return nil
    })
    if err != nil {
        return nil, err
    }
    return &hs, nil
}

// settle moves Beellars for a dually-confirmed handshake.
//
// Request-backed handshakes transfer the full agreed hours from seeker to
// provider. Offer-backed handshakes debit exactly one Beellar per participant
// regardless of hours, and the owner is credited only on the first completed
// participant so a group session never pays the owner once per head; every
// participant still gets their own ledger entry.
func (e *Engine) settle(tx *gorm.DB, hs *models.Handshake) error {
    target, ok := hs.Target()
    if !ok {
        return ErrInvalidTarget
    }

    amount := hs.Hours
    creditProvider := true
    if target.Kind == models.TargetOffer {
        amount = 1
        var completed int64
        if err := tx.Model(&models.Handshake{}).
            Where("offer_id = ? AND status = ? AND id <> ?",
                target.ID, models.HandshakeStatusCompleted, hs.ID).
            Count(&completed).Error; err != nil {
            return fmt.Errorf("failed to count completed participants: %w", err)
        }
        creditProvider = completed == 0
    }

    return e.move(tx, hs, amount, creditProvider)
}

// move is the only code path that mutates timebank balances. It locks both
// profiles in ID order, enforces non-negativity, and appends the ledger entry
// in the same transaction as the balance writes.
func (e *Engine) move(tx *gorm.DB, hs *models.Handshake, amount int, creditReceiver bool) error {
    var seeker, provider models.UserProfile

    first, second := hs.SeekerID, hs.ProviderID
    firstDst, secondDst := &seeker, &provider
    if hs.ProviderID < hs.SeekerID {
        first, second = hs.ProviderID, hs.SeekerID
        firstDst, secondDst = &provider, &seeker
    }
    if err := lockForUpdate(tx).Where("user_id = ?", first).First(firstDst).Error; err != nil {
        return fmt.Errorf("failed to lock profile: %w", err)
    }
    if err := lockForUpdate(tx).Where("user_id = ?", second).First(secondDst).Error; err != nil {
        return fmt.Errorf("failed to lock profile: %w", err)
    }

    if seeker.TimebankBalance < amount {
        return ErrInsufficientBalance
    }

    seeker.TimebankBalance -= amount
    if creditReceiver {
        provider.TimebankBalance += amount
    }

    if err := tx.Model(&seeker).Update("timebank_balance", seeker.TimebankBalance).Error; err != nil {
        return fmt.Errorf("failed to update seeker balance: %w", err)
    }
    if creditReceiver {
        if err := tx.Model(&provider).Update("timebank_balance", provider.TimebankBalance).Error; err != nil {
            return fmt.Errorf("failed to update provider balance: %w", err)
        }
    }

    entry := models.Transaction{
        HandshakeID:          hs.ID,
        SenderID:             hs.SeekerID,
        ReceiverID:           hs.ProviderID,
        Amount:               amount,
        SenderBalanceAfter:   seeker.TimebankBalance,
        ReceiverBalanceAfter: provider.TimebankBalance,
        Reference:            uuid.New().String(),
    }
    if err := tx.Create(&entry).Error; err != nil {
        return fmt.Errorf("failed to create ledger entry: %w", err)
    }
    return nil
}

// closeTarget finishes the parent post once its obligations are satisfied. A
// request completes with its single handshake; an offer completes only when no
// handshake on it remains accepted or in progress.
func (e *Engine) closeTarget(tx *gorm.DB, hs *models.Handshake) error {
    target, ok := hs.Target()
    if !ok {
        return ErrInvalidTarget
    }

    if target.Kind == models.TargetRequest {
        if err := tx.Model(&models.Request{}).Where("id = ?", target.ID).
            Update("status", models.PostStatusCompleted).Error; err != nil {
            return fmt.Errorf("failed to complete request: %w", err)
        }
        return nil
    }

    var open int64
    if err := tx.Model(&models.Handshake{}).
        Where("offer_id = ? AND status IN ?", target.ID,
            []string{models.HandshakeStatusAccepted, models.HandshakeStatusInProgress}).
        Count(&open).Error; err != nil {
        return fmt.Errorf("failed to count open handshakes: %w", err)
    }
    if open == 0 {
        if err := tx.Model(&models.Offer{}).Where("id = ?", target.ID).
            Update("status", models.PostStatusCompleted).Error; err != nil {
            return fmt.Errorf("failed to complete offer: %w", err)
        }
    }
    return nil
}

// acceptedParticipantCount counts handshakes occupying a slot on an offer.
// Completed handshakes still count: a slot is consumed permanently once
// accepted, matching the source behavior for group cohorts.
func acceptedParticipantCount(tx *gorm.DB, offerID uint) (int64, error) {
    var count int64
    err := tx.Model(&models.Handshake{}).
        Where("offer_id = ? AND status IN ?", offerID, []string{
            models.HandshakeStatusAccepted,
            models.HandshakeStatusInProgress,
            models.HandshakeStatusCompleted,
        }).
        Count(&count).Error
    if err != nil {
        return 0, fmt.Errorf("failed to count participants: %w", err)
    }
    return count, nil
}

func activeStatuses() []string {
    return []string{
        models.HandshakeStatusProposed,
        models.HandshakeStatusAccepted,
        models.HandshakeStatusInProgress,
    }
}

func lockForUpdate(tx *gorm.DB) *gorm.DB {
    return tx.Set("gorm:query_option", "FOR UPDATE")
}
