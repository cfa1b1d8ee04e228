package timebank

import (
    "errors"
    "fmt"
    "strings"
    "testing"

    "gorm.io/driver/sqlite"
    "gorm.io/gorm"
    "gorm.io/gorm/logger"

    "thehive-go/models"
)

const startingBalance = 3

func newTestDB(t *testing.T) *gorm.DB {
    t.Helper()
    dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
    db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
        Logger: logger.Default.LogMode(logger.Silent),
    })
    if err != nil {
        t.Fatalf("failed to open test database: %v", err)
    }
    err = db.AutoMigrate(
        &models.User{},
        &models.UserProfile{},
        &models.Offer{},
        &models.Request{},
        &models.Handshake{},
        &models.Transaction{},
    )
    if err != nil {
        t.Fatalf("failed to migrate test database: %v", err)
    }
    return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
    t.Helper()
    user := models.User{
        Username: username,
        Email:    username + "@example.com",
        Password: "hashed",
        IsActive: true,
    }
    if err := db.Create(&user).Error; err != nil {
        t.Fatalf("failed to create user %s: %v", username, err)
    }
    profile := models.UserProfile{
        UserID:          user.ID,
        IsVisible:       true,
        TimebankBalance: startingBalance,
    }
    if err := db.Create(&profile).Error; err != nil {
        t.Fatalf("failed to create profile for %s: %v", username, err)
    }
    return &user
}

func createOffer(t *testing.T, db *gorm.DB, owner *models.User, duration, maxParticipants int) *models.Offer {
    t.Helper()
    offer := models.Offer{
        UserID:          owner.ID,
        Title:           "Test Offer",
        DurationHours:   duration,
        MaxParticipants: maxParticipants,
        Status:          models.PostStatusOpen,
    }
    if err := db.Create(&offer).Error; err != nil {
        t.Fatalf("failed to create offer: %v", err)
    }
    return &offer
}

func createRequest(t *testing.T, db *gorm.DB, owner *models.User, duration int) *models.Request {
    t.Helper()
    request := models.Request{
        UserID:        owner.ID,
        Title:         "Test Request",
        DurationHours: duration,
        Status:        models.PostStatusOpen,
    }
    if err := db.Create(&request).Error; err != nil {
        t.Fatalf("failed to create request: %v", err)
    }
    return &request
}

func balanceOf(t *testing.T, db *gorm.DB, userID uint) int {
    t.Helper()
    var profile models.UserProfile
    if err := db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
        t.Fatalf("failed to load profile for user %d: %v", userID, err)
    }
    return profile.TimebankBalance
}

func offerTarget(id uint) models.TargetRef {
    return models.TargetRef{Kind: models.TargetOffer, ID: id}
}

func requestTarget(id uint) models.TargetRef {
    return models.TargetRef{Kind: models.TargetRequest, ID: id}
}

func TestProposeInvalidTarget(t *testing.T) {
    db := newTestDB(t)
    engine := NewEngine(db)
    seeker := createUser(t, db, "seeker")

    _, err := engine.Propose(seeker.ID, models.TargetRef{}, 2)
    if !errors.Is(err, ErrInvalidTarget) {
        t.Fatalf("expected ErrInvalidTarget, got %v", err)
    }

    _, err = engine.Propose(seeker.ID, offerTarget(999), 2)
    if !errors.Is(err, ErrNotFound) {
        t.Fatalf("expected ErrNotFound for missing offer, got %v", err)
    }
}

func TestProposeSelfDealing(t *testing.T) {
    db := newTestDB(t)
    engine := NewEngine(db)
    owner := createUser(t, db, "owner")
    offer := createOffer(t, db, owner, 2, 1)
    request := createRequest(t, db, owner, 2)

    if _, err := engine.Propose(owner.ID, offerTarget(offer.ID), 2); !errors.Is(err, ErrSelfDealing) {
        t.Fatalf("expected ErrSelfDealing on own offer, got %v", err)
    }
    if _, err := engine.Propose(owner.ID, requestTarget(request.ID), 2); !errors.Is(err, ErrSelfDealing) {
        t.Fatalf("expected ErrSelfDealing on own request, got %v", err)
    }
}

func TestProposeCreatesProposedHandshake(t *testing.T) {
    db := newTestDB(t)
    engine := NewEngine(db)
    provider := createUser(t, db, "provider")
    seeker := createUser(t, db, "seeker")
    offer := createOffer(t, db, provider, 2, 1)

    hs, err := engine.Propose(seeker.ID, offerTarget(offer.ID), 0)
    if err != nil {
        t.Fatalf("propose failed: %v", err)
    }
    if hs.Status != models.HandshakeStatusProposed {
        t.Errorf("expected status proposed, got %s", hs.Status)
    }
    if hs.ProviderID != provider.ID {
        t.Errorf("provider should be the offer owner, got %d", hs.ProviderID)
    }
    if hs.Hours != offer.DurationHours {
        t.Errorf("hours should default to offer duration %d, got %d", offer.DurationHours, hs.Hours)
    }
    if hs.ProviderConfirmed || hs.SeekerConfirmed {
        t.Error("new handshake must have both confirmation flags false")
    }

    // Proposing never moves Beellars.
    if got := balanceOf(t, db, seeker.ID); got != startingBalance {
        t.Errorf("seeker balance changed on propose: %d", got)
    }
}

func TestProposeDuplicateActive(t *testing.T) {
    db := newTestDB(t)
    engine := NewEngine(db)
    provider := createUser(t, db, "provider")
    seeker := createUser(t, db, "seeker")
    offer := createOffer(t, db, provider, 2, 5)

    hs, err := engine.Propose(seeker.ID, offerTarget(offer.ID), 2)
    if err != nil {
        t.Fatalf("first propose failed: %v", err)
    }

    if _, err := engine.Propose(seeker.ID, offerTarget(offer.ID), 2); !errors.Is(err, ErrDuplicateActive) {
        t.Fatalf("expected ErrDuplicateActive, got %v", err)
    }

    // A declined handshake no longer blocks a new proposal.
    if _, err := engine.Decline(provider.ID, hs.ID); err != nil {
        t.Fatalf("decline failed: %v", err)
    }
    if _, err := engine.Propose(seeker.ID, offerTarget(offer.ID), 2); err != nil {
        t.Fatalf("propose after decline failed: %v", err)
    }
}

func TestRequestStrictOneToOne(t *testing.T) {
    db := newTestDB(t)
    engine := NewEngine(db)
    owner := createUser(t, db, "owner")
    seeker1 := createUser(t, db, "seeker1")
    seeker2 := createUser(t, db, "seeker2")
    request := createRequest(t, db, owner, 2)

    hs, err := engine.Propose(seeker1.ID, requestTarget(request.ID), 2)
    if err != nil {
        t.Fatalf("first propose failed: %v", err)
    }

    // A different seeker is also blocked while any handshake is live.
    if _, err := engine.Propose(seeker2.ID, requestTarget(request.ID), 2); !errors.Is(err, ErrDuplicateActive) {
        t.Fatalf("expected ErrDuplicateActive for second seeker, got %v", err)
    }

    if _, err := engine.Decline(owner.ID, hs.ID); err != nil {
        t.Fatalf("decline failed: %v", err)
    }
    if _, err := engine.Propose(seeker2.ID, requestTarget(request.ID), 2); err != nil {
        t.Fatalf("propose after decline failed: %v", err)
    }
}

func TestProposeCapacityExceeded(t *testing.T) {
    db := newTestDB(t)
    engine := NewEngine(db)
    provider := createUser(t, db, "provider")
    seeker1 := createUser(t, db, "seeker1")
    seeker2 := createUser(t, db, "seeker2")
    offer := createOffer(t, db, provider, 2, 1)

    hs, err := engine.Propose(seeker1.ID, offerTarget(offer.ID), 2)
    if err != nil {
        t.Fatalf("propose failed: %v", err)
    }
    if _, err := engine.Accept(provider.ID, hs.ID); err != nil {
        t.Fatalf("accept failed: %v", err)
    }

    if _, err := engine.Propose(seeker2.ID, offerTarget(offer.ID), 2); !errors.Is(err, ErrCapacityExceeded) {
        t.Fatalf("expected ErrCapacityExceeded, got %v", err)
    }
}

func TestAcceptAuthorizationAndState(t *testing.T) {
    db := newTestDB(t)
    engine := NewEngine(db)
    provider := createUser(t, db, "provider")
    seeker := createUser(t, db, "seeker")
    offer := createOffer(t, db, provider, 2, 1)

    hs, err := engine.Propose(seeker.ID, offerTarget(offer.ID), 2)
    if err != nil {
        t.Fatalf("propose failed: %v", err)
    }

    if _, err := engine.Accept(seeker.ID, hs.ID); !errors.Is(err, ErrNotProvider) {
        t.Fatalf("expected ErrNotProvider, got %v", err)
    }

    accepted, err := engine.Accept(provider.ID, hs.ID)
    if err != nil {
        t.Fatalf("accept failed: %v", err)
    }
    if accepted.Status != models.HandshakeStatusAccepted {
        t.Errorf("expected status accepted, got %s", accepted.Status)
    }

    // Accepting promotes an open offer to in_progress.
    var reloaded models.Offer
    if err := db.First(&reloaded, offer.ID).Error; err != nil {
        t.Fatalf("failed to reload offer: %v", err)
    }
    if reloaded.Status != models.PostStatusInProgress {
        t.Errorf("expected offer in_progress, got %s", reloaded.Status)
    }

    if _, err := engine.Accept(provider.ID, hs.ID); !errors.Is(err, ErrInvalidState) {
        t.Fatalf("expected ErrInvalidState on second accept, got %v", err)
    }
}

func TestAcceptRechecksCapacityAndCompletedSlotsNeverFree(t *testing.T) {
    db := newTestDB(t)
    engine := NewEngine(db)
    provider := createUser(t, db, "provider")
    seeker1 := createUser(t, db, "seeker1")
    seeker2 := createUser(t, db, "seeker2")
    offer := createOffer(t, db, provider, 2, 1)

    // Both proposals land before any slot is consumed.
    hs1, err := engine.Propose(seeker1.ID, offerTarget(offer.ID), 2)
    if err != nil {
        t.Fatalf("propose 1 failed: %v", err)
    }
    hs2, err := engine.Propose(seeker2.ID, offerTarget(offer.ID), 2)
    if err != nil {
        t.Fatalf("propose 2 failed: %v", err)
    }

    if _, err := engine.Accept(provider.ID, hs1.ID); err != nil {
        t.Fatalf("accept 1 failed: %v", err)
    }
    if _, err := engine.Accept(provider.ID, hs2.ID); !errors.Is(err, ErrCapacityExceeded) {
        t.Fatalf("expected ErrCapacityExceeded at accept time, got %v", err)
    }

    // Complete the first participant; slots are consumed permanently, so the
    // second handshake still cannot be accepted.
    if _, err := engine.Confirm(seeker1.ID, hs1.ID); err != nil {
        t.Fatalf("seeker confirm failed: %v", err)
    }
    if _, err := engine.Confirm(provider.ID, hs1.ID); err != nil {
        t.Fatalf("provider confirm failed: %v", err)
    }
    if _, err := engine.Accept(provider.ID, hs2.ID); !errors.Is(err, ErrCapacityExceeded) {
        t.Fatalf("expected ErrCapacityExceeded after completion, got %v", err)
    }
}

func TestDeclineRules(t *testing.T) {
    db := newTestDB(t)
    engine := NewEngine(db)
    provider := createUser(t, db, "provider")
    seeker := createUser(t, db, "seeker")
    offer := createOffer(t, db, provider, 2, 2)

    hs, err := engine.Propose(seeker.ID, offerTarget(offer.ID), 2)
    if err != nil {
        t.Fatalf("propose failed: %v", err)
    }

    if _, err := engine.Decline(seeker.ID, hs.ID); !errors.Is(err, ErrNotProvider) {
        t.Fatalf("expected ErrNotProvider, got %v", err)
    }

    declined, err := engine.Decline(provider.ID, hs.ID)
    if err != nil {
        t.Fatalf("decline failed: %v", err)
    }
    if declined.Status != models.HandshakeStatusDeclined {
        t.Errorf("expected status declined, got %s", declined.Status)
    }

    // Declined is terminal.
    if _, err := engine.Decline(provider.ID, hs.ID); !errors.Is(err, ErrInvalidState) {
        t.Fatalf("expected ErrInvalidState on re-decline, got %v", err)
    }

    // No currency moved.
    if got := balanceOf(t, db, seeker.ID); got != startingBalance {
        t.Errorf("seeker balance changed on decline: %d", got)
    }
    if got := balanceOf(t, db, provider.ID); got != startingBalance {
        t.Errorf("provider balance changed on decline: %d", got)
    }
}

func TestConfirmGuards(t *testing.T) {
    db := newTestDB(t)
    engine := NewEngine(db)
    provider := createUser(t, db, "provider")
    seeker := createUser(t, db, "seeker")
    outsider := createUser(t, db, "outsider")
    offer := createOffer(t, db, provider, 2, 1)

    hs, err := engine.Propose(seeker.ID, offerTarget(offer.ID), 2)
    if err != nil {
        t.Fatalf("propose failed: %v", err)
    }

    // Cannot confirm a proposal that was never accepted.
    if _, err := engine.Confirm(seeker.ID, hs.ID); !errors.Is(err, ErrInvalidState) {
        t.Fatalf("expected ErrInvalidState on proposed, got %v", err)
    }

    if _, err := engine.Accept(provider.ID, hs.ID); err != nil {
        t.Fatalf("accept failed: %v", err)
    }

    if _, err := engine.Confirm(outsider.ID, hs.ID); !errors.Is(err, ErrNotParticipant) {
        t.Fatalf("expected ErrNotParticipant, got %v", err)
    }

    if _, err := engine.Confirm(seeker.ID, hs.ID); err != nil {
        t.Fatalf("first confirm failed: %v", err)
    }
    if _, err := engine.Confirm(seeker.ID, hs.ID); !errors.Is(err, ErrAlreadyConfirmed) {
        t.Fatalf("expected ErrAlreadyConfirmed, got %v", err)
    }
}

func TestRequestSettlementTransfersHours(t *testing.T) {
    db := newTestDB(t)
    engine := NewEngine(db)
    owner := createUser(t, db, "owner")
    seeker := createUser(t, db, "seeker")
    request := createRequest(t, db, owner, 2)

    hs, err := engine.Propose(seeker.ID, requestTarget(request.ID), 2)
    if err != nil {
        t.Fatalf("propose failed: %v", err)
    }
    if _, err := engine.Accept(owner.ID, hs.ID); err != nil {
        t.Fatalf("accept failed: %v", err)
    }

    if _, err := engine.Confirm(owner.ID, hs.ID); err != nil {
        t.Fatalf("provider confirm failed: %v", err)
    }
    // One-sided confirmation settles nothing.
    if got := balanceOf(t, db, seeker.ID); got != startingBalance {
        t.Errorf("balance moved before dual confirmation: %d", got)
    }

    completed, err := engine.Confirm(seeker.ID, hs.ID)
    if err != nil {
        t.Fatalf("seeker confirm failed: %v", err)
    }
    if completed.Status != models.HandshakeStatusCompleted {
        t.Errorf("expected status completed, got %s", completed.Status)
    }
    if !completed.ProviderConfirmed || !completed.SeekerConfirmed {
        t.Error("completed handshake must have both flags true")
    }

    if got := balanceOf(t, db, seeker.ID); got != startingBalance-2 {
        t.Errorf("seeker balance: expected %d, got %d", startingBalance-2, got)
    }
    if got := balanceOf(t, db, owner.ID); got != startingBalance+2 {
        t.Errorf("provider balance: expected %d, got %d", startingBalance+2, got)
    }

    var entries []models.Transaction
    if err := db.Where("handshake_id = ?", hs.ID).Find(&entries).Error; err != nil {
        t.Fatalf("failed to load transactions: %v", err)
    }
    if len(entries) != 1 {
        t.Fatalf("expected exactly one ledger entry, got %d", len(entries))
    }
    if entries[0].Amount != 2 || entries[0].SenderID != seeker.ID || entries[0].ReceiverID != owner.ID {
        t.Errorf("unexpected ledger entry: %+v", entries[0])
    }

    var reloaded models.Request
    if err := db.First(&reloaded, request.ID).Error; err != nil {
        t.Fatalf("failed to reload request: %v", err)
    }
    if reloaded.Status != models.PostStatusCompleted {
        t.Errorf("expected request completed, got %s", reloaded.Status)
    }

    // Settlement is exactly-once: further confirms are rejected.
    if _, err := engine.Confirm(owner.ID, hs.ID); !errors.Is(err, ErrInvalidState) {
        t.Fatalf("expected ErrInvalidState on confirm after completion, got %v", err)
    }
}

func TestInsufficientBalanceRollsBackConfirmingFlag(t *testing.T) {
    db := newTestDB(t)
    engine := NewEngine(db)
    owner := createUser(t, db, "owner")
    seeker := createUser(t, db, "seeker")
    request := createRequest(t, db, owner, 5) // more than the starting grant

    hs, err := engine.Propose(seeker.ID, requestTarget(request.ID), 5)
    if err != nil {
        t.Fatalf("propose failed: %v", err)
    }
    if _, err := engine.Accept(owner.ID, hs.ID); err != nil {
        t.Fatalf("accept failed: %v", err)
    }
    if _, err := engine.Confirm(owner.ID, hs.ID); err != nil {
        t.Fatalf("provider confirm failed: %v", err)
    }

    // The seeker's confirmation triggers settlement, which must fail and roll
    // back only the flag that was just set.
    if _, err := engine.Confirm(seeker.ID, hs.ID); !errors.Is(err, ErrInsufficientBalance) {
        t.Fatalf("expected ErrInsufficientBalance, got %v", err)
    }

    var reloaded models.Handshake
    if err := db.First(&reloaded, hs.ID).Error; err != nil {
        t.Fatalf("failed to reload handshake: %v", err)
    }
    if reloaded.Status != models.HandshakeStatusAccepted {
        t.Errorf("status should remain accepted, got %s", reloaded.Status)
    }
    if !reloaded.ProviderConfirmed {
        t.Error("provider flag from the earlier confirm must survive")
    }
    if reloaded.SeekerConfirmed {
        t.Error("seeker flag must be rolled back after failed settlement")
    }
    if got := balanceOf(t, db, seeker.ID); got != startingBalance {
        t.Errorf("seeker balance must be unchanged, got %d", got)
    }
    if got := balanceOf(t, db, owner.ID); got != startingBalance {
        t.Errorf("provider balance must be unchanged, got %d", got)
    }

    var count int64
    db.Model(&models.Transaction{}).Where("handshake_id = ?", hs.ID).Count(&count)
    if count != 0 {
        t.Errorf("no ledger entry may exist after failed settlement, got %d", count)
    }

    // After earning more balance the seeker can retry the same confirm.
    if err := db.Model(&models.UserProfile{}).Where("user_id = ?", seeker.ID).
        Update("timebank_balance", 5).Error; err != nil {
        t.Fatalf("failed to top up seeker: %v", err)
    }
    completed, err := engine.Confirm(seeker.ID, hs.ID)
    if err != nil {
        t.Fatalf("retry confirm failed: %v", err)
    }
    if completed.Status != models.HandshakeStatusCompleted {
        t.Errorf("expected completed after retry, got %s", completed.Status)
    }
    if got := balanceOf(t, db, seeker.ID); got != 0 {
        t.Errorf("seeker balance after retry: expected 0, got %d", got)
    }
    if got := balanceOf(t, db, owner.ID); got != startingBalance+5 {
        t.Errorf("provider balance after retry: expected %d, got %d", startingBalance+5, got)
    }
}

// TestGroupOfferSettlement walks the documented group-session scenario:
// an offer with two slots, a third seeker turned away, one Beellar debited per
// participant, and the owner credited only on the first completion.
func TestGroupOfferSettlement(t *testing.T) {
    db := newTestDB(t)
    engine := NewEngine(db)
    provider := createUser(t, db, "provider")
    seeker1 := createUser(t, db, "seeker1")
    seeker2 := createUser(t, db, "seeker2")
    seeker3 := createUser(t, db, "seeker3")
    offer := createOffer(t, db, provider, 3, 2)

    hs1, err := engine.Propose(seeker1.ID, offerTarget(offer.ID), 3)
    if err != nil {
        t.Fatalf("propose 1 failed: %v", err)
    }
    if _, err := engine.Accept(provider.ID, hs1.ID); err != nil {
        t.Fatalf("accept 1 failed: %v", err)
    }

    hs2, err := engine.Propose(seeker2.ID, offerTarget(offer.ID), 3)
    if err != nil {
        t.Fatalf("propose 2 failed: %v", err)
    }
    if _, err := engine.Accept(provider.ID, hs2.ID); err != nil {
        t.Fatalf("accept 2 failed: %v", err)
    }

    if _, err := engine.Propose(seeker3.ID, offerTarget(offer.ID), 3); !errors.Is(err, ErrCapacityExceeded) {
        t.Fatalf("expected ErrCapacityExceeded for third seeker, got %v", err)
    }

    // First participant completes: seeker pays 1, owner is credited 1.
    if _, err := engine.Confirm(seeker1.ID, hs1.ID); err != nil {
        t.Fatalf("seeker1 confirm failed: %v", err)
    }
    if _, err := engine.Confirm(provider.ID, hs1.ID); err != nil {
        t.Fatalf("provider confirm 1 failed: %v", err)
    }
    if got := balanceOf(t, db, seeker1.ID); got != startingBalance-1 {
        t.Errorf("seeker1 balance: expected %d, got %d", startingBalance-1, got)
    }
    if got := balanceOf(t, db, provider.ID); got != startingBalance+1 {
        t.Errorf("provider balance after first completion: expected %d, got %d", startingBalance+1, got)
    }

    // The offer stays open for settlement purposes while hs2 is live.
    var midway models.Offer
    if err := db.First(&midway, offer.ID).Error; err != nil {
        t.Fatalf("failed to reload offer: %v", err)
    }
    if midway.Status == models.PostStatusCompleted {
        t.Error("offer must not complete while a participant is still in progress")
    }

    // Second participant completes: seeker pays 1, owner is NOT credited
    // again, but a ledger entry is still written for the participant.
    if _, err := engine.Confirm(seeker2.ID, hs2.ID); err != nil {
        t.Fatalf("seeker2 confirm failed: %v", err)
    }
    if _, err := engine.Confirm(provider.ID, hs2.ID); err != nil {
        t.Fatalf("provider confirm 2 failed: %v", err)
    }
    if got := balanceOf(t, db, seeker2.ID); got != startingBalance-1 {
        t.Errorf("seeker2 balance: expected %d, got %d", startingBalance-1, got)
    }
    if got := balanceOf(t, db, provider.ID); got != startingBalance+1 {
        t.Errorf("provider balance must not change on second completion, got %d", got)
    }

    var entries []models.Transaction
    if err := db.Order("id").Find(&entries).Error; err != nil {
        t.Fatalf("failed to load ledger: %v", err)
    }
    if len(entries) != 2 {
        t.Fatalf("expected two ledger entries, got %d", len(entries))
    }
    for _, e := range entries {
        if e.Amount != 1 {
            t.Errorf("group offer entries must be 1 Beellar, got %d", e.Amount)
        }
        if e.ReceiverID != provider.ID {
            t.Errorf("entries must name the owner as receiver, got %d", e.ReceiverID)
        }
    }

    // All accepted participants finished, so the offer completes.
    var done models.Offer
    if err := db.First(&done, offer.ID).Error; err != nil {
        t.Fatalf("failed to reload offer: %v", err)
    }
    if done.Status != models.PostStatusCompleted {
        t.Errorf("expected offer completed, got %s", done.Status)
    }
}

// TestLedgerConservation checks that the system stays closed: the sum of all
// balances equals the sum of the starting grants after any mix of exchanges,
// except for the deliberate sink when a group owner is not re-credited.
func TestLedgerConservation(t *testing.T) {
    db := newTestDB(t)
    engine := NewEngine(db)
    owner := createUser(t, db, "owner")
    seeker := createUser(t, db, "seeker")
    request := createRequest(t, db, owner, 3)

    hs, err := engine.Propose(seeker.ID, requestTarget(request.ID), 3)
    if err != nil {
        t.Fatalf("propose failed: %v", err)
    }
    if _, err := engine.Accept(owner.ID, hs.ID); err != nil {
        t.Fatalf("accept failed: %v", err)
    }
    if _, err := engine.Confirm(owner.ID, hs.ID); err != nil {
        t.Fatalf("confirm failed: %v", err)
    }
    if _, err := engine.Confirm(seeker.ID, hs.ID); err != nil {
        t.Fatalf("confirm failed: %v", err)
    }

    total := balanceOf(t, db, owner.ID) + balanceOf(t, db, seeker.ID)
    if total != 2*startingBalance {
        t.Errorf("total balance changed: expected %d, got %d", 2*startingBalance, total)
    }

    // The ledger reconstructs each balance from the starting grant.
    var entries []models.Transaction
    if err := db.Find(&entries).Error; err != nil {
        t.Fatalf("failed to load ledger: %v", err)
    }
    fromLedger := func(userID uint) int {
        b := startingBalance
        for _, e := range entries {
            if e.SenderID == userID {
                b -= e.Amount
            }
            if e.ReceiverID == userID {
                b += e.Amount
            }
        }
        return b
    }
    if got := fromLedger(owner.ID); got != balanceOf(t, db, owner.ID) {
        t.Errorf("ledger replay mismatch for owner: %d", got)
    }
    if got := fromLedger(seeker.ID); got != balanceOf(t, db, seeker.ID) {
        t.Errorf("ledger replay mismatch for seeker: %d", got)
    }
}

func TestProposeOnClosedPostRejected(t *testing.T) {
    db := newTestDB(t)
    engine := NewEngine(db)
    provider := createUser(t, db, "provider")
    seeker := createUser(t, db, "seeker")

    offer := createOffer(t, db, provider, 2, 1)
    if err := db.Model(offer).Update("status", models.PostStatusCancelled).Error; err != nil {
        t.Fatalf("failed to cancel offer: %v", err)
    }
    if _, err := engine.Propose(seeker.ID, offerTarget(offer.ID), 2); !errors.Is(err, ErrInvalidState) {
        t.Fatalf("expected ErrInvalidState on cancelled offer, got %v", err)
    }

    request := createRequest(t, db, provider, 2)
    if err := db.Model(request).Update("status", models.PostStatusCompleted).Error; err != nil {
        t.Fatalf("failed to complete request: %v", err)
    }
    if _, err := engine.Propose(seeker.ID, requestTarget(request.ID), 2); !errors.Is(err, ErrInvalidState) {
        t.Fatalf("expected ErrInvalidState on completed request, got %v", err)
    }
}
