package timebank

import "errors"

// Business-rule errors returned by the engine. Every rule violation maps to
// one of these so HTTP handlers can translate them without string matching.
var (
    ErrNotFound            = errors.New("handshake or post not found")
    ErrInvalidTarget       = errors.New("exactly one of offer_id or request_id must be set")
    ErrSelfDealing         = errors.New("cannot open a handshake on your own post")
    ErrDuplicateActive     = errors.New("an active handshake already exists for this post")
    ErrCapacityExceeded    = errors.New("offer has no participant slots left")
    ErrNotProvider         = errors.New("only the provider can perform this action")
    ErrNotParticipant      = errors.New("you are not part of this handshake")
    ErrInvalidState        = errors.New("handshake is not in a valid state for this action")
    ErrAlreadyConfirmed    = errors.New("you have already confirmed this handshake")
    ErrInsufficientBalance = errors.New("insufficient Beellar balance")
)
