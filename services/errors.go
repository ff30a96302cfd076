package services

import "errors"

// Typed failures returned by the economy services. Handlers map these to
// HTTP statuses; nothing in this package panics on a business rule.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrNotOwner          = errors.New("caller does not own this NFT")
	ErrInvalidState      = errors.New("operation not allowed in current state")
	ErrInsufficientFunds = errors.New("insufficient token balance")
	ErrAlreadyDone       = errors.New("already done")
	ErrConflict          = errors.New("lost a concurrent update race")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidActivity   = errors.New("unknown activity type")
	ErrSelfGift          = errors.New("cannot gift an NFT to yourself")
)
