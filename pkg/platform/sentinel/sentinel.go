package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and the asset ledger return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record or token account does not exist
// - ErrConflict: a record already occupies the deterministic key
// - ErrInsufficientFunds: a debit would take a balance below zero
// - ErrUnauthorizedSigner: the signer or proof cannot move funds out of an account
// - ErrAssetMismatch: source and destination hold different assets
// - ErrOverflow: a credit would exceed the balance domain
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrUnauthorizedSigner = errors.New("unauthorized signer")
	ErrAssetMismatch      = errors.New("asset mismatch")
	ErrOverflow           = errors.New("balance overflow")
)
