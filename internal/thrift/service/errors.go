package service

import (
	"errors"

	dErrors "ahorro/pkg/domain-errors"
	"ahorro/pkg/platform/sentinel"
)

// translate maps store and ledger sentinels onto coded errors. Errors that
// already carry a code pass through unchanged.
func translate(err error, msg string) error {
	if err == nil {
		return nil
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, msg+": not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, msg+": already exists")
	case errors.Is(err, sentinel.ErrInsufficientFunds):
		return dErrors.New(dErrors.CodeInsufficientFunds, msg+": insufficient funds")
	case errors.Is(err, sentinel.ErrUnauthorizedSigner):
		return dErrors.New(dErrors.CodeUnauthorized, msg+": signer does not own the source account")
	case errors.Is(err, sentinel.ErrAssetMismatch):
		return dErrors.New(dErrors.CodeAssetMismatch, msg+": asset mismatch")
	case errors.Is(err, sentinel.ErrOverflow):
		return dErrors.New(dErrors.CodeArithmeticOverflow, msg+": balance overflow")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
