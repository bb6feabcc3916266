package transaction

import (
	"errors"
	"fmt"

	domain "github.com/Zhima-Mochi/storefront/internal/domain/transaction"
	"github.com/Zhima-Mochi/storefront/internal/pkg/apperr"
)

func wrapRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case apperr.KindOf(err) != apperr.KindUnknown:
		return err
	case errors.Is(err, domain.ErrNotFound):
		return apperr.Wrap(apperr.KindNotFound, "transaction not found", err)
	case errors.Is(err, domain.ErrConflict):
		return apperr.Conflict("transaction already exists", err)
	default:
		return apperr.Transient("transaction repository", err)
	}
}

func newValidation(msg string) error {
	return apperr.Validation("%s", msg)
}

func notOwner(callerID, ownerID int64) error {
	return apperr.Authorization("user %d may not act on transactions of user %d", callerID, ownerID)
}

func invalidTransition(err error, status domain.Status) error {
	return apperr.Conflict(fmt.Sprintf("transaction is %s", status), err)
}
