package quota

import (
	"errors"

	"github.com/ctenarsky-denik/journal/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

// WriteError renders ledger errors with their HTTP mapping. It reports false
// when err is not a ledger error and nothing was written.
func WriteError(c *gin.Context, err error) bool {
	var entitlement *EntitlementError
	var exhausted *QuotaExhaustedError
	switch {
	case errors.As(err, &entitlement):
		response.UpgradeRequired(c, entitlement.Error(), string(entitlement.Feature), string(entitlement.Required))
	case errors.As(err, &exhausted):
		response.PaymentRequired(c, "you have used all AI credits for this period", exhausted.Remaining, exhausted.Total)
	case errors.Is(err, ErrInvalidReceipt):
		response.BadRequest(c, ErrInvalidReceipt.Error())
	case errors.Is(err, ErrAccountNotFound):
		response.NotFoundMsg(c, ErrAccountNotFound.Error())
	default:
		return false
	}
	return true
}
