package domain

import "errors"

var (
	// Lookup failures
	ErrProductNotFound = errors.New("product not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrUserNotFound    = errors.New("user not found")

	// Purchase policy conflicts
	ErrAlreadyPurchased      = errors.New("product already purchased")
	ErrAlreadyPurchasedToday = errors.New("product already purchased within the last 24h")
	ErrPreviousStepUnpaid    = errors.New("previous ladder step not paid")
	ErrAlreadySettled        = errors.New("payment already settled")
	ErrNotSettled            = errors.New("payment is not in a paid state")

	// Validation
	ErrInvalidProductType = errors.New("invalid product type")
	ErrUnknownPricingRule = errors.New("no pricing rule for product slug")
	ErrInvalidPayload     = errors.New("invalid invoice payload")
	ErrInvalidArgument    = errors.New("invalid argument")

	// Integrity (security-relevant, logged at higher severity)
	ErrAmountMismatch = errors.New("submitted amount does not match current price")

	// Infrastructure
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid transaction handle")
)

// Kind buckets errors for transport mapping (HTTP status, decline reasons).
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindIntegrity  Kind = "integrity"
	KindInternal   Kind = "internal"
)

// KindOf classifies an error into its taxonomy bucket. Unknown errors are
// internal: they must never leak storage details to callers.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrPaymentNotFound),
		errors.Is(err, ErrUserNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyPurchased),
		errors.Is(err, ErrAlreadyPurchasedToday),
		errors.Is(err, ErrPreviousStepUnpaid),
		errors.Is(err, ErrAlreadySettled),
		errors.Is(err, ErrNotSettled):
		return KindConflict
	case errors.Is(err, ErrInvalidProductType),
		errors.Is(err, ErrUnknownPricingRule),
		errors.Is(err, ErrInvalidPayload),
		errors.Is(err, ErrInvalidArgument):
		return KindValidation
	case errors.Is(err, ErrAmountMismatch):
		return KindIntegrity
	default:
		return KindInternal
	}
}

// ReasonOf returns a short machine-safe reason string for an error. These are
// the codes surfaced to the mini-app and to the payment provider's decline
// message, so they must stay stable.
func ReasonOf(err error) string {
	switch {
	case errors.Is(err, ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, ErrPaymentNotFound):
		return "payment_not_found"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrAlreadyPurchased):
		return "already_purchased"
	case errors.Is(err, ErrAlreadyPurchasedToday):
		return "already_purchased_today"
	case errors.Is(err, ErrPreviousStepUnpaid):
		return "previous_step_unpaid"
	case errors.Is(err, ErrAlreadySettled):
		return "already_settled"
	case errors.Is(err, ErrNotSettled):
		return "not_settled"
	case errors.Is(err, ErrInvalidProductType):
		return "invalid_product_type"
	case errors.Is(err, ErrUnknownPricingRule):
		return "unknown_pricing_rule"
	case errors.Is(err, ErrInvalidPayload):
		return "invalid_payload"
	case errors.Is(err, ErrAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	default:
		return "internal_error"
	}
}
