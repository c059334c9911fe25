package shared

import "errors"

// Common errors
var (
	ErrUnrecognized       = errors.New("message could not be mapped to a known intent")
	ErrBelowConfidence    = errors.New("intent confidence below threshold")
	ErrAmbiguousReference = errors.New("entity reference matches multiple candidates")
)

// FailureReason defines command execution failure categories. The value
// reaches the owner as part of the failure reply, so keep them readable.
type FailureReason string

const (
	FailureReasonCustomerNotFound    FailureReason = "CUSTOMER_NOT_FOUND"
	FailureReasonItemNotFound        FailureReason = "ITEM_NOT_FOUND"
	FailureReasonInsufficientStock   FailureReason = "INSUFFICIENT_STOCK"
	FailureReasonCreditLimitExceeded FailureReason = "CREDIT_LIMIT_EXCEEDED"
	FailureReasonInvalidAmount       FailureReason = "INVALID_AMOUNT"
	FailureReasonStaleState          FailureReason = "STALE_STATE" // World changed between approval and execution
	FailureReasonDuplicateCustomer   FailureReason = "DUPLICATE_CUSTOMER"
	FailureReasonDuplicateItem       FailureReason = "DUPLICATE_ITEM"
	FailureReasonCommitFailed        FailureReason = "TRANSACTION_COMMIT_FAILED"
	FailureReasonUnknownError        FailureReason = "UNKNOWN_ERROR"
)

// OutboxStatus defines udhaar ledger publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
