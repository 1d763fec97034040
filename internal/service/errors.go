package service

import (
	"errors"

	"github.com/mansoorceksport/elearning-billing/internal/domain"
)

// ErrorClass groups errors by how the webhook boundary must react to them
type ErrorClass int

const (
	// ClassNone means no error
	ClassNone ErrorClass = iota
	// ClassConfiguration is a setup problem (plan without gateway ids); never retried
	ClassConfiguration
	// ClassIntegrity is data the service cannot reconcile; acknowledged and surfaced to operators
	ClassIntegrity
	// ClassIdempotent is a replay of work already done; treated as success
	ClassIdempotent
	// ClassTransient is a storage or gateway failure; the processor should retry
	ClassTransient
	// ClassSignature is an unauthenticated or undecodable payload; rejected
	ClassSignature
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassConfiguration:
		return "configuration"
	case ClassIntegrity:
		return "integrity"
	case ClassIdempotent:
		return "idempotent"
	case ClassTransient:
		return "transient"
	case ClassSignature:
		return "signature"
	}
	return "unknown"
}

// Classify maps an error onto the webhook error taxonomy
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, domain.ErrInvalidSignature), errors.Is(err, domain.ErrMalformedEvent):
		return ClassSignature
	case errors.Is(err, domain.ErrPlanNotConfigured):
		return ClassConfiguration
	case errors.Is(err, domain.ErrDuplicatePayment),
		errors.Is(err, domain.ErrDuplicateSubscription),
		errors.Is(err, domain.ErrActiveSubscriptionExists):
		return ClassIdempotent
	case errors.Is(err, domain.ErrMissingMetadata),
		errors.Is(err, domain.ErrMissingSubscription),
		errors.Is(err, domain.ErrSubscriptionNotFound),
		errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrPlanNotFound),
		errors.Is(err, domain.ErrInvalidPayment):
		return ClassIntegrity
	}
	return ClassTransient
}
