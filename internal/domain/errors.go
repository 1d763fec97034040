package domain

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotFound  = errors.New("record not found")
	ErrInvalidID = errors.New("invalid id")
)

// Catalog and checkout errors
var (
	ErrPlanNotFound      = fmt.Errorf("plan %w", ErrNotFound)
	ErrPlanNotConfigured = errors.New("plan is not configured with the payment gateway")
	ErrInvalidPlan       = errors.New("invalid plan")
)

// Reconciliation errors
var (
	ErrMissingMetadata          = errors.New("external subscription is missing planId/learnerId metadata")
	ErrMissingSubscription      = errors.New("checkout session carries no subscription")
	ErrSubscriptionNotFound     = fmt.Errorf("subscription %w", ErrNotFound)
	ErrAccountNotFound          = fmt.Errorf("account %w", ErrNotFound)
	ErrDuplicateSubscription    = errors.New("subscription already recorded")
	ErrActiveSubscriptionExists = errors.New("learner already has an active subscription")
	ErrDuplicatePayment         = errors.New("payment already recorded for invoice")
	ErrInvalidPayment           = errors.New("invalid payment")
)

// Gateway errors
var (
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrMalformedEvent   = errors.New("webhook event payload is malformed")
	ErrGateway          = errors.New("payment gateway error")
)
