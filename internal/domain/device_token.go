package domain

import (
	"context"
	"time"
)

// DeviceToken is the push notification token registered for an account
type DeviceToken struct {
	AccountID string    `bson:"account_id" json:"account_id"`
	Token     string    `bson:"token" json:"token"`
	Platform  string    `bson:"platform,omitempty" json:"platform,omitempty"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// DeviceTokenRepository stores one token per account
type DeviceTokenRepository interface {
	Upsert(ctx context.Context, token *DeviceToken) error
	GetByAccountID(ctx context.Context, accountID string) (*DeviceToken, error)
}
