package domain

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
)

// Billing intervals supported by the gateway
const (
	IntervalMonth = "month"
	IntervalYear  = "year"
)

// DefaultCurrency is used when a plan does not specify one
const DefaultCurrency = "usd"

// Plan is a purchasable subscription offering
type Plan struct {
	ID                string    `bson:"_id,omitempty" json:"id"`
	Name              string    `bson:"name" json:"name" validate:"required,max=120"`
	Price             int64     `bson:"price" json:"price" validate:"gt=0"` // Minor currency units (cents)
	Currency          string    `bson:"currency" json:"currency" validate:"omitempty,len=3"`
	Offers            string    `bson:"offers,omitempty" json:"offers,omitempty"`
	Interval          string    `bson:"interval" json:"interval" validate:"required,oneof=month year"`
	IntervalCount     int64     `bson:"interval_count" json:"interval_count" validate:"gte=1"`
	ExternalProductID string    `bson:"external_product_id,omitempty" json:"external_product_id,omitempty"`
	ExternalPriceID   string    `bson:"external_price_id,omitempty" json:"external_price_id,omitempty"`
	CreatedAt         time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at" json:"updated_at"`
}

var planValidator = validator.New()

// Validate checks the plan's catalog fields
func (p *Plan) Validate() error {
	return planValidator.Struct(p)
}

// IsCheckoutReady reports whether the plan carries both gateway identifiers
func (p *Plan) IsCheckoutReady() bool {
	return p.ExternalProductID != "" && p.ExternalPriceID != ""
}

// CurrencyOrDefault returns the plan currency, falling back to DefaultCurrency
func (p *Plan) CurrencyOrDefault() string {
	if p.Currency == "" {
		return DefaultCurrency
	}
	return p.Currency
}

// PlanRepository defines operations for the plan catalog
type PlanRepository interface {
	Create(ctx context.Context, plan *Plan) error
	GetByID(ctx context.Context, id string) (*Plan, error)
	List(ctx context.Context) ([]*Plan, error)
	Update(ctx context.Context, plan *Plan) error
	SetExternalIDs(ctx context.Context, id, productID, priceID string) error
	Delete(ctx context.Context, id string) error
}
