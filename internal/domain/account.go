package domain

import "context"

// Account is the identity record owned by the account service
type Account struct {
	ID    string `bson:"_id,omitempty" json:"id"`
	Email string `bson:"email" json:"email"`
	Name  string `bson:"name" json:"name"`
}

// AccountRepository provides read access to accounts
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*Account, error)
}

// Role constants
const (
	RoleLearner = "learner"
	RoleAdmin   = "admin"
	RoleService = "service"
)
