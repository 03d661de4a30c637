package repository

import (
	"context"

	"github.com/dealerops/compliance-tracker/internal/domain"
)

type UserRepository interface {
	// Upsert records the user, updating the role when a non-empty one is
	// given. An empty role leaves any stored role untouched.
	Upsert(ctx context.Context, id, role string) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
}
