package users

import (
	"context"

	"github.com/dmitrijs2005/sanposhin/internal/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, userID string) (*models.User, error)
	SetFields(ctx context.Context, userID string, fields models.UserFields) error
	IncrementAdventures(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID string) error
}
