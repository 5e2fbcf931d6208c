package services

import (
	"context"

	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
)

type UserService interface {
	GetInfo(ctx context.Context, userID string) (*models.User, error)
}

type userService struct {
	store repositories.Store
}

func NewUserService(store repositories.Store) UserService {
	return &userService{store: store}
}

// GetInfo returns the user together with their team, if any.
func (s *userService) GetInfo(ctx context.Context, userID string) (*models.User, error) {
	user, team, err := loadActor(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	user.Team = team
	return user, nil
}
