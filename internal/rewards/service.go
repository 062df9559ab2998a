package rewards

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecochamp/ecochamp-backend/pkg/db/models"
	pkgerrors "github.com/ecochamp/ecochamp-backend/pkg/errors"
)

// Service maintains the reward catalog and validates redemptions against it.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Reward, error)
	Update(ctx context.Context, input UpdateInput) (*models.Reward, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Reward, error)
	List(ctx context.Context, includeInactive bool) ([]models.Reward, error)
	ListRedemptions(ctx context.Context, accountID uuid.UUID) ([]models.RewardRedemption, error)

	ValidateRedemption(ctx context.Context, tx *gorm.DB, rewardID uuid.UUID, amount int) (*models.Reward, error)
	RecordRedemption(ctx context.Context, tx *gorm.DB, redemption *models.RewardRedemption) error
}

type service struct {
	repo Repository
}

// CreateInput describes a new catalog item.
type CreateInput struct {
	Name        string
	Description string
	PointCost   int
	Category    string
}

// UpdateInput mutates catalog fields; nil pointers leave fields unchanged.
type UpdateInput struct {
	ID          uuid.UUID
	Name        *string
	Description *string
	PointCost   *int
	Category    *string
	Active      *bool
}

// NewService wires a rewards service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rewards repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Reward, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.PointCost <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "point cost must be positive")
	}

	reward := &models.Reward{
		Name:        input.Name,
		Description: input.Description,
		PointCost:   input.PointCost,
		Category:    input.Category,
		Active:      true,
	}
	if err := s.repo.Create(ctx, reward); err != nil {
		return nil, err
	}
	return reward, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Reward, error) {
	if input.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reward id is required")
	}

	reward, err := s.repo.FindByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reward not found")
		}
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		reward.Name = *input.Name
	}
	if input.Description != nil {
		reward.Description = *input.Description
	}
	if input.PointCost != nil {
		if *input.PointCost <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "point cost must be positive")
		}
		reward.PointCost = *input.PointCost
	}
	if input.Category != nil {
		reward.Category = *input.Category
	}
	if input.Active != nil {
		reward.Active = *input.Active
	}

	if err := s.repo.Update(ctx, reward); err != nil {
		return nil, err
	}
	return reward, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reward id is required")
	}
	reward, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reward not found")
		}
		return nil, err
	}
	return reward, nil
}

func (s *service) List(ctx context.Context, includeInactive bool) ([]models.Reward, error) {
	if includeInactive {
		return s.repo.ListAll(ctx)
	}
	return s.repo.ListActive(ctx)
}

func (s *service) ListRedemptions(ctx context.Context, accountID uuid.UUID) ([]models.RewardRedemption, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	return s.repo.ListRedemptionsByAccount(ctx, accountID)
}

// ValidateRedemption enforces that the reward exists, is active, and that the
// redeemed amount matches its catalog cost exactly.
func (s *service) ValidateRedemption(ctx context.Context, tx *gorm.DB, rewardID uuid.UUID, amount int) (*models.Reward, error) {
	reward, err := s.repo.WithTx(tx).FindByID(ctx, rewardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reward not found")
		}
		return nil, err
	}
	if !reward.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reward is not active")
	}
	if reward.PointCost != amount {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount does not match reward cost").
			WithDetails(map[string]any{
				"point_cost": reward.PointCost,
				"requested":  amount,
			})
	}
	return reward, nil
}

func (s *service) RecordRedemption(ctx context.Context, tx *gorm.DB, redemption *models.RewardRedemption) error {
	return s.repo.WithTx(tx).CreateRedemption(ctx, redemption)
}
