package rewards

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecochamp/ecochamp-backend/pkg/db/models"
)

// Repository manages the reward catalog and redemption records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, reward *models.Reward) error
	Update(ctx context.Context, reward *models.Reward) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Reward, error)
	ListActive(ctx context.Context) ([]models.Reward, error)
	ListAll(ctx context.Context) ([]models.Reward, error)
	CreateRedemption(ctx context.Context, redemption *models.RewardRedemption) error
	ListRedemptionsByAccount(ctx context.Context, accountID uuid.UUID) ([]models.RewardRedemption, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a rewards repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, reward *models.Reward) error {
	if reward.ID == uuid.Nil {
		reward.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(reward).Error
}

func (r *repository) Update(ctx context.Context, reward *models.Reward) error {
	return r.db.WithContext(ctx).Save(reward).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	var reward models.Reward
	if err := r.db.WithContext(ctx).First(&reward, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reward, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.Reward, error) {
	var rewards []models.Reward
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("point_cost ASC").
		Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}

func (r *repository) ListAll(ctx context.Context) ([]models.Reward, error) {
	var rewards []models.Reward
	if err := r.db.WithContext(ctx).
		Order("point_cost ASC").
		Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}

func (r *repository) CreateRedemption(ctx context.Context, redemption *models.RewardRedemption) error {
	if redemption.ID == uuid.Nil {
		redemption.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(redemption).Error
}

func (r *repository) ListRedemptionsByAccount(ctx context.Context, accountID uuid.UUID) ([]models.RewardRedemption, error) {
	var redemptions []models.RewardRedemption
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&redemptions).Error; err != nil {
		return nil, err
	}
	return redemptions, nil
}
