package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecochamp/ecochamp-backend/pkg/db/models"
	"github.com/ecochamp/ecochamp-backend/pkg/enums"
	pkgerrors "github.com/ecochamp/ecochamp-backend/pkg/errors"
	"github.com/ecochamp/ecochamp-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RewardValidator checks that a redemption references a live catalog item
// whose cost matches the points being spent.
type RewardValidator interface {
	ValidateRedemption(ctx context.Context, tx *gorm.DB, rewardID uuid.UUID, amount int) (*models.Reward, error)
}

// RedemptionRecorder persists the link between a redeem entry and the reward
// it paid for, inside the same transaction.
type RedemptionRecorder interface {
	RecordRedemption(ctx context.Context, tx *gorm.DB, redemption *models.RewardRedemption) error
}

// Service owns every mutation of an account's point balance. Balances move
// only through Award and Redeem so the cached accounts.points column always
// equals the sum of ledger deltas.
type Service interface {
	Award(ctx context.Context, input AwardInput) (*AwardResult, error)
	Redeem(ctx context.Context, input RedeemInput) (*RedeemResult, error)
	Balance(ctx context.Context, accountID uuid.UUID) (int, error)
	History(ctx context.Context, input HistoryInput) (pagination.Page[models.LedgerEntry], error)
}

type service struct {
	repo        Repository
	tx          txRunner
	rewards     RewardValidator
	redemptions RedemptionRecorder
}

// AwardInput grants points to an account.
type AwardInput struct {
	AccountID   uuid.UUID
	Amount      int
	Description string
}

// AwardResult reports the created entry and the balance after it.
type AwardResult struct {
	Entry   *models.LedgerEntry
	Balance int
}

// RedeemInput spends points, optionally against a reward catalog item.
type RedeemInput struct {
	AccountID   uuid.UUID
	Amount      int
	Description string
	RewardID    *uuid.UUID
}

// RedeemResult reports the created entry, the balance after it, and the
// redemption row when a reward was referenced.
type RedeemResult struct {
	Entry      *models.LedgerEntry
	Balance    int
	Redemption *models.RewardRedemption
}

// HistoryInput filters an account's ledger history.
type HistoryInput struct {
	AccountID uuid.UUID
	Kind      *enums.LedgerEntryKind
	Page      pagination.Params
}

// NewService wires a ledger service with the provided repository and
// transaction runner. Reward dependencies are optional; without them redeem
// requests that reference a reward are rejected.
func NewService(repo Repository, tx txRunner, rewards RewardValidator, redemptions RedemptionRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, rewards: rewards, redemptions: redemptions}, nil
}

func (s *service) Award(ctx context.Context, input AwardInput) (*AwardResult, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}

	var result AwardResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		account, err := lockActiveAccount(ctx, repo, input.AccountID)
		if err != nil {
			return err
		}

		entry := &models.LedgerEntry{
			AccountID:   account.ID,
			Delta:       input.Amount,
			Kind:        enums.LedgerEntryKindEarn,
			Description: input.Description,
		}
		if err := repo.CreateEntry(ctx, entry); err != nil {
			return err
		}

		balance := account.Points + input.Amount
		if err := repo.SetAccountPoints(ctx, account.ID, balance); err != nil {
			return err
		}

		result = AwardResult{Entry: entry, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) Redeem(ctx context.Context, input RedeemInput) (*RedeemResult, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	if input.RewardID != nil && (s.rewards == nil || s.redemptions == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reward redemptions are not enabled")
	}

	var result RedeemResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var reward *models.Reward
		if input.RewardID != nil {
			var err error
			reward, err = s.rewards.ValidateRedemption(ctx, tx, *input.RewardID, input.Amount)
			if err != nil {
				return err
			}
		}

		account, err := lockActiveAccount(ctx, repo, input.AccountID)
		if err != nil {
			return err
		}

		if account.Points < input.Amount {
			return pkgerrors.New(pkgerrors.CodeInsufficientPoints, "insufficient points").
				WithDetails(map[string]any{
					"balance":   account.Points,
					"requested": input.Amount,
				})
		}

		entry := &models.LedgerEntry{
			AccountID:   account.ID,
			Delta:       -input.Amount,
			Kind:        enums.LedgerEntryKindRedeem,
			Description: input.Description,
		}
		if err := repo.CreateEntry(ctx, entry); err != nil {
			return err
		}

		balance := account.Points - input.Amount
		if err := repo.SetAccountPoints(ctx, account.ID, balance); err != nil {
			return err
		}

		result = RedeemResult{Entry: entry, Balance: balance}

		if reward != nil {
			redemption := &models.RewardRedemption{
				AccountID:     account.ID,
				RewardID:      reward.ID,
				LedgerEntryID: entry.ID,
				PointsUsed:    input.Amount,
			}
			if err := s.redemptions.RecordRedemption(ctx, tx, redemption); err != nil {
				return err
			}
			result.Redemption = redemption
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) Balance(ctx context.Context, accountID uuid.UUID) (int, error) {
	if accountID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return 0, err
	}
	return account.Points, nil
}

func (s *service) History(ctx context.Context, input HistoryInput) (pagination.Page[models.LedgerEntry], error) {
	var page pagination.Page[models.LedgerEntry]
	if input.AccountID == uuid.Nil {
		return page, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if input.Kind != nil && !input.Kind.IsValid() {
		return page, pkgerrors.New(pkgerrors.CodeValidation, "invalid entry kind")
	}

	entries, total, err := s.repo.ListByAccount(ctx, input.AccountID, input.Kind, input.Page)
	if err != nil {
		return page, err
	}
	return pagination.NewPage(entries, input.Page.Normalize(), total), nil
}

func lockActiveAccount(ctx context.Context, repo Repository, accountID uuid.UUID) (*models.Account, error) {
	account, err := repo.GetAccountForUpdate(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, err
	}
	if !account.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is deactivated")
	}
	return account, nil
}
