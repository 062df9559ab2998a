package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ecochamp/ecochamp-backend/api/middleware"
	"github.com/ecochamp/ecochamp-backend/api/responses"
	"github.com/ecochamp/ecochamp-backend/api/validators"
	"github.com/ecochamp/ecochamp-backend/internal/ledger"
	"github.com/ecochamp/ecochamp-backend/internal/rewards"
	"github.com/ecochamp/ecochamp-backend/pkg/db/models"
	"github.com/ecochamp/ecochamp-backend/pkg/enums"
	pkgerrors "github.com/ecochamp/ecochamp-backend/pkg/errors"
	"github.com/ecochamp/ecochamp-backend/pkg/logger"
	"github.com/ecochamp/ecochamp-backend/pkg/pagination"
)

func accountIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.AccountIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid account identity")
	}
	return id, nil
}

const descriptionMaxLen = 255

type awardRequest struct {
	Amount      int    `json:"amount" validate:"required,min=1"`
	Description string `json:"description" validate:"required"`
}

type redeemRequest struct {
	Amount      int        `json:"amount" validate:"required,min=1"`
	Description string     `json:"description" validate:"required"`
	RewardID    *uuid.UUID `json:"reward_id,omitempty"`
}

type entryResponse struct {
	Entry   *models.LedgerEntry `json:"entry"`
	Balance int                 `json:"balance"`
}

type redeemResponse struct {
	Entry      *models.LedgerEntry      `json:"entry"`
	Balance    int                      `json:"balance"`
	Redemption *models.RewardRedemption `json:"redemption,omitempty"`
}

// PointsBalance returns the caller's current balance.
func PointsBalance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.Balance(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"balance": balance})
	}
}

// PointsHistory lists the caller's ledger entries, most recent first.
func PointsHistory(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var kind *enums.LedgerEntryKind
		if raw := r.URL.Query().Get("kind"); raw != "" {
			parsed := enums.LedgerEntryKind(raw)
			kind = &parsed
		}

		page, err := svc.History(r.Context(), ledger.HistoryInput{
			AccountID: accountID,
			Kind:      kind,
			Page:      pagination.FromRequest(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// PointsAward grants points to the calling account.
func PointsAward(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body awardRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Award(r.Context(), ledger.AwardInput{
			AccountID:   accountID,
			Amount:      body.Amount,
			Description: validators.SanitizeString(body.Description, descriptionMaxLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entryResponse{
			Entry:   result.Entry,
			Balance: result.Balance,
		})
	}
}

// PointsRedeem spends points, optionally against a reward.
func PointsRedeem(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body redeemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Redeem(r.Context(), ledger.RedeemInput{
			AccountID:   accountID,
			Amount:      body.Amount,
			Description: validators.SanitizeString(body.Description, descriptionMaxLen),
			RewardID:    body.RewardID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, redeemResponse{
			Entry:      result.Entry,
			Balance:    result.Balance,
			Redemption: result.Redemption,
		})
	}
}

// RewardsList returns active catalog items ordered by ascending cost.
func RewardsList(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context(), false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// PointsRedemptions lists the caller's reward redemptions, most recent first.
func PointsRedemptions(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		redemptions, err := svc.ListRedemptions(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, redemptions)
	}
}

type createRewardRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	PointCost   int    `json:"point_cost" validate:"required,min=1"`
	Category    string `json:"category"`
}

type updateRewardRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	PointCost   *int    `json:"point_cost,omitempty"`
	Category    *string `json:"category,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// AdminRewardsList returns the full catalog, inactive items included.
func AdminRewardsList(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context(), true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// AdminRewardCreate adds a catalog item.
func AdminRewardCreate(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createRewardRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reward, err := svc.Create(r.Context(), rewards.CreateInput{
			Name:        validators.SanitizeString(body.Name, descriptionMaxLen),
			Description: validators.SanitizeString(body.Description, descriptionMaxLen),
			PointCost:   body.PointCost,
			Category:    validators.SanitizeString(body.Category, descriptionMaxLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, reward)
	}
}

// AdminRewardUpdate patches catalog fields, including deactivation.
func AdminRewardUpdate(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rewardID, err := uuid.Parse(chi.URLParam(r, "rewardId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "invalid reward id"))
			return
		}

		var body updateRewardRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reward, err := svc.Update(r.Context(), rewards.UpdateInput{
			ID:          rewardID,
			Name:        body.Name,
			Description: body.Description,
			PointCost:   body.PointCost,
			Category:    body.Category,
			Active:      body.Active,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reward)
	}
}
