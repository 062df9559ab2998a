package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecochamp/ecochamp-backend/api/responses"
	"github.com/ecochamp/ecochamp-backend/api/validators"
	"github.com/ecochamp/ecochamp-backend/internal/usage"
	"github.com/ecochamp/ecochamp-backend/pkg/enums"
	"github.com/ecochamp/ecochamp-backend/pkg/logger"
)

type usageRecordRequest struct {
	EnergyType enums.EnergyType `json:"energy_type" validate:"required"`
	Amount     decimal.Decimal  `json:"amount" validate:"required"`
	Cost       decimal.Decimal  `json:"cost"`
	Unit       string           `json:"unit"`
	UsageDate  time.Time        `json:"usage_date" validate:"required"`
}

// UsageRecord stores one usage reading for the calling account.
func UsageRecord(svc usage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body usageRecordRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Record(r.Context(), usage.RecordInput{
			AccountID:  accountID,
			EnergyType: body.EnergyType,
			Amount:     body.Amount,
			Cost:       body.Cost,
			Unit:       body.Unit,
			UsageDate:  body.UsageDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

// UsageSummary serves the caller's per-type monthly summary.
func UsageSummary(svc usage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		year, month, err := periodFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.MonthlySummary(r.Context(), accountID, year, month)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
