package usage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ecochamp/ecochamp-backend/pkg/db/models"
	"github.com/ecochamp/ecochamp-backend/pkg/enums"
	pkgerrors "github.com/ecochamp/ecochamp-backend/pkg/errors"
)

// Service records metered usage and builds monthly summaries.
type Service interface {
	Record(ctx context.Context, input RecordInput) (*models.UsageRecord, error)
	MonthlySummary(ctx context.Context, accountID uuid.UUID, year, month int) (*Summary, error)
	RecentRecords(ctx context.Context, accountID uuid.UUID, months int) ([]models.UsageRecord, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// RecordInput describes one metered usage row.
type RecordInput struct {
	AccountID  uuid.UUID
	EnergyType enums.EnergyType
	Amount     decimal.Decimal
	Cost       decimal.Decimal
	Unit       string
	UsageDate  time.Time
}

// TypeSummary compares one energy type's usage against the previous month.
type TypeSummary struct {
	EnergyType    enums.EnergyType `json:"energy_type"`
	Current       decimal.Decimal  `json:"current"`
	Previous      decimal.Decimal  `json:"previous"`
	Cost          decimal.Decimal  `json:"cost"`
	Unit          string           `json:"unit"`
	ReductionRate decimal.Decimal  `json:"reduction_rate"`
}

// Summary is the per-type monthly usage report for one account.
type Summary struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Types []TypeSummary `json:"types"`
}

// NewService wires a usage service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("usage repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Record(ctx context.Context, input RecordInput) (*models.UsageRecord, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if !input.EnergyType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid energy type")
	}
	if input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount cannot be negative")
	}
	if input.UsageDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage date is required")
	}

	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		unit = input.EnergyType.DefaultUnit()
	}

	record := &models.UsageRecord{
		AccountID:  input.AccountID,
		EnergyType: input.EnergyType,
		Amount:     input.Amount,
		Cost:       input.Cost,
		Unit:       unit,
		UsageDate:  input.UsageDate,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// MonthlySummary totals usage per energy type for (year, month) and compares
// against the previous month. Reduction is (prev-curr)/prev*100 rounded to one
// decimal; a zero previous month reports zero reduction.
func (s *service) MonthlySummary(ctx context.Context, accountID uuid.UUID, year, month int) (*Summary, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}

	currStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	currEnd := currStart.AddDate(0, 1, 0)
	prevStart := currStart.AddDate(0, -1, 0)

	current, err := s.repo.ListByAccountPeriod(ctx, accountID, currStart, currEnd)
	if err != nil {
		return nil, err
	}
	previous, err := s.repo.ListByAccountPeriod(ctx, accountID, prevStart, currStart)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Year: year, Month: month}
	for _, energyType := range enums.EnergyTypes() {
		curr, cost, unit := totalFor(current, energyType)
		prev, _, prevUnit := totalFor(previous, energyType)
		if unit == "" {
			unit = prevUnit
		}
		if unit == "" {
			unit = energyType.DefaultUnit()
		}

		summary.Types = append(summary.Types, TypeSummary{
			EnergyType:    energyType,
			Current:       curr,
			Previous:      prev,
			Cost:          cost,
			Unit:          unit,
			ReductionRate: reductionRate(prev, curr),
		})
	}
	return summary, nil
}

func (s *service) RecentRecords(ctx context.Context, accountID uuid.UUID, months int) ([]models.UsageRecord, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if months <= 0 {
		months = 6
	}
	since := s.now().UTC().AddDate(0, -months, 0)
	return s.repo.ListByAccountSince(ctx, accountID, since)
}

func totalFor(records []models.UsageRecord, energyType enums.EnergyType) (amount, cost decimal.Decimal, unit string) {
	for _, record := range records {
		if record.EnergyType != energyType {
			continue
		}
		amount = amount.Add(record.Amount)
		cost = cost.Add(record.Cost)
		if unit == "" {
			unit = record.Unit
		}
	}
	return amount, cost, unit
}

func reductionRate(prev, curr decimal.Decimal) decimal.Decimal {
	if prev.IsZero() || prev.IsNegative() {
		return decimal.Zero
	}
	return prev.Sub(curr).
		Div(prev).
		Mul(decimal.NewFromInt(100)).
		Round(1)
}

func validatePeriod(year, month int) error {
	if year < 2000 || year > 2200 {
		return pkgerrors.New(pkgerrors.CodeValidation, "year out of range")
	}
	if month < 1 || month > 12 {
		return pkgerrors.New(pkgerrors.CodeValidation, "month out of range")
	}
	return nil
}
