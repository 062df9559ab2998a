package insights

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ecochamp/ecochamp-backend/pkg/db/models"
	"github.com/ecochamp/ecochamp-backend/pkg/enums"
	pkgerrors "github.com/ecochamp/ecochamp-backend/pkg/errors"
)

const historyMonths = 6

// UsageReader supplies the usage history the prompt is built from.
type UsageReader interface {
	RecentRecords(ctx context.Context, accountID uuid.UUID, months int) ([]models.UsageRecord, error)
}

// Completer generates a chat completion. Satisfied by *Client.
type Completer interface {
	Configured() bool
	Model() string
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// Analysis is the AI recommendation produced for one account.
type Analysis struct {
	Recommendations string    `json:"recommendations"`
	Model           string    `json:"model"`
	MonthsAnalyzed  int       `json:"months_analyzed"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// Service turns recent usage into efficiency recommendations.
type Service interface {
	Analyze(ctx context.Context, accountID uuid.UUID) (*Analysis, error)
}

type service struct {
	usage UsageReader
	ai    Completer
	now   func() time.Time
}

// NewService wires the insights service.
func NewService(usage UsageReader, ai Completer) (Service, error) {
	if usage == nil {
		return nil, fmt.Errorf("usage reader required")
	}
	if ai == nil {
		return nil, fmt.Errorf("completer required")
	}
	return &service{usage: usage, ai: ai, now: time.Now}, nil
}

func (s *service) Analyze(ctx context.Context, accountID uuid.UUID) (*Analysis, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if !s.ai.Configured() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "AI insights are not configured")
	}

	records, err := s.usage.RecentRecords(ctx, accountID, historyMonths)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no usage history to analyze")
	}

	content, err := s.ai.Complete(ctx, []ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildUsagePrompt(records)},
	})
	if err != nil {
		return nil, err
	}

	return &Analysis{
		Recommendations: content,
		Model:           s.ai.Model(),
		MonthsAnalyzed:  historyMonths,
		GeneratedAt:     s.now().UTC(),
	}, nil
}

const systemPrompt = "You are an energy-efficiency advisor for office employees. " +
	"Given monthly gas, electricity and water usage, suggest three concrete, " +
	"practical ways to reduce consumption. Keep suggestions short and specific."

type monthKey struct {
	year  int
	month time.Month
}

// buildUsagePrompt renders the usage history as one line per month and type,
// oldest month first.
func buildUsagePrompt(records []models.UsageRecord) string {
	totals := map[monthKey]map[enums.EnergyType]float64{}
	units := map[enums.EnergyType]string{}
	for _, record := range records {
		key := monthKey{year: record.UsageDate.Year(), month: record.UsageDate.Month()}
		if totals[key] == nil {
			totals[key] = map[enums.EnergyType]float64{}
		}
		amount, _ := record.Amount.Float64()
		totals[key][record.EnergyType] += amount
		if record.Unit != "" {
			units[record.EnergyType] = record.Unit
		}
	}

	keys := make([]monthKey, 0, len(totals))
	for key := range totals {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	var b strings.Builder
	b.WriteString("My energy usage over the last months:\n")
	for _, key := range keys {
		fmt.Fprintf(&b, "%d-%02d:", key.year, int(key.month))
		for _, energyType := range enums.EnergyTypes() {
			amount, ok := totals[key][energyType]
			if !ok {
				continue
			}
			unit := units[energyType]
			if unit == "" {
				unit = energyType.DefaultUnit()
			}
			fmt.Fprintf(&b, " %s %.1f %s,", energyType, amount, unit)
		}
		b.WriteString("\n")
	}
	b.WriteString("How can I reduce my consumption?")
	return b.String()
}
