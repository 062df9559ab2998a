package insights

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecochamp/ecochamp-backend/pkg/config"
	"github.com/ecochamp/ecochamp-backend/pkg/db/models"
	"github.com/ecochamp/ecochamp-backend/pkg/enums"
	pkgerrors "github.com/ecochamp/ecochamp-backend/pkg/errors"
)

type stubUsageReader struct {
	records []models.UsageRecord
	err     error
}

func (s *stubUsageReader) RecentRecords(ctx context.Context, accountID uuid.UUID, months int) ([]models.UsageRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func usageHistory() []models.UsageRecord {
	accountID := uuid.New()
	return []models.UsageRecord{
		{
			AccountID:  accountID,
			EnergyType: enums.EnergyTypeElectricity,
			Amount:     decimal.NewFromInt(200),
			Unit:       "kWh",
			UsageDate:  time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			AccountID:  accountID,
			EnergyType: enums.EnergyTypeGas,
			Amount:     decimal.NewFromFloat(42.5),
			Unit:       "m3",
			UsageDate:  time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		},
	}
}

func newTestCompleter(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(config.OpenAIConfig{
		APIKey:  "test-key",
		Model:   "gpt-4",
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	})
	return client, server
}

func TestAnalyzeBuildsPromptAndReturnsRecommendations(t *testing.T) {
	var captured chatRequest
	client, _ := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "Turn off monitors overnight."}},
			},
		})
	})

	svc, err := NewService(&stubUsageReader{records: usageHistory()}, client)
	require.NoError(t, err)

	analysis, err := svc.Analyze(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, "Turn off monitors overnight.", analysis.Recommendations)
	assert.Equal(t, "gpt-4", analysis.Model)
	assert.Equal(t, 6, analysis.MonthsAnalyzed)

	assert.Equal(t, "gpt-4", captured.Model)
	require.Len(t, captured.Messages, 2)
	prompt := captured.Messages[1].Content
	assert.Contains(t, prompt, "2025-02: electricity 200.0 kWh")
	assert.Contains(t, prompt, "2025-03: gas 42.5 m3")
}

func TestAnalyzeRequiresConfiguredKey(t *testing.T) {
	client := NewClient(config.OpenAIConfig{Model: "gpt-4", BaseURL: "http://localhost:0"})
	svc, err := NewService(&stubUsageReader{records: usageHistory()}, client)
	require.NoError(t, err)

	_, err = svc.Analyze(context.Background(), uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
}

func TestAnalyzeRequiresUsageHistory(t *testing.T) {
	client, _ := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no HTTP call expected")
	})
	svc, err := NewService(&stubUsageReader{}, client)
	require.NoError(t, err)

	_, err = svc.Analyze(context.Background(), uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestAnalyzeSurfacesProviderErrors(t *testing.T) {
	client, _ := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limited, slow down"},
		})
	})
	svc, err := NewService(&stubUsageReader{records: usageHistory()}, client)
	require.NoError(t, err)

	_, err = svc.Analyze(context.Background(), uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
	assert.Equal(t, "rate limited, slow down", typed.Message())
}
