package controllers

import (
	"net/http"

	"github.com/ecochamp/ecochamp-backend/api/responses"
	"github.com/ecochamp/ecochamp-backend/internal/insights"
	"github.com/ecochamp/ecochamp-backend/pkg/logger"
)

// InsightsAnalyze generates AI efficiency recommendations for the caller.
func InsightsAnalyze(svc insights.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		analysis, err := svc.Analyze(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, analysis)
	}
}
