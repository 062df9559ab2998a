package controllers

import (
	"net/http"
	"time"

	"github.com/ecochamp/ecochamp-backend/api/responses"
	"github.com/ecochamp/ecochamp-backend/api/validators"
	"github.com/ecochamp/ecochamp-backend/internal/rankings"
	"github.com/ecochamp/ecochamp-backend/pkg/logger"
)

const leaderboardLimit = 100

// periodFromRequest reads the optional month/year query params, defaulting to
// the current UTC period.
func periodFromRequest(r *http.Request) (int, int, error) {
	now := time.Now().UTC()
	year, err := validators.ParseQueryInt(r, "year", now.Year(), 2000, 2200)
	if err != nil {
		return 0, 0, err
	}
	month, err := validators.ParseQueryInt(r, "month", int(now.Month()), 1, 12)
	if err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

// RankingsIndividual serves the individual leaderboard for a period.
func RankingsIndividual(svc rankings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, month, err := periodFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.Individual(r.Context(), year, month, leaderboardLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

// RankingsDepartment serves the department leaderboard for a period.
func RankingsDepartment(svc rankings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, month, err := periodFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		departments, err := svc.Departments(r.Context(), year, month)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, departments)
	}
}

// RankingsMe reports the caller's standing within a period.
func RankingsMe(svc rankings.Service, logg *logger.Logger) http.HandlerFunc {
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

		position, err := svc.Position(r.Context(), accountID, year, month)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, position)
	}
}

// RankingsAchievements lists the caller's badges.
func RankingsAchievements(svc rankings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		achievements, err := svc.Achievements(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, achievements)
	}
}

// AdminRankingsRecompute rebuilds the snapshots for a period on demand.
func AdminRankingsRecompute(svc rankings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, month, err := periodFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Recompute(r.Context(), year, month)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
