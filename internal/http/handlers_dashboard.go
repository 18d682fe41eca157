package http

import (
	"net/http"

	"spender/internal/log"
)

// handleDashboard returns the month's total and per-category breakdown.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	month, err := parseMonth(r)
	if err != nil {
		errorFor(err).Write(w)
		return
	}

	overview, err := s.dashboard.AggregateMonth(r.Context(), userID, month)
	if err != nil {
		s.logFailure(r, "Failed to aggregate month", err, log.OpAggregate,
			log.NewFields().WithUser(userID))
		errorFor(err).Write(w)
		return
	}

	NewJSONResponse().Body(toDashboardResponse(overview)).Write(w)
}
