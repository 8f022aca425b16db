package http

import "net/http"

// ══════════════════════════════════════════════════════════════════════════════
// CRON
// Every handler runs a batch over all eligible users. Per-user failures are
// reported inside the results; only a failed user listing fails the call.
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleCronNightly(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Batch.NightlySmooth(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCronRunToday(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Batch.RunTodayAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCronTaunt(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Batch.TauntAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCronWeekly(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Batch.WeeklyAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCronGenerateEvents(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Batch.GenerateEventsAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
