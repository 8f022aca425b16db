package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nutri-hub/shadow-pace/internal/application/command"
	"github.com/nutri-hub/shadow-pace/internal/application/query"
	"github.com/nutri-hub/shadow-pace/internal/domain/notification"
	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.Health.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleDelta(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Delta.Handle(r.Context(), query.GetDeltaQuery{UserID: userID(r.Context())})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetCommit(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.GetCommit.Handle(r.Context(), query.GetCommitQuery{UserID: userID(r.Context())})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type commitResponse struct {
	OK bool `json:"ok"`
	pace.Commit
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Commit.Handle(r.Context(), command.CommitProgressCommand{UserID: userID(r.Context())})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commitResponse{OK: true, Commit: res.Commit})
}

type nudgeResponse struct {
	OK        bool                  `json:"ok"`
	Reason    string                `json:"reason,omitempty"`
	MessageID notification.RecordID `json:"message_id,omitempty"`
	Title     string                `json:"title,omitempty"`
	Body      string                `json:"body,omitempty"`
}

func (s *Server) handleNudge(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Nudge.Handle(r.Context(), command.NudgeCommand{UserID: userID(r.Context())})
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := nudgeResponse{OK: res.Sent, Reason: res.Reason}
	if res.Record != nil {
		out.MessageID = res.Record.ID
		out.Title = res.Record.Title
		out.Body = res.Record.Body
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRunToday(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.RunToday.Handle(r.Context(), command.RunTodayCommand{UserID: userID(r.Context())})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// PACE
// ══════════════════════════════════════════════════════════════════════════════

type adjustResponse struct {
	OK bool `json:"ok"`
	*command.AdjustPaceResult
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Adjust.Handle(r.Context(), command.AdjustPaceCommand{UserID: userID(r.Context())})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, adjustResponse{OK: true, AdjustPaceResult: res})
}

type smoothResponse struct {
	OK bool `json:"ok"`
	*command.SmoothPaceResult
}

func (s *Server) handleSmooth(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Smooth.Handle(r.Context(), command.SmoothPaceCommand{UserID: userID(r.Context())})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, smoothResponse{OK: true, SmoothPaceResult: res})
}

// ══════════════════════════════════════════════════════════════════════════════
// TAUNTS AND INBOX
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleListTaunts(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Taunts.Handle(r.Context(), query.ListTauntsQuery{
		UserID: userID(r.Context()),
		Limit:  intParam(r, "limit"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleMaybeTaunt(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Taunt.Handle(r.Context(), command.MaybeTauntCommand{
		UserID:        userID(r.Context()),
		ForceCritical: flagParam(r, "force") || flagParam(r, "critical"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Inbox.Handle(r.Context(), query.ListInboxQuery{UserID: userID(r.Context())})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENTS, SUMMARIES, STATE
// ══════════════════════════════════════════════════════════════════════════════

type completeResponse struct {
	OK bool `json:"ok"`
	*command.CompleteEventResult
}

func (s *Server) handleCompleteEvent(w http.ResponseWriter, r *http.Request) {
	cmd := command.CompleteEventCommand{
		UserID:     userID(r.Context()),
		InstanceID: chi.URLParam(r, "id"),
	}
	if err := validateStruct(cmd); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Complete.Handle(r.Context(), cmd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, completeResponse{OK: true, CompleteEventResult: res})
}

type weeklyResponse struct {
	OK      bool                `json:"ok"`
	Summary *pace.WeeklySummary `json:"summary"`
}

func (s *Server) handleWeeklySummary(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Weekly.Handle(r.Context(), command.WeeklySummaryCommand{UserID: userID(r.Context())})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, weeklyResponse{OK: true, Summary: res})
}

func (s *Server) handleTodayState(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.TodayState.Handle(r.Context(), query.GetTodayStateQuery{UserID: userID(r.Context())})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.History.Handle(r.Context(), query.GetHistoryQuery{
		UserID: userID(r.Context()),
		Days:   intParam(r, "days"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSpeedHistory(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Speed.Handle(r.Context(), query.GetSpeedHistoryQuery{
		UserID: userID(r.Context()),
		Days:   intParam(r, "days"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// PERSONA MESSAGES
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleLatestMessage(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Latest.Handle(r.Context(), query.LatestMessageQuery{UserID: userID(r.Context())})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type generateRequest struct {
	UserID string `json:"userId" validate:"omitempty,uuid"`
	All    bool   `json:"all"`
	Debug  bool   `json:"debug"`
}

// handleGenerateMessages serves both callers: a session user may target
// only itself; the cron secret may target any user or every profile.
func (s *Server) handleGenerateMessages(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.UserID == "" {
		req.UserID = r.URL.Query().Get("userId")
	}
	req.All = req.All || flagParam(r, "all")
	req.Debug = req.Debug || flagParam(r, "debug")

	ctx := r.Context()
	if !s.hasCronSecret(r) {
		me := userID(ctx)
		switch {
		case me == "":
			writeError(w, r, shared.ErrInvalidSession)
			return
		case req.UserID != "" && req.UserID != me:
			writeError(w, r, shared.ErrCronSecret)
			return
		case req.All:
			writeJSON(w, http.StatusForbidden, errorBody{Error: "Forbidden: all requires cron secret"})
			return
		}
		req.UserID = me
	} else if req.All {
		report, err := s.deps.Batch.PersonaAll(ctx, req.Debug)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
		return
	}

	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Missing userId"})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Batch.PersonaFor(ctx, []string{req.UserID}, req.Debug))
}
