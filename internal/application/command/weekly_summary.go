package command

import (
	"context"
	"fmt"
	"time"

	"github.com/nutri-hub/shadow-pace/internal/application/race"
	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
	"github.com/nutri-hub/shadow-pace/pkg/logger"
	"github.com/nutri-hub/shadow-pace/pkg/timeutil"
)

// WeeklySummaryCommand rolls up the current week of one user.
type WeeklySummaryCommand struct {
	UserID string
}

// WeeklySummaryHandler handles the WeeklySummaryCommand.
type WeeklySummaryHandler struct {
	resolver  *race.Resolver
	progress  pace.ProgressRepository
	summaries pace.SummaryRepository
	now       func() time.Time
	log       *logger.Logger
}

// NewWeeklySummaryHandler creates a new WeeklySummaryHandler.
func NewWeeklySummaryHandler(
	resolver *race.Resolver,
	progress pace.ProgressRepository,
	summaries pace.SummaryRepository,
	log *logger.Logger,
) *WeeklySummaryHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &WeeklySummaryHandler{
		resolver:  resolver,
		progress:  progress,
		summaries: summaries,
		now:       time.Now,
		log:       log.With(logger.Component("weekly_summary")),
	}
}

// WithClock overrides the time source.
func (h *WeeklySummaryHandler) WithClock(now func() time.Time) *WeeklySummaryHandler {
	h.now = now
	return h
}

// Handle summarizes the Monday..Sunday week containing today in the
// user's zone.
func (h *WeeklySummaryHandler) Handle(ctx context.Context, cmd WeeklySummaryCommand) (*pace.WeeklySummary, error) {
	if cmd.UserID == "" {
		return nil, shared.ErrMissingUser
	}
	loc, err := h.resolver.Location(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	start, end := timeutil.WeekRange(h.now(), loc)
	return h.Summarize(ctx, cmd.UserID, start, end)
}

// Summarize recomputes and stores the summary of [weekStart, weekEnd].
// Running it twice over the same rows stores the same row.
func (h *WeeklySummaryHandler) Summarize(ctx context.Context, userID, weekStart, weekEnd string) (*pace.WeeklySummary, error) {
	rows, err := h.progress.DailyBetween(ctx, userID, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("weekly_summary: load rows: %w", err)
	}

	summary := pace.Rollup(userID, weekStart, weekEnd, rows)
	if err := h.summaries.Upsert(ctx, summary); err != nil {
		return nil, fmt.Errorf("weekly_summary: upsert: %w", err)
	}

	h.log.Debug("week summarized",
		logger.UserID(userID),
		logger.String("week_start", weekStart),
		logger.Int("days", len(rows)),
		logger.Float64("carryover", summary.Carryover),
	)
	return &summary, nil
}
