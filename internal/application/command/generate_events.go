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

// GenerateEventsCommand plans today's shadow schedule for one user.
type GenerateEventsCommand struct {
	UserID string
}

// GenerateEventsResult reports how many windows were new.
type GenerateEventsResult struct {
	Date     string `json:"date"`
	Planned  int    `json:"planned"`
	Inserted int    `json:"inserted"`
}

// GenerateEventsHandler handles the GenerateEventsCommand.
type GenerateEventsHandler struct {
	resolver *race.Resolver
	schedule pace.ScheduleRepository
	now      func() time.Time
	log      *logger.Logger
}

// NewGenerateEventsHandler creates a new GenerateEventsHandler.
func NewGenerateEventsHandler(resolver *race.Resolver, schedule pace.ScheduleRepository, log *logger.Logger) *GenerateEventsHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &GenerateEventsHandler{
		resolver: resolver,
		schedule: schedule,
		now:      time.Now,
		log:      log.With(logger.Component("generate_events")),
	}
}

// WithClock overrides the time source.
func (h *GenerateEventsHandler) WithClock(now func() time.Time) *GenerateEventsHandler {
	h.now = now
	return h
}

// Handle plans the user's local today and inserts the missing windows.
// Running it twice on the same day inserts nothing the second time.
func (h *GenerateEventsHandler) Handle(ctx context.Context, cmd GenerateEventsCommand) (*GenerateEventsResult, error) {
	if cmd.UserID == "" {
		return nil, shared.ErrMissingUser
	}

	loc, err := h.resolver.Location(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	day := timeutil.LocalDate(h.now(), loc)

	tasks, err := h.schedule.ActiveShadowTasks(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("generate_events: %w", err)
	}
	plan, err := pace.PlanDay(tasks, day, loc)
	if err != nil {
		return nil, fmt.Errorf("generate_events: %w", err)
	}

	inserted, err := h.schedule.InsertMissingInstances(ctx, cmd.UserID, plan)
	if err != nil {
		return nil, fmt.Errorf("generate_events: %w", err)
	}

	h.log.Debug("shadow schedule planned",
		logger.UserID(cmd.UserID),
		logger.Day(day),
		logger.Int("planned", len(plan)),
		logger.Int("inserted", inserted),
	)
	return &GenerateEventsResult{Date: day, Planned: len(plan), Inserted: inserted}, nil
}
