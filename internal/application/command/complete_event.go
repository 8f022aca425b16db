package command

import (
	"context"
	"fmt"
	"time"

	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
	"github.com/nutri-hub/shadow-pace/pkg/logger"
)

// CompleteEventCommand marks one shadow task instance completed.
type CompleteEventCommand struct {
	UserID     string
	InstanceID string `validate:"required"`
}

// CompleteEventResult is returned after the alignment entry is written.
type CompleteEventResult struct {
	ID              string               `json:"id"`
	Status          string               `json:"status"`
	AlignmentStatus pace.AlignmentStatus `json:"alignment_status"`
}

// CompleteEventHandler handles the CompleteEventCommand.
type CompleteEventHandler struct {
	activity pace.ActivityRepository
	now      func() time.Time
	log      *logger.Logger
}

// NewCompleteEventHandler creates a new CompleteEventHandler.
func NewCompleteEventHandler(activity pace.ActivityRepository, log *logger.Logger) *CompleteEventHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CompleteEventHandler{
		activity: activity,
		now:      time.Now,
		log:      log.With(logger.Component("complete_event")),
	}
}

// WithClock overrides the time source.
func (h *CompleteEventHandler) WithClock(now func() time.Time) *CompleteEventHandler {
	h.now = now
	return h
}

// Handle executes the complete event command.
// Instances owned by another user are reported as shared.ErrEventForbidden.
func (h *CompleteEventHandler) Handle(ctx context.Context, cmd CompleteEventCommand) (*CompleteEventResult, error) {
	if cmd.UserID == "" {
		return nil, shared.ErrMissingUser
	}
	if cmd.InstanceID == "" {
		return nil, shared.ErrEventNotFound
	}

	inst, err := h.activity.GetInstance(ctx, cmd.InstanceID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, shared.ErrEventNotFound
	}
	if inst.OwnerUserID != cmd.UserID {
		return nil, shared.ErrEventForbidden
	}

	now := h.now()
	if err := h.activity.CompleteInstance(ctx, inst.ID, now); err != nil {
		return nil, fmt.Errorf("complete_event: %w", err)
	}

	status := pace.Classify(now, inst.PlannedStartAt, inst.PlannedEndAt)
	entry := pace.AlignmentEntry{
		UserID:           cmd.UserID,
		ShadowID:         inst.ShadowID,
		ShadowInstanceID: inst.ID,
		Status:           status,
		CreatedAt:        now,
	}
	if err := h.activity.AppendAlignment(ctx, entry); err != nil {
		return nil, fmt.Errorf("complete_event: append alignment: %w", err)
	}

	h.log.Info("shadow event completed",
		logger.UserID(cmd.UserID),
		logger.String("instance_id", inst.ID),
		logger.String("alignment", string(status)),
	)

	return &CompleteEventResult{
		ID:              inst.ID,
		Status:          pace.InstanceCompleted,
		AlignmentStatus: status,
	}, nil
}
