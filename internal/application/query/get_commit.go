package query

import (
	"context"
	"fmt"
	"time"

	"github.com/nutri-hub/shadow-pace/internal/application/race"
	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
	"github.com/nutri-hub/shadow-pace/pkg/timeutil"
)

// GetCommitQuery asks for today's commit.
type GetCommitQuery struct {
	UserID string
}

// CommitDTO carries today's commit, or nil when nothing was committed.
type CommitDTO struct {
	Commit *pace.Commit `json:"commit"`
	TZ     string       `json:"tz"`
	Day    string       `json:"day"`
}

// GetCommitHandler handles GetCommitQuery.
type GetCommitHandler struct {
	resolver *race.Resolver
	progress pace.ProgressRepository
	now      func() time.Time
}

// NewGetCommitHandler creates a new GetCommitHandler.
func NewGetCommitHandler(resolver *race.Resolver, progress pace.ProgressRepository) *GetCommitHandler {
	return &GetCommitHandler{resolver: resolver, progress: progress, now: time.Now}
}

// WithClock overrides the time source.
func (h *GetCommitHandler) WithClock(now func() time.Time) *GetCommitHandler {
	h.now = now
	return h
}

// Handle executes the query.
func (h *GetCommitHandler) Handle(ctx context.Context, q GetCommitQuery) (*CommitDTO, error) {
	if q.UserID == "" {
		return nil, shared.ErrMissingUser
	}

	loc, err := h.resolver.Location(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	day := timeutil.LocalDate(h.now(), loc)

	commit, err := h.progress.GetCommit(ctx, q.UserID, day)
	if err != nil {
		return nil, fmt.Errorf("get commit: %w", err)
	}
	return &CommitDTO{Commit: commit, TZ: loc.String(), Day: day}, nil
}
