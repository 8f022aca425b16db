package race

import (
	"context"
	"fmt"
	"time"

	"github.com/nutri-hub/shadow-pace/internal/domain/notification"
	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/pkg/logger"
	"github.com/nutri-hub/shadow-pace/pkg/timeutil"
)

// Notifier writes inbox records. Send consults the rate limiter first;
// Post does not.
type Notifier struct {
	inbox notification.Repository
	log   *logger.Logger
}

// NewNotifier creates a new Notifier.
func NewNotifier(inbox notification.Repository, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{inbox: inbox, log: log.With(logger.Component("notifier"))}
}

// Send applies the limits over the user's local day and inserts the record
// when allowed. A rejection is a skipped outcome, not an error.
func (n *Notifier) Send(
	ctx context.Context,
	userID string,
	kind notification.Kind,
	msg notification.Message,
	limits pace.Limits,
	loc *time.Location,
	now time.Time,
) (notification.Outcome, error) {
	from, to := timeutil.DayRange(now, loc)

	count, err := n.inbox.CountBetween(ctx, userID, from, to)
	if err != nil {
		return notification.Outcome{}, fmt.Errorf("count notifications: %w", err)
	}

	last, err := n.inbox.LastBetween(ctx, userID, from, to)
	if err != nil {
		return notification.Outcome{}, fmt.Errorf("last notification: %w", err)
	}

	decision := pace.DecideRate(pace.History{CountToday: count, Last: last}, now, limits)
	if !decision.Allowed {
		n.log.Debug("notification skipped",
			logger.UserID(userID),
			logger.String("kind", string(kind)),
			logger.String("reason", decision.Reason),
		)
		return notification.Skip(decision.Reason), nil
	}

	rec, err := n.Post(ctx, userID, kind, msg, now)
	if err != nil {
		return notification.Outcome{}, err
	}
	return notification.Outcome{Sent: true, Record: rec}, nil
}

// Post inserts a record without consulting the limiter.
func (n *Notifier) Post(
	ctx context.Context,
	userID string,
	kind notification.Kind,
	msg notification.Message,
	now time.Time,
) (*notification.Record, error) {
	rec, err := notification.NewRecord(userID, kind, msg, now)
	if err != nil {
		return nil, err
	}
	if err := n.inbox.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return rec, nil
}
