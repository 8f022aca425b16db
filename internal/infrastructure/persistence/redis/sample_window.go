package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/pkg/logger"
)

// DefaultRetention is how far back the Redis window reaches.
const DefaultRetention = 48 * time.Hour

// SampleWindow implements pace.SpeedSampleStore. Writes go to the durable
// store first and then into a per-user sorted set scored by unix
// milliseconds. Reads come from Redis and fall back to the durable store
// when Redis fails or holds nothing.
type SampleWindow struct {
	client    redis.Cmdable
	durable   pace.SpeedSampleStore
	retention time.Duration
	log       *logger.Logger
}

// NewSampleWindow creates a SampleWindow. A retention of zero means
// DefaultRetention.
func NewSampleWindow(client redis.Cmdable, durable pace.SpeedSampleStore, retention time.Duration, log *logger.Logger) *SampleWindow {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SampleWindow{
		client:    client,
		durable:   durable,
		retention: retention,
		log:       log.With(logger.Component("sample_window")),
	}
}

type member struct {
	Speed float64 `json:"s"`
	AtMs  int64   `json:"t"`
}

// Append stores the sample durably, then in the window. Only the durable
// write can fail the call.
func (w *SampleWindow) Append(ctx context.Context, s pace.SpeedSample) error {
	if s.At.IsZero() {
		s.At = time.Now().UTC()
	}
	if err := w.durable.Append(ctx, s); err != nil {
		return err
	}

	data, err := json.Marshal(member{Speed: s.Speed, AtMs: s.At.UnixMilli()})
	if err != nil {
		return nil
	}

	key := SamplesKey(s.UserID)
	cutoff := s.At.Add(-w.retention).UnixMilli()

	_, err = w.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, key, redis.Z{Score: float64(s.At.UnixMilli()), Member: string(data)})
		p.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10))
		p.Expire(ctx, key, w.retention)
		return nil
	})
	if err != nil {
		w.log.Warn("sample window write failed", logger.UserID(s.UserID), logger.Err(err))
	}
	return nil
}

// Since returns up to limit samples at or after since, newest first.
func (w *SampleWindow) Since(ctx context.Context, userID string, since time.Time, limit int) ([]pace.SpeedSample, error) {
	values, err := w.client.ZRevRangeByScore(ctx, SamplesKey(userID), &redis.ZRangeBy{
		Min:   strconv.FormatInt(since.UnixMilli(), 10),
		Max:   "+inf",
		Count: int64(limit),
	}).Result()
	if err != nil {
		w.log.Warn("sample window read failed", logger.UserID(userID), logger.Err(err))
		return w.durable.Since(ctx, userID, since, limit)
	}
	if len(values) == 0 {
		return w.durable.Since(ctx, userID, since, limit)
	}

	out := make([]pace.SpeedSample, 0, len(values))
	for _, v := range values {
		var m member
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			continue
		}
		out = append(out, pace.SpeedSample{
			UserID: userID,
			Speed:  m.Speed,
			At:     time.UnixMilli(m.AtMs).UTC(),
		})
	}
	return out, nil
}
