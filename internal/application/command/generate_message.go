package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nutri-hub/shadow-pace/config"
	"github.com/nutri-hub/shadow-pace/internal/application/race"
	"github.com/nutri-hub/shadow-pace/internal/domain/notification"
	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
	"github.com/nutri-hub/shadow-pace/pkg/logger"
)

// GenerateMessageCommand asks for a fresh persona message.
type GenerateMessageCommand struct {
	UserID string
}

// GenerateMessageResult describes the stored message.
type GenerateMessageResult struct {
	OK        bool              `json:"ok"`
	MessageID string            `json:"messageId,omitempty"`
	Type      notification.Tone `json:"type,omitempty"`
	Error     string            `json:"error,omitempty"`

	Text   string `json:"-"`
	Source string `json:"-"`
}

// GenerateMessageHandler handles the GenerateMessageCommand.
type GenerateMessageHandler struct {
	resolver *race.Resolver
	profiles pace.ProfileRepository
	activity pace.ActivityRepository
	composer *notification.Selector
	personas notification.PersonaRepository
	notifier *race.Notifier
	flags    *config.FeatureFlags
	now      func() time.Time
	log      *logger.Logger
}

// NewGenerateMessageHandler creates a new GenerateMessageHandler.
// A nil composer means templates only.
func NewGenerateMessageHandler(
	resolver *race.Resolver,
	profiles pace.ProfileRepository,
	activity pace.ActivityRepository,
	composer *notification.Selector,
	personas notification.PersonaRepository,
	notifier *race.Notifier,
	flags *config.FeatureFlags,
	log *logger.Logger,
) *GenerateMessageHandler {
	if log == nil {
		log = logger.Nop()
	}
	if composer == nil {
		composer = notification.NewSelector(nil)
	}
	return &GenerateMessageHandler{
		resolver: resolver,
		profiles: profiles,
		activity: activity,
		composer: composer,
		personas: personas,
		notifier: notifier,
		flags:    flags,
		now:      time.Now,
		log:      log.With(logger.Component("persona_message")),
	}
}

// WithClock overrides the time source.
func (h *GenerateMessageHandler) WithClock(now func() time.Time) *GenerateMessageHandler {
	h.now = now
	return h
}

// Handle executes the generate message command.
// A user without a shadow profile gets {ok:false, error:"No shadow_profile"}.
func (h *GenerateMessageHandler) Handle(ctx context.Context, cmd GenerateMessageCommand) (*GenerateMessageResult, error) {
	if cmd.UserID == "" {
		return nil, shared.ErrMissingUser
	}
	if !h.flags.IsEnabled(config.FeaturePersonaMessages, config.ForUser(cmd.UserID)) {
		return &GenerateMessageResult{Error: ReasonDisabled}, nil
	}
	now := h.now()

	profile, err := h.profiles.Profile(ctx, cmd.UserID)
	if errors.Is(err, shared.ErrProfileNotFound) || (err == nil && profile == nil) {
		return &GenerateMessageResult{Error: shared.ErrProfileNotFound.Message}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persona: load profile: %w", err)
	}

	titles, err := h.activity.ActiveTaskTitles(ctx, cmd.UserID, notification.MaxPersonaTasks)
	if err != nil {
		return nil, fmt.Errorf("persona: load tasks: %w", err)
	}

	tone := notification.ToneFor(profile.Persona)
	loc := h.resolver.ProfileLocation(profile.Timezone)
	req := notification.Request{
		Kind:       notification.KindPersona,
		Persona:    profile.Persona,
		Timezone:   loc.String(),
		Tone:       tone,
		TaskTitles: titles,
	}

	source := h.composer.Source()
	msg, err := h.composer.Compose(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("persona: compose: %w", err)
	}

	stored := notification.NewPersonaMessage(cmd.UserID, tone, msg.Body, now)
	if err := h.personas.Insert(ctx, &stored); err != nil {
		return nil, fmt.Errorf("persona: insert: %w", err)
	}

	if _, err := h.notifier.Post(ctx, cmd.UserID, notification.KindPersona, notification.PersonaInboxMessage(stored.Text), now); err != nil {
		h.log.Warn("persona inbox post failed", logger.UserID(cmd.UserID), logger.Err(err))
	}

	h.log.Info("persona message stored",
		logger.UserID(cmd.UserID),
		logger.String("tone", string(tone)),
		logger.String("source", source),
	)

	return &GenerateMessageResult{
		OK:        true,
		MessageID: stored.ID,
		Type:      tone,
		Text:      stored.Text,
		Source:    source,
	}, nil
}
