package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"gptcatalog/internal/cache"
	apperrors "gptcatalog/internal/errors"
	"gptcatalog/internal/logger"
	"gptcatalog/internal/model"
	"gptcatalog/internal/repository"
	"gptcatalog/internal/webhook"
)

// DeliveryTTL is how long an applied webhook delivery is remembered.
const DeliveryTTL = 24 * time.Hour

// Outcome describes what a webhook delivery did.
type Outcome string

const (
	OutcomeRoleUpgraded Outcome = "role_upgraded"
	OutcomeAuditOnly    Outcome = "audit_only"
	OutcomeDowngraded   Outcome = "downgraded"
	OutcomeUserNotFound Outcome = "user_not_found"
	OutcomeNotApproved  Outcome = "not_approved"
	OutcomeIgnored      Outcome = "ignored"
	OutcomeDuplicate    Outcome = "duplicate"
)

// WebhookRecorder observes processed webhook deliveries.
type WebhookRecorder interface {
	ObserveWebhook(kind, outcome string)
}

// RoleTransitionService applies payment provider events to user roles.
type RoleTransitionService interface {
	Handle(ctx context.Context, d *webhook.Delivery) (Outcome, error)
}

type roleTransitionService struct {
	secret     []byte
	users      repository.UserRepository
	profiles   UserService
	deliveries cache.DeliveryStoreInterface
	events     EventSink
	log        logger.Logger
	recorder   WebhookRecorder
}

// TransitionOption customizes the role transition service.
type TransitionOption func(*roleTransitionService)

// WithProfileCache invalidates cached profiles after role changes.
func WithProfileCache(profiles UserService) TransitionOption {
	return func(s *roleTransitionService) { s.profiles = profiles }
}

// WithWebhookRecorder sets the metrics recorder.
func WithWebhookRecorder(r WebhookRecorder) TransitionOption {
	return func(s *roleTransitionService) { s.recorder = r }
}

// NewRoleTransitionService creates the service. The shared secret is
// required.
func NewRoleTransitionService(
	secret string,
	users repository.UserRepository,
	deliveries cache.DeliveryStoreInterface,
	events EventSink,
	log logger.Logger,
	opts ...TransitionOption,
) (RoleTransitionService, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: webhook secret", apperrors.ErrMissingSecret)
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &roleTransitionService{
		secret:     []byte(secret),
		users:      users,
		deliveries: deliveries,
		events:     events,
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handle verifies and applies one delivery. Unknown events are acknowledged
// without error. Redeliveries of an already applied event are skipped.
func (s *roleTransitionService) Handle(ctx context.Context, d *webhook.Delivery) (outcome Outcome, err error) {
	if subtle.ConstantTimeCompare([]byte(d.Token), s.secret) != 1 {
		s.log.Warn("webhook verification failed", "event", d.Event)
		s.observe(d, "unauthorized")
		return "", apperrors.ErrWebhookUnauthorized
	}
	if d.BuyerEmail == "" {
		s.log.Warn("webhook payload missing buyer email", "event", d.Event)
		s.observe(d, "bad_payload")
		return "", apperrors.ErrBadPayload
	}

	log := s.log.With("event", d.Event, "transaction", d.Transaction)

	defer func() {
		if err != nil {
			s.observe(d, "error")
			return
		}
		s.observe(d, string(outcome))
		s.record(ctx, d, outcome)
	}()

	dedupe := d.Transaction != "" && s.deliveries != nil
	if dedupe && s.deliveries.Seen(ctx, d.DedupeKey()) {
		log.Info("duplicate webhook delivery skipped")
		return OutcomeDuplicate, nil
	}

	switch d.Kind {
	case webhook.KindPurchaseApproved:
		outcome, err = s.applyApproved(ctx, log, d)
	case webhook.KindPurchaseReversed:
		outcome, err = s.applyReversed(ctx, log, d)
	default:
		log.Info("unhandled webhook event")
		return OutcomeIgnored, nil
	}
	if err != nil {
		return "", err
	}

	if dedupe && (outcome == OutcomeRoleUpgraded || outcome == OutcomeAuditOnly || outcome == OutcomeDowngraded) {
		s.deliveries.Remember(ctx, d.DedupeKey(), DeliveryTTL)
	}
	return outcome, nil
}

func (s *roleTransitionService) applyApproved(ctx context.Context, log logger.Logger, d *webhook.Delivery) (Outcome, error) {
	if !d.Approved() {
		log.Info("purchase not approved, no change", "status", d.Status)
		return OutcomeNotApproved, nil
	}

	user, err := s.users.FindByEmail(ctx, d.BuyerEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("payment received for unknown user")
			return OutcomeUserNotFound, nil
		}
		return "", fmt.Errorf("find buyer: %w", err)
	}

	status := d.AuditStatus()
	changed, err := s.users.PromoteIfRole(ctx, user.ID, model.RoleGuest, model.RolePaid, status)
	if err != nil {
		return "", fmt.Errorf("promote user: %w", err)
	}
	if changed {
		s.invalidate(ctx, user.ID)
		log.Info("user promoted to paid", "user_id", user.ID)
		return OutcomeRoleUpgraded, nil
	}

	if err := s.users.UpdateStatus(ctx, user.ID, status); err != nil {
		return "", fmt.Errorf("update status: %w", err)
	}
	s.invalidate(ctx, user.ID)
	log.Info("user already elevated, status updated", "user_id", user.ID)
	return OutcomeAuditOnly, nil
}

func (s *roleTransitionService) applyReversed(ctx context.Context, log logger.Logger, d *webhook.Delivery) (Outcome, error) {
	user, err := s.users.FindByEmail(ctx, d.BuyerEmail)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("find buyer: %w", err)
	}

	n, err := s.users.SetRoleByEmail(ctx, d.BuyerEmail, model.RoleGuest, d.AuditStatus())
	if err != nil {
		return "", fmt.Errorf("downgrade user: %w", err)
	}
	if n == 0 {
		log.Warn("reversal received for unknown user")
		return OutcomeUserNotFound, nil
	}
	if user != nil {
		s.invalidate(ctx, user.ID)
	}
	log.Info("user downgraded to guest")
	return OutcomeDowngraded, nil
}

func (s *roleTransitionService) invalidate(ctx context.Context, id uint) {
	if s.profiles != nil {
		s.profiles.Invalidate(ctx, id)
	}
}

func (s *roleTransitionService) observe(d *webhook.Delivery, outcome string) {
	if s.recorder != nil {
		s.recorder.ObserveWebhook(string(d.Kind), outcome)
	}
}

func (s *roleTransitionService) record(ctx context.Context, d *webhook.Delivery, outcome Outcome) {
	if s.events == nil {
		return
	}
	s.events.Record(ctx, model.PaymentEvent{
		Event:       d.Event,
		BuyerEmail:  d.BuyerEmail,
		Transaction: d.Transaction,
		Status:      d.Status,
		Amount:      d.Amount,
		Currency:    d.Currency,
		Outcome:     string(outcome),
	})
}
