package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/rightsplace/rightsplace/internal/domain"
	"github.com/rightsplace/rightsplace/internal/events"
	"github.com/rightsplace/rightsplace/internal/repository"
	apperrors "github.com/rightsplace/rightsplace/pkg/util/errorutil"
)

// publisher stamps and dispatches events. Handler failures are logged, never returned.
type publisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

func (p publisher) publish(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil && p.logger != nil {
		p.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func requireAdmin(actor *domain.Actor) error {
	if actor == nil || actor.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !actor.IsAdmin() {
		return apperrors.NewForbidden()
	}
	return nil
}

// notFoundOr maps a missing row, or an ID Postgres cannot parse, to NOT_FOUND.
func notFoundOr(err error, resource string, details map[string]any) error {
	if errors.Is(err, pgx.ErrNoRows) || repository.IsInvalidInput(err) {
		return apperrors.NewNotFound(resource, details)
	}
	return apperrors.MapError(err)
}

var validate = validator.New()

func validEmail(value string) bool {
	return validate.Var(value, "required,email") == nil
}

func validID(id string) error {
	_, err := uuid.Parse(id)
	return err
}

func recordStatusChange(ctx context.Context, history repository.ReportHistoryRepository, actor *domain.Actor, reportID string, oldStatus, newStatus domain.ReportStatus, extra map[string]any) error {
	newValue := map[string]any{"status": newStatus}
	for k, v := range extra {
		newValue[k] = v
	}
	return history.Create(ctx, &domain.ReportHistory{
		ReportID:    reportID,
		ChangedByID: actor.UserID(),
		OldValue:    map[string]any{"status": oldStatus},
		NewValue:    newValue,
	})
}

func nopLogger(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
