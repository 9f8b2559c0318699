package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/rightsplace/rightsplace/internal/events"
)

// AuditService writes a structured log line for every domain event.
// It never contacts reporters or partners.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     nopLogger(logger).Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventReportSubmitted,
		events.EventEvidenceAttached,
		events.EventReportDeleted,
		events.EventCaseCreated,
		events.EventCaseResolved,
		events.EventCaseUpdated,
		events.EventPartnerVerified,
	} {
		a.dispatcher.Subscribe(eventType, a.handle)
	}
}

func (a *AuditService) handle(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Time("timestamp", event.Timestamp),
		zap.Any("payload", event.Payload),
	}
	if event.ReportID != "" {
		fields = append(fields, zap.String("report_id", event.ReportID))
	}
	if event.Actor.Type != "" {
		fields = append(fields, zap.String("actor_type", string(event.Actor.Type)))
	}
	if event.Actor.UserID != nil {
		fields = append(fields, zap.String("actor_user_id", *event.Actor.UserID))
	}
	if event.Actor.ProfileID != nil {
		fields = append(fields, zap.String("actor_profile_id", *event.Actor.ProfileID))
	}
	a.logger.Info(string(event.Type), fields...)
	return nil
}
