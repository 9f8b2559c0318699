package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rightsplace/rightsplace/internal/domain"
	"github.com/rightsplace/rightsplace/internal/events"
)

func TestAuditServiceLogsEvents(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	NewAuditService(dispatcher, zap.New(core)).RegisterHandlers()

	actor := events.ActorFrom(&domain.Actor{User: &domain.User{ID: "admin-1", IsAdmin: true}})
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		ID:       "evt-1",
		Type:     events.EventCaseResolved,
		ReportID: "rep-1",
		Actor:    actor,
		Payload:  events.CaseStatusPayload{CaseID: "case-1"},
	}))

	entries := logs.FilterMessage(string(events.EventCaseResolved)).All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "audit", entries[0].LoggerName)
	assert.Equal(t, "rep-1", fields["report_id"])
	assert.Equal(t, "ADMIN", fields["actor_type"])
	assert.Equal(t, "admin-1", fields["actor_user_id"])
	assert.NotContains(t, fields, "actor_profile_id")
}
