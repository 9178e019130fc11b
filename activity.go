package auth

import (
	"context"
	"time"
)

// ActivityEventType identifies an auth event emitted to the sink.
type ActivityEventType string

const (
	ActivityEventLoginSuccess       ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure       ActivityEventType = "auth.login.failure"
	ActivityEventTokenRefresh       ActivityEventType = "auth.token.refresh"
	ActivityEventLogout             ActivityEventType = "auth.logout"
	ActivityEventLogoutAll          ActivityEventType = "auth.logout.all"
	ActivityEventRegistration       ActivityEventType = "auth.registration"
	ActivityEventEmailConfirmed     ActivityEventType = "auth.email.confirmed"
	ActivityEventResetRequested     ActivityEventType = "auth.password_reset.requested"
	ActivityEventResetCompleted     ActivityEventType = "auth.password_reset.completed"
	ActivityEventScopeGranted       ActivityEventType = "auth.scope.granted"
	ActivityEventScopeRevoked       ActivityEventType = "auth.scope.revoked"
	ActivityEventElevationRequested ActivityEventType = "auth.elevation.requested"
	ActivityEventElevationConsumed  ActivityEventType = "auth.elevation.consumed"
	ActivityEventMailFailure        ActivityEventType = "auth.mail.failure"
)

// ActivityEvent is the record handed to the sink. Metadata is free form.
type ActivityEvent struct {
	EventType  ActivityEventType `json:"event_type"`
	UserID     string            `json:"user_id,omitempty"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// ActivitySink receives auth events. Implementations must not block the
// calling request beyond its timeout; errors are logged, never propagated.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

type noopActivitySink struct{}

func (noopActivitySink) Record(ctx context.Context, event ActivityEvent) error {
	return nil
}

func normalizeActivitySink(sink ActivitySink) ActivitySink {
	if sink == nil {
		return noopActivitySink{}
	}
	return sink
}

func emitActivity(ctx context.Context, sink ActivitySink, logger Logger, eventType ActivityEventType, userID string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		if logger == nil {
			logger = defLogger{}
		}
		logger.Warn("activity sink record error: %v", err)
	}
}
