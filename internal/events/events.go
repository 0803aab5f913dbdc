package events

import "context"

// Event types published on the auth lifecycle topic.
const (
	TypeSessionCreated     = "auth.session.created"
	TypeSessionRevoked     = "auth.session.revoked"
	TypeAllSessionsRevoked = "auth.sessions.revoked_all"
	TypePasswordChanged    = "auth.password.changed"
)

// SessionEvent is the payload for session lifecycle events.
type SessionEvent struct {
	SessionID  int64  `json:"session_id,omitempty"`
	EmployeeID int64  `json:"employee_id"`
	Provider   string `json:"provider,omitempty"`
	Revoked    int64  `json:"revoked_count,omitempty"`
}

// PasswordChangedEvent is the payload for password change events.
type PasswordChangedEvent struct {
	EmployeeID int64 `json:"employee_id"`
}

// Publisher emits auth lifecycle events. Publishing is best-effort: callers
// treat failures as log-worthy, never as operation failures.
type Publisher interface {
	Publish(ctx context.Context, eventType string, key string, payload interface{}) error
	Close() error
}

// NoopPublisher discards all events. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, eventType string, key string, payload interface{}) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }

var _ Publisher = NoopPublisher{}
