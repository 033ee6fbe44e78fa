// Package events publishes account lifecycle events for other services.
// Delivery is best effort: callers log publish failures and carry on.
package events

import (
	"context"
	"time"
)

type Type string

const (
	UserRegistered  Type = "user.registered"
	UserLoggedIn    Type = "user.logged_in"
	UserLoggedOut   Type = "user.logged_out"
	PasswordChanged Type = "user.password_changed"
	ProfileUpdated  Type = "user.profile_updated"
)

type Event struct {
	Type       Type      `json:"type"`
	UserID     string    `json:"userId"`
	OccurredAt time.Time `json:"occurredAt"`
}

func New(t Type, userID string) Event {
	return Event{Type: t, UserID: userID, OccurredAt: time.Now().UTC()}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Noop discards events. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
