package mykafka

import (
	"context"
	"sync"
	"time"

	"github.com/Skotchmaster/account_service/pkg/logging"
	"github.com/Skotchmaster/account_service/pkg/reqctx"
)

const (
	UserRegistered = "user_registered"
	UserCreated    = "user_created"
	UserDeleted    = "user_deleted"
	RoleAssigned   = "role_assigned"
	AccountLocked  = "account_locked"
)

type UserEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"userId"`
	Username   string    `json:"username,omitempty"`
	Role       string    `json:"role,omitempty"`
	LockUntil  time.Time `json:"lockUntil,omitzero"`
	RequestID  string    `json:"requestId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Events publishes user lifecycle events in the background. Delivery failures are
// logged and never reach the request that caused the event.
type Events struct {
	Publisher Publisher
	Topic     string

	wg sync.WaitGroup
}

func (e *Events) Emit(ctx context.Context, ev UserEvent) {
	if e == nil || e.Publisher == nil {
		return
	}
	ev.RequestID = reqctx.ID(ctx)
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	detached := context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.Publisher.PublishEvent(detached, e.Topic, ev.UserID, ev); err != nil {
			logging.FromContext(detached).WarnContext(detached, "event_publish_failed",
				"event", ev.Type, "user_id", ev.UserID, "error", err)
		}
	}()
}

// Wait blocks until every emitted event has been handed to the publisher.
func (e *Events) Wait() {
	if e == nil {
		return
	}
	e.wg.Wait()
}
