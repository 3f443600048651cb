// Package notify publishes registration lifecycle notifications after the
// ledger commits.
package notify

import (
	"context"
	"log"
	"time"

	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/model"
)

// Kind is the notification type. It doubles as the AMQP routing key.
type Kind string

const (
	KindCreated     Kind = "registration.created"
	KindReactivated Kind = "registration.reactivated"
	KindCancelled   Kind = "registration.cancelled"
)

// Notification describes one committed registration change.
type Notification struct {
	ID           string             `json:"notification_id"`
	Kind         Kind               `json:"kind"`
	Timestamp    time.Time          `json:"timestamp"`
	Registration model.Registration `json:"registration"`
}

// Publisher delivers notifications. Delivery is best effort: the ledger change
// has already been committed when Publish is called.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// Noop discards notifications. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(ctx context.Context, n Notification) error {
	return nil
}

// Log writes notifications to the standard logger.
type Log struct{}

func (Log) Publish(ctx context.Context, n Notification) error {
	log.Printf("[notify] %s registration=%s user=%s event=%s",
		n.Kind, n.Registration.ID, n.Registration.UserID, n.Registration.EventID)
	return nil
}
