// Package audit is a best-effort side channel: business operations hand it
// events and never wait for, or fail on, their persistence.
package audit

import (
	"context"
	"time"
)

// Action kinds emitted by the services
const (
	ActionOrderCreated      = "order_created"
	ActionItemsAdded        = "order_items_added"
	ActionItemEdited        = "order_item_edited"
	ActionItemDeleted       = "order_item_deleted"
	ActionStatusChanged     = "order_status_changed"
	ActionOrderCancelled    = "order_cancelled"
	ActionBillRequested     = "order_bill_requested"
	ActionPaymentCreated    = "payment_created"
	ActionOrderMarkedPaid   = "order_marked_paid"
	ActionCashSessionOpened = "cash_session_opened"
	ActionCashSessionClosed = "cash_session_closed"
)

// ClientMeta describes the request that triggered an event
type ClientMeta struct {
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id"`
}

// Event is one audit record
type Event struct {
	ActorID    uint                   `json:"actor_id"`
	OrderID    *uint                  `json:"order_id,omitempty"`
	Action     string                 `json:"action"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	ClientMeta ClientMeta             `json:"client_meta"`
}

// Sink persists events. Implementations may fail; callers of Recorder never see it.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// Recorder is what services depend on. Record must not block or fail.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

type clientMetaKey struct{}

// WithClientMeta stores request metadata on ctx
func WithClientMeta(ctx context.Context, meta ClientMeta) context.Context {
	return context.WithValue(ctx, clientMetaKey{}, meta)
}

// ClientMetaFromContext returns the metadata stored by WithClientMeta, if any
func ClientMetaFromContext(ctx context.Context) ClientMeta {
	meta, _ := ctx.Value(clientMetaKey{}).(ClientMeta)
	return meta
}

// NewEvent builds an event stamped with the current time and the request metadata on ctx
func NewEvent(ctx context.Context, actorID uint, orderID *uint, action string, details map[string]interface{}) Event {
	return Event{
		ActorID:    actorID,
		OrderID:    orderID,
		Action:     action,
		Details:    details,
		Timestamp:  time.Now().UTC(),
		ClientMeta: ClientMetaFromContext(ctx),
	}
}

// Nop discards every event
type Nop struct{}

// Record implements Recorder
func (Nop) Record(context.Context, Event) {}
