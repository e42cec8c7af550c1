package webhook

import (
	"encoding/json"
	"fmt"
	"time"
)

// Razorpay event names the pipeline dispatches on. Anything else is
// acknowledged and ignored so new provider events never bounce.
const (
	EventPaymentCaptured   = "payment.captured"
	EventPaymentAuthorized = "payment.authorized"
	EventPaymentFailed     = "payment.failed"
	EventOrderPaid         = "order.paid"
)

// envelope mirrors the Razorpay webhook payload shape. Only the fields the
// pipeline needs are declared; everything else is ignored.
type envelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity *paymentEntity `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity *orderEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

type paymentEntity struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	CreatedAt int64  `json:"created_at"` // epoch seconds
}

type orderEntity struct {
	ID string `json:"id"`
}

// Notification is the validated, typed form of one webhook delivery.
// Known is false for event types this system does not handle.
type Notification struct {
	Event           string
	Known           bool
	ProviderOrderID string
	PaymentID       string
	CapturedAt      time.Time
}

// Parse validates verified body bytes into a Notification. A shape that
// does not match its event type is a validation failure here, before
// dispatch, rather than a field-access surprise later.
func Parse(body []byte) (*Notification, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("webhook payload missing event")
	}

	n := &Notification{Event: env.Event}
	switch env.Event {
	case EventPaymentCaptured, EventPaymentAuthorized, EventPaymentFailed:
		p := env.Payload.Payment
		if p == nil || p.Entity == nil || p.Entity.OrderID == "" {
			return nil, fmt.Errorf("event %s missing payment entity", env.Event)
		}
		n.Known = true
		n.ProviderOrderID = p.Entity.OrderID
		n.PaymentID = p.Entity.ID
		if p.Entity.CreatedAt > 0 {
			n.CapturedAt = time.Unix(p.Entity.CreatedAt, 0)
		}
	case EventOrderPaid:
		o := env.Payload.Order
		if o == nil || o.Entity == nil || o.Entity.ID == "" {
			return nil, fmt.Errorf("event %s missing order entity", env.Event)
		}
		n.Known = true
		n.ProviderOrderID = o.Entity.ID
	}
	return n, nil
}
