package webhook

import (
	"context"
	"log"
	"time"

	"github.com/karmagully/checkout-backend/internal/metrics"
	"github.com/karmagully/checkout-backend/internal/notify"
	"github.com/karmagully/checkout-backend/internal/orders"
	"github.com/karmagully/checkout-backend/internal/signature"
)

// Disposition tells the HTTP layer how to acknowledge a delivery.
type Disposition int

const (
	// Rejected: bad signature or malformed payload. 400, provider gives up.
	Rejected Disposition = iota
	// Acked: verified and handled, including drops and no-ops. 200.
	Acked
	// Errored: internal failure after verification. 500, provider retries;
	// the idempotent transition rules make replays safe.
	Errored
)

// Pipeline processes verified webhook deliveries end to end: signature
// check, envelope parse, dispatch through the order state machine, persist.
type Pipeline struct {
	secret  []byte
	store   *orders.Store
	notify  *notify.Publisher
	metrics *metrics.Emitter
	nowFunc func() time.Time
}

func NewPipeline(secret string, store *orders.Store, pub *notify.Publisher, em *metrics.Emitter) *Pipeline {
	return &Pipeline{
		secret:  []byte(secret),
		store:   store,
		notify:  pub,
		metrics: em,
		nowFunc: time.Now,
	}
}

// Handle runs one delivery through the pipeline. body must be the raw
// request bytes exactly as received; verification happens before any
// parsing, and nothing is mutated on a failed check. The returned error is
// for logging only; the Disposition decides the response.
func (p *Pipeline) Handle(ctx context.Context, body []byte, sigHeader string) (Disposition, error) {
	if !signature.Verify(p.secret, body, sigHeader) {
		p.metrics.SignatureFailure(ctx, "webhook")
		return Rejected, signature.ErrInvalidSignature
	}

	n, err := Parse(body)
	if err != nil {
		return Rejected, err
	}
	if !n.Known {
		// Forward compatibility: ack new provider event types untouched.
		log.Printf("webhook: ignoring event %q", n.Event)
		p.metrics.WebhookProcessed(ctx, n.Event, "ignored")
		return Acked, nil
	}

	ev := p.toOrderEvent(n, sigHeader)

	order, err := p.store.GetByProviderOrderID(ctx, n.ProviderOrderID)
	if err != nil {
		p.metrics.WebhookProcessed(ctx, n.Event, "error")
		return Errored, err
	}
	if order == nil {
		// No local record: ack and drop. A failure response here would just
		// make the provider retry forever for an order we never persisted.
		log.Printf("webhook: no local order for %s, dropping %s", n.ProviderOrderID, n.Event)
		p.metrics.WebhookProcessed(ctx, n.Event, "dropped")
		return Acked, nil
	}

	prevStatus := order.Status
	updated, err := p.store.Transition(ctx, order, ev)
	if err != nil {
		p.metrics.WebhookProcessed(ctx, n.Event, "error")
		return Errored, err
	}

	if updated.Status == prevStatus {
		p.metrics.WebhookProcessed(ctx, n.Event, "noop")
		return Acked, nil
	}

	log.Printf("webhook: order %s %s -> %s (%s)", updated.OrderID, prevStatus, updated.Status, n.Event)
	p.metrics.WebhookProcessed(ctx, n.Event, "applied")

	if updated.Status == orders.StatusPaid {
		if err := p.notify.OrderPaid(ctx, updated, ""); err != nil {
			log.Printf("webhook: notification enqueue failed for %s: %v", updated.OrderID, err)
		}
	}
	return Acked, nil
}

func (p *Pipeline) toOrderEvent(n *Notification, sigHeader string) orders.Event {
	switch n.Event {
	case EventPaymentCaptured, EventPaymentAuthorized:
		capturedAt := n.CapturedAt
		if capturedAt.IsZero() {
			capturedAt = p.nowFunc()
		}
		return orders.PaymentCaptured{
			PaymentID:  n.PaymentID,
			Signature:  sigHeader,
			CapturedAt: capturedAt,
		}
	case EventPaymentFailed:
		return orders.PaymentFailed{}
	default: // EventOrderPaid
		return orders.OrderPaidAtGateway{}
	}
}
