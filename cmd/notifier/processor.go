package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/karmagully/checkout-backend/internal/notify"
)

// Processor forwards order-paid notifications from SQS to the external
// email-notification service. The checkout API never waits on this; a send
// failure here only means SQS redelivers.
type Processor struct {
	client    *http.Client
	notifyURL string
}

// NewProcessor creates a notifier processor bound to the notification endpoint.
func NewProcessor(notifyURL string, timeout time.Duration) *Processor {
	return &Processor{
		client:    &http.Client{Timeout: timeout},
		notifyURL: notifyURL,
	}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Return error: Lambda will retry. If failed too many times, message goes to DLQ.
			log.Printf("notifier error: %v", err)
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg notify.Message
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		// Malformed messages are dropped: retrying can never fix them.
		log.Printf("[notifier] dropping malformed message: %v, body: %s", err, rec.Body)
		return nil
	}

	log.Printf("[notifier] received event=%s order=%s corr=%s", msg.Event, msg.Order.OrderID, msg.CorrelationID)

	if p.notifyURL == "" {
		log.Printf("[notifier] NOTIFY_URL not set, dropping notification for order=%s", msg.Order.OrderID)
		return nil
	}

	body, err := json.Marshal(notificationBody{Order: msg.Order})
	if err != nil {
		return fmt.Errorf("marshal notification body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.notifyURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification for order=%s: %w", msg.Order.OrderID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		log.Printf("[notifier] delivered notification for order=%s (%d)", msg.Order.OrderID, resp.StatusCode)
		return nil
	case resp.StatusCode < 500:
		// The service rejected the payload; redelivery would hit the same wall.
		log.Printf("[notifier] notification rejected for order=%s (%d), dropping", msg.Order.OrderID, resp.StatusCode)
		return nil
	default:
		return fmt.Errorf("notification service error for order=%s: status %d", msg.Order.OrderID, resp.StatusCode)
	}
}
