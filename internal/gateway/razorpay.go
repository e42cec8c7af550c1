package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
)

// ErrNotConfigured indicates the Razorpay credentials are missing. Handlers
// map it to a configuration error rather than a generic failure so the
// operator can tell the two apart.
var ErrNotConfigured = errors.New("razorpay keys not configured")

// remoteOrders is the slice of the razorpay-go client the adapter uses.
type remoteOrders interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RemoteOrder is the normalized result of creating a provider order.
type RemoteOrder struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
}

// Razorpay creates orders against the Razorpay Orders API. A nil *Razorpay
// is a valid "unconfigured" adapter: every call returns ErrNotConfigured.
type Razorpay struct {
	orders  remoteOrders
	timeout time.Duration
	nowFunc func() time.Time
}

// New returns a configured adapter, or ErrNotConfigured when either
// credential is empty.
func New(keyID, keySecret string, timeout time.Duration) (*Razorpay, error) {
	if keyID == "" || keySecret == "" {
		return nil, ErrNotConfigured
	}
	client := razorpay.NewClient(keyID, keySecret)
	return &Razorpay{
		orders:  client.Order,
		timeout: timeout,
		nowFunc: time.Now,
	}, nil
}

// CreateRemoteOrder creates a provider order for amountMinor (paise) with
// automatic payment capture. The receipt carries a time-based suffix so
// retried checkouts never collide on provider-side receipt idempotency.
// The call is bounded by the adapter timeout; on expiry the context error
// is returned and the in-flight HTTP call is abandoned.
func (g *Razorpay) CreateRemoteOrder(ctx context.Context, amountMinor int64, currency string) (RemoteOrder, error) {
	if g == nil || g.orders == nil {
		return RemoteOrder{}, ErrNotConfigured
	}
	if currency == "" {
		currency = "INR"
	}

	receipt := fmt.Sprintf("rcpt_%d", g.nowFunc().UnixMilli())
	data := map[string]interface{}{
		"amount":          amountMinor,
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		body map[string]interface{}
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		body, err := g.orders.Create(data, nil)
		ch <- result{body, err}
	}()

	select {
	case <-ctx.Done():
		return RemoteOrder{}, fmt.Errorf("razorpay order create: %w", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return RemoteOrder{}, fmt.Errorf("razorpay order create: %w", r.err)
		}
		return normalize(r.body, receipt)
	}
}

func normalize(body map[string]interface{}, receipt string) (RemoteOrder, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return RemoteOrder{}, fmt.Errorf("razorpay response missing order id: %v", body)
	}
	ro := RemoteOrder{ID: id, Receipt: receipt}
	if v, ok := body["amount"].(float64); ok {
		ro.Amount = int64(v)
	}
	if v, ok := body["currency"].(string); ok {
		ro.Currency = v
	}
	if v, ok := body["receipt"].(string); ok && v != "" {
		ro.Receipt = v
	}
	return ro, nil
}
