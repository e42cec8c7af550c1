package orders

import "time"

// Event is a provider-originated payment lifecycle event applied to an order.
// The concrete types form a closed set; Apply dispatches on them.
type Event interface {
	isEvent()
}

// PaymentCaptured records a successful capture (or authorization) of a
// payment against the order.
type PaymentCaptured struct {
	PaymentID  string
	Signature  string
	CapturedAt time.Time
}

// PaymentFailed records a failed payment attempt.
type PaymentFailed struct{}

// OrderPaidAtGateway is the provider-level "order fully settled" event,
// distinct from a single payment capture.
type OrderPaidAtGateway struct{}

func (PaymentCaptured) isEvent()    {}
func (PaymentFailed) isEvent()      {}
func (OrderPaidAtGateway) isEvent() {}

// Mutation is the set of fields a transition writes. Status is always set;
// the payment fields only for captures.
type Mutation struct {
	Status           string
	PaymentID        string
	Signature        string
	PaymentTimestamp *time.Time
}

// Apply is the pure transition function: (current order, event) -> mutation.
// It returns false when the event is a no-op for the order's current state.
//
// Transitions are monotonic-terminal: nothing leaves PAID or FAILED, and a
// late PaymentFailed never overwrites a confirmed payment. Re-applying the
// transition an order is already in is a no-op, not an error, which makes
// duplicate and out-of-order delivery safe without locking.
func Apply(o *Order, ev Event) (Mutation, bool) {
	switch e := ev.(type) {
	case PaymentCaptured:
		if IsTerminal(o.Status) {
			return Mutation{}, false
		}
		ts := e.CapturedAt
		return Mutation{
			Status:           StatusPaid,
			PaymentID:        e.PaymentID,
			Signature:        e.Signature,
			PaymentTimestamp: &ts,
		}, true
	case PaymentFailed:
		if IsTerminal(o.Status) {
			return Mutation{}, false
		}
		return Mutation{Status: StatusFailed}, true
	case OrderPaidAtGateway:
		if IsTerminal(o.Status) {
			return Mutation{}, false
		}
		return Mutation{Status: StatusPaid}, true
	}
	return Mutation{}, false
}
