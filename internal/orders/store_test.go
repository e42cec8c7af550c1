package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func newTestStore(mock *simpleMock) *Store {
	s := NewStore(mock, "orders", "razorpay_order_id-index")
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return base }
	return s
}

func TestCreate_AssignsIDAndDefaults(t *testing.T) {
	mock := newSimpleMock()
	s := newTestStore(mock)
	ctx := context.Background()

	o, err := s.Create(ctx, Draft{
		Amount:          100000,
		Customer:        Customer{Name: "Asha", Email: "asha@example.com"},
		RazorpayOrderID: "order_abc",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if o.OrderID == "" {
		t.Fatal("expected assigned order id")
	}
	if o.Status != StatusPending {
		t.Fatalf("expected default status PENDING, got %s", o.Status)
	}
	if o.Currency != "INR" {
		t.Fatalf("expected default currency INR, got %s", o.Currency)
	}
	if o.PaymentMethod != MethodUPI {
		t.Fatalf("expected default method UPI, got %s", o.PaymentMethod)
	}
	if o.CreatedAt.IsZero() || o.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}

	got, err := s.GetByID(ctx, o.OrderID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got == nil || got.RazorpayOrderID != "order_abc" {
		t.Fatalf("persisted order mismatch: %+v", got)
	}
}

func TestCreate_CODOrderHasNoProviderFields(t *testing.T) {
	mock := newSimpleMock()
	s := newTestStore(mock)

	o, err := s.Create(context.Background(), Draft{
		Amount:        50000,
		Customer:      Customer{Name: "Ravi"},
		PaymentMethod: MethodCOD,
		Status:        StatusCODPending,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if o.Status != StatusCODPending {
		t.Fatalf("expected COD_PENDING, got %s", o.Status)
	}
	if o.RazorpayOrderID != "" || o.RazorpayPaymentID != "" || o.RazorpaySignature != "" {
		t.Fatalf("COD order must not carry provider fields: %+v", o)
	}
}

func TestGetByID_NotFoundReturnsNil(t *testing.T) {
	s := newTestStore(newSimpleMock())
	o, err := s.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o != nil {
		t.Fatalf("expected nil for missing order, got %+v", o)
	}
}

func TestGetByProviderOrderID(t *testing.T) {
	mock := newSimpleMock()
	s := newTestStore(mock)
	ctx := context.Background()

	created, err := s.Create(ctx, Draft{Amount: 1, Customer: Customer{Name: "A"}, RazorpayOrderID: "order_xyz"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	got, err := s.GetByProviderOrderID(ctx, "order_xyz")
	if err != nil {
		t.Fatalf("GetByProviderOrderID error: %v", err)
	}
	if got == nil || got.OrderID != created.OrderID {
		t.Fatalf("lookup mismatch: %+v", got)
	}

	none, err := s.GetByProviderOrderID(ctx, "order_other")
	if err != nil || none != nil {
		t.Fatalf("expected (nil, nil) for unknown provider id, got %+v %v", none, err)
	}
}

func TestTransition_CapturePersistsPaymentFields(t *testing.T) {
	mock := newSimpleMock()
	s := newTestStore(mock)
	ctx := context.Background()

	o, _ := s.Create(ctx, Draft{Amount: 100000, Customer: Customer{Name: "A"}, RazorpayOrderID: "order_1"})
	capturedAt := time.Unix(1700000000, 0)

	updated, err := s.Transition(ctx, o, PaymentCaptured{
		PaymentID:  "pay_1",
		Signature:  "sig_1",
		CapturedAt: capturedAt,
	})
	if err != nil {
		t.Fatalf("Transition error: %v", err)
	}
	if updated.Status != StatusPaid {
		t.Fatalf("expected PAID, got %s", updated.Status)
	}
	if updated.RazorpayPaymentID != "pay_1" || updated.RazorpaySignature != "sig_1" {
		t.Fatalf("payment fields not persisted: %+v", updated)
	}
	if updated.PaymentTimestamp == nil || !updated.PaymentTimestamp.Equal(capturedAt) {
		t.Fatalf("expected payment timestamp %v, got %v", capturedAt, updated.PaymentTimestamp)
	}
}

func TestTransition_NoOpDoesNotWrite(t *testing.T) {
	mock := newSimpleMock()
	s := newTestStore(mock)
	ctx := context.Background()

	o, _ := s.Create(ctx, Draft{Amount: 1, Customer: Customer{Name: "A"}, RazorpayOrderID: "order_1"})
	paid, err := s.Transition(ctx, o, PaymentCaptured{PaymentID: "pay_1", CapturedAt: time.Now()})
	if err != nil {
		t.Fatalf("Transition error: %v", err)
	}

	writesBefore := mock.updateCalls
	again, err := s.Transition(ctx, paid, PaymentCaptured{PaymentID: "pay_1", CapturedAt: time.Now()})
	if err != nil {
		t.Fatalf("idempotent re-apply error: %v", err)
	}
	if again.Status != StatusPaid {
		t.Fatalf("expected PAID, got %s", again.Status)
	}
	if mock.updateCalls != writesBefore {
		t.Fatal("idempotent re-apply must not issue a write")
	}
}

func TestTransition_RaceRereadsAndNoOps(t *testing.T) {
	mock := newSimpleMock()
	s := newTestStore(mock)
	ctx := context.Background()

	o, _ := s.Create(ctx, Draft{Amount: 1, Customer: Customer{Name: "A"}, RazorpayOrderID: "order_1"})

	// A competing capture lands between our read and our conditional write.
	mock.beforeUpdate = func() {
		if _, err := s.Transition(ctx, o, PaymentCaptured{PaymentID: "pay_winner", CapturedAt: time.Now()}); err != nil {
			t.Errorf("competing transition error: %v", err)
		}
	}

	got, err := s.Transition(ctx, o, PaymentFailed{})
	if err != nil {
		t.Fatalf("Transition error: %v", err)
	}
	if got.Status != StatusPaid {
		t.Fatalf("late failure must lose to the capture, got %s", got.Status)
	}
	if got.RazorpayPaymentID != "pay_winner" {
		t.Fatalf("expected winner's payment id, got %s", got.RazorpayPaymentID)
	}
}

func TestTransition_StoreErrorPropagates(t *testing.T) {
	mock := newSimpleMock()
	s := newTestStore(mock)
	ctx := context.Background()

	o, _ := s.Create(ctx, Draft{Amount: 1, Customer: Customer{Name: "A"}})
	mock.failAll = errors.New("connection reset")

	if _, err := s.Transition(ctx, o, PaymentFailed{}); err == nil {
		t.Fatal("expected store error to propagate")
	}
}

func TestList_NewestFirst(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "orders", "razorpay_order_id-index")
	ctx := context.Background()

	times := []time.Time{
		time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC),
	}
	for _, ts := range times {
		s.nowFunc = func() time.Time { return ts }
		if _, err := s.Create(ctx, Draft{Amount: 1, Customer: Customer{Name: "A"}}); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.After(got[i-1].CreatedAt) {
			t.Fatal("orders not sorted newest first")
		}
	}
}

func TestIsUnavailable(t *testing.T) {
	throttle := &types.ProvisionedThroughputExceededException{}
	if !IsUnavailable(throttle) {
		t.Fatal("throughput exceeded must classify as unavailable")
	}
	if !IsUnavailable(fmt.Errorf("put order: %w", throttle)) {
		t.Fatal("wrapped availability errors must still classify")
	}
	if IsUnavailable(&types.ConditionalCheckFailedException{}) {
		t.Fatal("conditional failures are data-level, not availability")
	}
	if IsUnavailable(errors.New("connection reset")) {
		t.Fatal("plain errors are not API availability errors")
	}
}
