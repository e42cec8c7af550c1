package orders

import "time"

// Order statuses
const (
	StatusPending    = "PENDING"     // online payment awaiting confirmation
	StatusPaid       = "PAID"        // terminal success
	StatusFailed     = "FAILED"      // terminal failure; a retry creates a new order
	StatusCODPending = "COD_PENDING" // cash on delivery, settled out-of-band on fulfillment
)

// Payment methods
const (
	MethodUPI  = "UPI"
	MethodCard = "Card"
	MethodCOD  = "COD"
)

// IsTerminal reports whether status permits no further transitions.
func IsTerminal(status string) bool {
	return status == StatusPaid || status == StatusFailed
}

// LineItem is one entry of an order, snapshotted at checkout time.
type LineItem struct {
	ProductID string `dynamodbav:"product_id" json:"productId"`
	Name      string `dynamodbav:"name" json:"name"`
	Quantity  int    `dynamodbav:"quantity" json:"quantity"`
	Price     int64  `dynamodbav:"price" json:"price"` // unit price in minor units
	Image     string `dynamodbav:"image,omitempty" json:"image,omitempty"`
}

// Customer is the immutable customer snapshot captured at order creation.
type Customer struct {
	Name            string                 `dynamodbav:"name" json:"name"`
	Email           string                 `dynamodbav:"email" json:"email"`
	Phone           string                 `dynamodbav:"phone,omitempty" json:"phone,omitempty"`
	ShippingAddress map[string]interface{} `dynamodbav:"shipping_address,omitempty" json:"shippingAddress,omitempty"`
}

// Order represents the item stored in the orders DynamoDB table.
type Order struct {
	OrderID           string     `dynamodbav:"order_id" json:"id"` // PK
	Items             []LineItem `dynamodbav:"items,omitempty" json:"items,omitempty"`
	Amount            int64      `dynamodbav:"amount" json:"amount"` // total in minor units (paise)
	Currency          string     `dynamodbav:"currency" json:"currency"`
	Customer          Customer   `dynamodbav:"customer" json:"customer"`
	Status            string     `dynamodbav:"status" json:"status"`
	PaymentMethod     string     `dynamodbav:"payment_method" json:"paymentMethod"`
	RazorpayOrderID   string     `dynamodbav:"razorpay_order_id,omitempty" json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string     `dynamodbav:"razorpay_payment_id,omitempty" json:"razorpay_payment_id,omitempty"`
	RazorpaySignature string     `dynamodbav:"razorpay_signature,omitempty" json:"razorpay_signature,omitempty"`
	PaymentTimestamp  *time.Time `dynamodbav:"payment_timestamp,omitempty" json:"paymentTimestamp,omitempty"`
	CreatedAt         time.Time  `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `dynamodbav:"updated_at" json:"updatedAt"`
}

// Draft carries the caller-supplied fields of a new order; the store assigns
// the order id and timestamps.
type Draft struct {
	Items           []LineItem
	Amount          int64
	Currency        string
	Customer        Customer
	PaymentMethod   string
	RazorpayOrderID string
	Status          string
}
