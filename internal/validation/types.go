package validation

// Item is a single checkout line item. Prices are unit prices in minor
// currency units (paise).
type Item struct {
	ProductID string `json:"productId" validate:"required"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
	Price     int64  `json:"price" validate:"min=0"`
	Image     string `json:"image,omitempty"`
}

// CustomerPayload is the customer snapshot supplied at checkout.
type CustomerPayload struct {
	Name            string                 `json:"name" validate:"required"`
	Email           string                 `json:"email" validate:"omitempty,email"`
	Phone           string                 `json:"phone"`
	ShippingAddress map[string]interface{} `json:"shippingAddress"`
}

// CreateOrderRequest is the payload for POST /create-order.
// Amount is the order total in minor units (paise).
type CreateOrderRequest struct {
	Items    []Item           `json:"items" validate:"omitempty,dive"`
	Amount   int64            `json:"amount" validate:"required,gt=0"`
	Currency string           `json:"currency"`
	Customer *CustomerPayload `json:"customer" validate:"required"`
}

// CreateCODOrderRequest is the payload for POST /create-cod-order.
type CreateCODOrderRequest struct {
	CreateOrderRequest
	PaymentMethod string `json:"paymentMethod" validate:"omitempty,oneof=UPI Card COD"`
}
