package main

import "github.com/karmagully/checkout-backend/internal/orders"

// notificationBody is the payload POSTed to the email-notification service.
// The collaborator expects the order under an "order" key.
type notificationBody struct {
	Order orders.Order `json:"order"`
}
