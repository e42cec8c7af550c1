package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/karmagully/checkout-backend/internal/aws"
	"github.com/karmagully/checkout-backend/internal/orders"
)

// Message is the payload sent from API -> SQS -> notifier.
type Message struct {
	Event         string       `json:"event"`
	Order         orders.Order `json:"order"`
	CorrelationID string       `json:"correlation_id,omitempty"`
}

// EventOrderPaid is emitted once an order reaches PAID.
const EventOrderPaid = "order.paid"

// Publisher enqueues order notification messages. A nil *Publisher is valid
// and drops everything, for deployments without a notification queue.
type Publisher struct {
	client   aws.SQSAPI
	queueURL string
}

func NewPublisher(client aws.SQSAPI, queueURL string) *Publisher {
	if queueURL == "" {
		return nil
	}
	return &Publisher{client: client, queueURL: queueURL}
}

// OrderPaid enqueues an order-paid notification. The email send itself is the
// notifier worker's job; checkout only fires the message and moves on.
func (p *Publisher) OrderPaid(ctx context.Context, order *orders.Order, correlationID string) error {
	if p == nil {
		return nil
	}
	body, err := json.Marshal(Message{
		Event:         EventOrderPaid,
		Order:         *order,
		CorrelationID: correlationID,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	msgBody := string(body)
	input := &sqs.SendMessageInput{
		QueueUrl:    &p.queueURL,
		MessageBody: &msgBody,
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"event": {
				DataType:    awsString("String"),
				StringValue: awsString(EventOrderPaid),
			},
			"order_id": {
				DataType:    awsString("String"),
				StringValue: awsString(order.OrderID),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
