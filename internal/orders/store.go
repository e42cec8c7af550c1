package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/karmagully/checkout-backend/internal/aws"
)

// IsUnavailable reports whether err is a service-side availability failure
// (throttling, missing table, server fault) rather than a data-level
// condition. Callers on the checkout path degrade on these instead of
// failing the request.
func IsUnavailable(err error) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	switch ae.ErrorCode() {
	case "ProvisionedThroughputExceededException", "ThrottlingException",
		"ResourceNotFoundException", "RequestLimitExceeded", "InternalServerError":
		return true
	}
	return false
}

// ErrStatusMismatch indicates a conditional status write lost a race with a
// concurrent transition and retries were exhausted.
var ErrStatusMismatch = errors.New("status mismatch/conditional failed")

// transitionRetries bounds the re-read loop when two transitions race on the
// same order. One retry is enough in practice; the bound guards against bugs.
const transitionRetries = 3

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	indexName string // GSI keyed by razorpay_order_id
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store. indexName is the GSI used to look
// orders up by their provider-assigned order id.
func NewStore(client aws.DynamoDBAPI, tableName, indexName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		nowFunc:   time.Now,
	}
}

// Create assigns an order id and timestamps to draft and persists it.
func (s *Store) Create(ctx context.Context, draft Draft) (*Order, error) {
	now := s.nowFunc().UTC()
	o := Order{
		OrderID:         uuid.NewString(),
		Items:           draft.Items,
		Amount:          draft.Amount,
		Currency:        draft.Currency,
		Customer:        draft.Customer,
		Status:          draft.Status,
		PaymentMethod:   draft.PaymentMethod,
		RazorpayOrderID: draft.RazorpayOrderID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if o.Currency == "" {
		o.Currency = "INR"
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	if o.PaymentMethod == "" {
		o.PaymentMethod = MethodUPI
	}

	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_id)"),
	})
	if err != nil {
		return nil, fmt.Errorf("put order: %w", err)
	}
	return &o, nil
}

// GetByID fetches an order by its internal id. Returns (nil, nil) if not found.
func (s *Store) GetByID(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// GetByProviderOrderID fetches an order by its Razorpay order id via the GSI.
// Returns (nil, nil) if not found.
func (s *Store) GetByProviderOrderID(ctx context.Context, rzpOrderID string) (*Order, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              &s.indexName,
		KeyConditionExpression: awsString("razorpay_order_id = :oid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":oid": &types.AttributeValueMemberS{Value: rzpOrderID},
		},
		Limit: awsInt32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Items[0], &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// List returns all orders, newest first.
func (s *Store) List(ctx context.Context) ([]Order, error) {
	var result []Order
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:         &s.tableName,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan orders: %w", err)
		}
		var page []Order
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal orders: %w", err)
		}
		result = append(result, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Transition applies ev to o through the state machine and persists the
// resulting mutation with a conditional write keyed on the status that was
// read. If a concurrent transition wins the race, the order is re-read and
// the event re-applied; the monotonic-terminal rules then usually make it a
// no-op. The order passed in is not retained.
func (s *Store) Transition(ctx context.Context, o *Order, ev Event) (*Order, error) {
	cur := o
	for attempt := 0; attempt < transitionRetries; attempt++ {
		mut, changed := Apply(cur, ev)
		if !changed {
			return cur, nil
		}

		updated, err := s.writeMutation(ctx, cur, mut)
		if err == nil {
			return updated, nil
		}
		var cc *types.ConditionalCheckFailedException
		if !errors.As(err, &cc) {
			return nil, err
		}

		// Lost the race: somebody else moved the status. Re-read and re-apply.
		reread, gerr := s.GetByID(ctx, cur.OrderID)
		if gerr != nil {
			return nil, gerr
		}
		if reread == nil {
			return nil, fmt.Errorf("order %s disappeared during transition", cur.OrderID)
		}
		cur = reread
	}
	return nil, ErrStatusMismatch
}

func (s *Store) writeMutation(ctx context.Context, o *Order, mut Mutation) (*Order, error) {
	now := s.nowFunc().UTC()
	updateExpr := "SET #s = :new, updated_at = :ua"
	values := map[string]types.AttributeValue{
		":new":      &types.AttributeValueMemberS{Value: mut.Status},
		":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		":expected": &types.AttributeValueMemberS{Value: o.Status},
	}
	if mut.PaymentID != "" {
		updateExpr += ", razorpay_payment_id = :pid"
		values[":pid"] = &types.AttributeValueMemberS{Value: mut.PaymentID}
	}
	if mut.Signature != "" {
		updateExpr += ", razorpay_signature = :sig"
		values[":sig"] = &types.AttributeValueMemberS{Value: mut.Signature}
	}
	if mut.PaymentTimestamp != nil {
		updateExpr += ", payment_timestamp = :pts"
		values[":pts"] = &types.AttributeValueMemberS{Value: mut.PaymentTimestamp.UTC().Format(time.RFC3339Nano)}
	}

	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: o.OrderID},
		},
		UpdateExpression:          &updateExpr,
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
		ConditionExpression:       awsString("#s = :expected"),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, err
	}

	var updated Order
	if err := attributevalue.UnmarshalMap(out.Attributes, &updated); err != nil {
		return nil, fmt.Errorf("unmarshal updated order: %w", err)
	}
	return &updated, nil
}

func awsString(s string) *string { return &s }
func awsInt32(n int32) *int32    { return &n }
