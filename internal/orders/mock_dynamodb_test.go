package orders

import (
	"context"
	"errors"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// simpleMock is a small in-memory mock for the DynamoDB calls the store
// makes. It implements just enough of the expression language used here.
type simpleMock struct {
	mu    sync.Mutex
	table map[string]map[string]types.AttributeValue

	failAll     error // when set, every call returns this error
	putCalls    int
	getCalls    int
	updateCalls int
	queryCalls  int
	scanCalls   int

	// beforeUpdate runs inside UpdateItem before the condition check, used
	// to simulate a concurrent writer winning the race.
	beforeUpdate func()
}

func newSimpleMock() *simpleMock {
	return &simpleMock{table: map[string]map[string]types.AttributeValue{}}
}

func strVal(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (m *simpleMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.failAll != nil {
		return nil, m.failAll
	}
	k := strVal(params.Item["order_id"])
	if k == "" {
		return nil, errors.New("missing order_id")
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(order_id)" {
		if _, ok := m.table[k]; ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.table[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *simpleMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.failAll != nil {
		return nil, m.failAll
	}
	k := strVal(params.Key["order_id"])
	item, ok := m.table[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *simpleMock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	hook := m.beforeUpdate
	m.beforeUpdate = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.failAll != nil {
		return nil, m.failAll
	}
	k := strVal(params.Key["order_id"])
	item, ok := m.table[k]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}
	// condition: #s = :expected
	if params.ConditionExpression != nil && strings.Contains(*params.ConditionExpression, ":expected") {
		expected := strVal(params.ExpressionAttributeValues[":expected"])
		if strVal(item["status"]) != expected {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	for marker, attr := range map[string]string{
		":new": "status",
		":ua":  "updated_at",
		":pid": "razorpay_payment_id",
		":sig": "razorpay_signature",
		":pts": "payment_timestamp",
	} {
		if v, ok := params.ExpressionAttributeValues[marker]; ok {
			item[attr] = v
		}
	}
	m.table[k] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *simpleMock) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCalls++
	if m.failAll != nil {
		return nil, m.failAll
	}
	// only the razorpay_order_id GSI query is supported
	want := strVal(params.ExpressionAttributeValues[":oid"])
	out := &dyn.QueryOutput{}
	for _, item := range m.table {
		if strVal(item["razorpay_order_id"]) == want {
			out.Items = append(out.Items, item)
			break
		}
	}
	return out, nil
}

func (m *simpleMock) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanCalls++
	if m.failAll != nil {
		return nil, m.failAll
	}
	out := &dyn.ScanOutput{}
	for _, item := range m.table {
		out.Items = append(out.Items, item)
	}
	return out, nil
}
