package metrics

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/karmagully/checkout-backend/internal/aws"
)

// Emitter publishes checkout counters to CloudWatch. Emission is strictly
// best-effort: a metrics failure is logged and swallowed, never surfaced to
// the request. A nil *Emitter is valid and drops everything.
type Emitter struct {
	client    aws.CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

func NewEmitter(client aws.CloudWatchAPI, namespace string) *Emitter {
	return &Emitter{
		client:    client,
		namespace: namespace,
		nowFunc:   time.Now,
	}
}

// WebhookProcessed counts one handled webhook delivery by event type and outcome
// (applied, noop, dropped, error).
func (e *Emitter) WebhookProcessed(ctx context.Context, event, outcome string) {
	e.count(ctx, "WebhookProcessed", []cwtypes.Dimension{
		{Name: awsString("Event"), Value: awsString(event)},
		{Name: awsString("Outcome"), Value: awsString(outcome)},
	})
}

// SignatureFailure counts one rejected signature by trust boundary
// (webhook, verify-payment).
func (e *Emitter) SignatureFailure(ctx context.Context, boundary string) {
	e.count(ctx, "SignatureFailure", []cwtypes.Dimension{
		{Name: awsString("Boundary"), Value: awsString(boundary)},
	})
}

func (e *Emitter) count(ctx context.Context, name string, dims []cwtypes.Dimension) {
	if e == nil || e.client == nil {
		return
	}
	now := e.nowFunc()
	_, err := e.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: &e.namespace,
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: &name,
				Dimensions: dims,
				Timestamp:  &now,
				Value:      awsFloat64(1),
				Unit:       cwtypes.StandardUnitCount,
			},
		},
	})
	if err != nil {
		log.Printf("metrics: put %s failed: %v", name, err)
	}
}

func awsString(s string) *string    { return &s }
func awsFloat64(f float64) *float64 { return &f }
