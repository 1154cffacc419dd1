// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

const (
	analysisCompletedEvent = "lease.analysis.completed"
	maxSubjectLength       = 100
)

// SNSAPI is the subset of the SNS client used here.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// AnalysisCompletedEvent is published once per fresh analysis.
type AnalysisCompletedEvent struct {
	AnalysisID string    `json:"analysis_id"`
	DealName   string    `json:"deal_name"`
	Convention string    `json:"convention"`
	NER        float64   `json:"ner"`
	GER        float64   `json:"ger"`
	OccurredAt time.Time `json:"occurred_at"`
}

type SNSClient struct {
	client   SNSAPI
	topicARN string
}

func NewSNSClient(ctx context.Context, region, topicARN string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SNSClient{client: sns.NewFromConfig(cfg), topicARN: topicARN}, nil
}

// NewSNSClientWithAPI builds a publisher over any SNSAPI implementation.
func NewSNSClientWithAPI(api SNSAPI, topicARN string) *SNSClient {
	return &SNSClient{client: api, topicARN: topicARN}
}

func (s *SNSClient) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	return s.client.Publish(ctx, input)
}

// PublishAnalysisCompleted sends the event as JSON with an event_type
// attribute for subscription filtering.
func (s *SNSClient) PublishAnalysisCompleted(ctx context.Context, event AnalysisCompletedEvent) (string, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal analysis event: %w", err)
	}

	subject := "Lease analysis completed: " + event.DealName
	if len(subject) > maxSubjectLength {
		subject = subject[:maxSubjectLength]
	}

	out, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(s.topicARN),
		Subject:  awssdk.String(subject),
		Message:  awssdk.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {DataType: awssdk.String("String"), StringValue: awssdk.String(analysisCompletedEvent)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("publish analysis %s: %w", event.AnalysisID, err)
	}
	return awssdk.ToString(out.MessageId), nil
}
