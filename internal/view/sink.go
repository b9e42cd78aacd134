package view

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"clipstream/internal/video"
)

// StoreSink writes view events straight into the record store, which
// also maintains the views counter.
type StoreSink struct {
	store video.Store
}

var _ Sink = (*StoreSink)(nil)

func NewStoreSink(store video.Store) *StoreSink {
	return &StoreSink{store: store}
}

func (s *StoreSink) Record(ctx context.Context, ev video.ViewEvent) error {
	return s.store.InsertViewEvent(ctx, ev)
}

// SQSSink enqueues view events for the worker to apply asynchronously,
// keeping view writes off the watch request path.
type SQSSink struct {
	client   *sqs.Client
	queueURL string
}

var _ Sink = (*SQSSink)(nil)

// sqsViewMessage is the wire shape shared with cmd/worker.
type sqsViewMessage struct {
	VideoID  string  `json:"videoId"`
	ViewerID *string `json:"viewerId,omitempty"`
}

func NewSQSSink(queueURL string) (*SQSSink, error) {
	if queueURL == "" {
		return nil, fmt.Errorf("SQS queue URL cannot be empty")
	}

	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SQSSink{client: sqs.NewFromConfig(cfg), queueURL: queueURL}, nil
}

func (s *SQSSink) Record(ctx context.Context, ev video.ViewEvent) error {
	body, err := json.Marshal(sqsViewMessage{VideoID: ev.VideoID, ViewerID: ev.ViewerID})
	if err != nil {
		return fmt.Errorf("failed to marshal view event: %w", err)
	}

	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to send view event: %w", err)
	}

	return nil
}
