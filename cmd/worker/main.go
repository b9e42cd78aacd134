// The worker drains the view-event queue and applies the events to the
// record store, keeping view writes off the watch request path.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"

	"clipstream/internal/video"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	_ = godotenv.Load()

	queueURL := os.Getenv("SQS_QUEUE_URL")
	if queueURL == "" {
		slog.Error("SQS_QUEUE_URL not set")
		os.Exit(1)
	}

	store, err := storeFromEnv()
	if err != nil {
		slog.Error("failed to create record store", "error", err)
		os.Exit(1)
	}

	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		slog.Error("failed to load aws config", "error", err)
		os.Exit(1)
	}
	sqsClient := sqs.NewFromConfig(cfg)

	slog.Info("view worker started", "queue_url", queueURL)

	for {
		out, err := sqsClient.ReceiveMessage(context.TODO(), &sqs.ReceiveMessageInput{
			QueueUrl:            &queueURL,
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
		})
		if err != nil {
			slog.Error("receive message error", "error", err)
			time.Sleep(5 * time.Second)
			continue
		}

		for _, m := range out.Messages {
			var payload struct {
				VideoID  string  `json:"videoId"`
				ViewerID *string `json:"viewerId"`
			}
			if err := json.Unmarshal([]byte(*m.Body), &payload); err != nil || payload.VideoID == "" {
				slog.Error("invalid message body", "error", err)
				// delete message to avoid poison
				sqsClient.DeleteMessage(context.TODO(), &sqs.DeleteMessageInput{
					QueueUrl:      &queueURL,
					ReceiptHandle: m.ReceiptHandle,
				})
				continue
			}

			jobLog := slog.With("video_id", payload.VideoID)

			if err := store.InsertViewEvent(context.TODO(), video.ViewEvent{
				VideoID:  payload.VideoID,
				ViewerID: payload.ViewerID,
			}); err != nil {
				jobLog.Error("failed to apply view event", "error", err)
				// leave the message for redelivery
				continue
			}

			jobLog.Info("view event applied")

			_, _ = sqsClient.DeleteMessage(context.TODO(), &sqs.DeleteMessageInput{
				QueueUrl:      &queueURL,
				ReceiptHandle: m.ReceiptHandle,
			})
		}
	}
}

func storeFromEnv() (video.Store, error) {
	storeType := os.Getenv("RECORD_STORE_TYPE")
	options := os.Getenv("RECORD_STORE_OPTIONS")

	switch storeType {
	case "sqlite":
		return video.NewSQLiteStore(options)
	case "postgres":
		return video.NewPostgresStore(options)
	case "dynamodb", "":
		if options == "" {
			options = "clipstream-videos-metadata"
		}
		return video.NewDynamoDBStore(options)
	default:
		return nil, fmt.Errorf("unsupported record store type: %s", storeType)
	}
}
