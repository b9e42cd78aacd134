package video

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// DynamoDBStore implements Store using DynamoDB. Videos live in
// tableName; view events in tableName-views.
type DynamoDBStore struct {
	client     *dynamodb.Client
	tableName  string
	viewsTable string
}

var _ Store = (*DynamoDBStore)(nil)

// videoItem represents the DynamoDB item structure.
type videoItem struct {
	ID           string  `dynamodbav:"id"`
	OwnerID      string  `dynamodbav:"owner_id"`
	Title        string  `dynamodbav:"title"`
	Description  *string `dynamodbav:"description"`
	VideoURL     string  `dynamodbav:"video_url"`
	ThumbnailURL *string `dynamodbav:"thumbnail_url"`
	IsPublic     bool    `dynamodbav:"is_public"`
	ViewsCount   int64   `dynamodbav:"views_count"`
	CreatedAt    int64   `dynamodbav:"created_at"` // Unix timestamp
}

type viewEventItem struct {
	ID        string  `dynamodbav:"id"`
	VideoID   string  `dynamodbav:"video_id"`
	ViewerID  *string `dynamodbav:"viewer_id"`
	CreatedAt int64   `dynamodbav:"created_at"`
}

func NewDynamoDBStore(tableName string) (*DynamoDBStore, error) {
	if tableName == "" {
		return nil, fmt.Errorf("DynamoDB table name cannot be empty")
	}

	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &DynamoDBStore{
		client:     dynamodb.NewFromConfig(cfg),
		tableName:  tableName,
		viewsTable: tableName + "-views",
	}, nil
}

func (s *DynamoDBStore) Insert(ctx context.Context, v *Video) (*Video, error) {
	created := *v
	created.ID = uuid.NewString()
	created.CreatedAt = time.Now().UTC()

	av, err := attributevalue.MarshalMap(toItem(&created))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put item: %w", err)
	}

	return &created, nil
}

func (s *DynamoDBStore) Get(ctx context.Context, id string) (*Video, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var item videoItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}

	return fromItem(item), nil
}

func (s *DynamoDBStore) ListPublic(ctx context.Context) ([]Video, error) {
	return s.scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(s.tableName),
		FilterExpression: aws.String("is_public = :pub"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pub": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
}

func (s *DynamoDBStore) ListByOwner(ctx context.Context, ownerID string, includePrivate bool) ([]Video, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(s.tableName),
		FilterExpression: aws.String("owner_id = :owner"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: ownerID},
		},
	}
	if !includePrivate {
		input.FilterExpression = aws.String("owner_id = :owner AND is_public = :pub")
		input.ExpressionAttributeValues[":pub"] = &types.AttributeValueMemberBOOL{Value: true}
	}
	return s.scan(ctx, input)
}

func (s *DynamoDBStore) scan(ctx context.Context, input *dynamodb.ScanInput) ([]Video, error) {
	result, err := s.client.Scan(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to scan table: %w", err)
	}

	var items []videoItem
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}

	videos := make([]Video, 0, len(items))
	for _, item := range items {
		videos = append(videos, *fromItem(item))
	}
	sort.Slice(videos, func(i, j int) bool {
		return videos[i].CreatedAt.After(videos[j].CreatedAt)
	})

	return videos, nil
}

func (s *DynamoDBStore) SetVisibility(ctx context.Context, id string, public bool) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:    aws.String("SET is_public = :pub"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pub": &types.AttributeValueMemberBOOL{Value: public},
		},
	})
	if err != nil {
		return wrapConditionFailure(err, "failed to update visibility")
	}
	return nil
}

func (s *DynamoDBStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	if err != nil {
		return wrapConditionFailure(err, "failed to delete item")
	}
	return nil
}

// wrapConditionFailure maps a failed attribute_exists condition to
// ErrNotFound, mirroring requireAffected in the SQL stores.
func wrapConditionFailure(err error, msg string) error {
	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func (s *DynamoDBStore) InsertViewEvent(ctx context.Context, ev ViewEvent) error {
	av, err := attributevalue.MarshalMap(viewEventItem{
		ID:        uuid.NewString(),
		VideoID:   ev.VideoID,
		ViewerID:  ev.ViewerID,
		CreatedAt: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal view event: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.viewsTable),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put view event: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: ev.VideoID},
		},
		UpdateExpression: aws.String("ADD views_count :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to increment views count: %w", err)
	}

	return nil
}

func toItem(v *Video) videoItem {
	return videoItem{
		ID:           v.ID,
		OwnerID:      v.OwnerID,
		Title:        v.Title,
		Description:  v.Description,
		VideoURL:     v.VideoURL,
		ThumbnailURL: v.ThumbnailURL,
		IsPublic:     v.IsPublic,
		ViewsCount:   v.ViewsCount,
		CreatedAt:    v.CreatedAt.Unix(),
	}
}

func fromItem(item videoItem) *Video {
	return &Video{
		ID:           item.ID,
		OwnerID:      item.OwnerID,
		Title:        item.Title,
		Description:  item.Description,
		VideoURL:     item.VideoURL,
		ThumbnailURL: item.ThumbnailURL,
		IsPublic:     item.IsPublic,
		ViewsCount:   item.ViewsCount,
		CreatedAt:    time.Unix(item.CreatedAt, 0),
	}
}
