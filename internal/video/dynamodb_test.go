package video

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
)

func TestWrapConditionFailure(t *testing.T) {
	// The SDK surfaces a failed attribute_exists condition as a typed
	// exception inside its operation error chain.
	conditionErr := fmt.Errorf("operation error DynamoDB: UpdateItem: %w",
		&types.ConditionalCheckFailedException{})

	assert.ErrorIs(t, wrapConditionFailure(conditionErr, "failed to update visibility"), ErrNotFound)

	other := errors.New("throughput exceeded")
	wrapped := wrapConditionFailure(other, "failed to delete item")
	assert.NotErrorIs(t, wrapped, ErrNotFound)
	assert.ErrorIs(t, wrapped, other)
}
