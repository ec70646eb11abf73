package ddb

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/swarmdb/archive"
)

type MockDDBClient struct {
	mock.Mock
}

func (m *MockDDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*dynamodb.PutItemOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*dynamodb.QueryOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func item(version, runID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"log_name":   &types.AttributeValueMemberS{Value: "run.bin"},
		"version":    &types.AttributeValueMemberN{Value: version},
		"run_id":     &types.AttributeValueMemberS{Value: runID},
		"created_at": &types.AttributeValueMemberS{Value: "2026-01-02T03:04:05Z"},
	}
}

func versionIs(v string) any {
	return mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		n, ok := in.Item["version"].(*types.AttributeValueMemberN)
		return ok && n.Value == v && aws.ToString(in.ConditionExpression) == "attribute_not_exists(version)"
	})
}

func TestLatest(t *testing.T) {
	client := new(MockDDBClient)
	c := NewCatalog(client, "runs")

	client.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return aws.ToString(in.TableName) == "runs" && !aws.ToBool(in.ScanIndexForward) && aws.ToInt32(in.Limit) == 1
	})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item("4", "abc")}}, nil)

	e, err := c.Latest(context.Background(), "run.bin")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), e.Version)
	assert.Equal(t, "abc", e.RunID)
	assert.Equal(t, 2026, e.CreatedAt.Year())
	client.AssertExpectations(t)
}

func TestLatestEmpty(t *testing.T) {
	client := new(MockDDBClient)
	client.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil)

	_, err := NewCatalog(client, "runs").Latest(context.Background(), "run.bin")
	assert.ErrorIs(t, err, archive.ErrNoRuns)
}

func TestLatestInvalidItem(t *testing.T) {
	client := new(MockDDBClient)
	bad := item("x", "abc")
	client.On("Query", mock.Anything, mock.Anything).
		Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{bad}}, nil)

	_, err := NewCatalog(client, "runs").Latest(context.Background(), "run.bin")
	assert.Error(t, err)
}

func TestRecordFirstVersion(t *testing.T) {
	client := new(MockDDBClient)
	client.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil)
	client.On("PutItem", mock.Anything, versionIs("1")).Return(&dynamodb.PutItemOutput{}, nil)

	e, err := NewCatalog(client, "runs").Record(context.Background(), "run.bin", "r1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), e.Version)
	assert.Equal(t, "r1", e.RunID)
	client.AssertExpectations(t)
}

func TestRecordRetriesLostRace(t *testing.T) {
	client := new(MockDDBClient)
	client.On("Query", mock.Anything, mock.Anything).
		Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item("2", "a")}}, nil).Once()
	client.On("Query", mock.Anything, mock.Anything).
		Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item("3", "b")}}, nil).Once()
	client.On("PutItem", mock.Anything, versionIs("3")).
		Return(nil, &types.ConditionalCheckFailedException{}).Once()
	client.On("PutItem", mock.Anything, versionIs("4")).
		Return(&dynamodb.PutItemOutput{}, nil).Once()

	e, err := NewCatalog(client, "runs").Record(context.Background(), "run.bin", "c")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), e.Version)
	client.AssertExpectations(t)
}

func TestRecordConflict(t *testing.T) {
	client := new(MockDDBClient)
	client.On("Query", mock.Anything, mock.Anything).
		Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item("1", "a")}}, nil)
	client.On("PutItem", mock.Anything, mock.Anything).
		Return(nil, &types.ConditionalCheckFailedException{})

	_, err := NewCatalog(client, "runs", 2).Record(context.Background(), "run.bin", "z")
	assert.ErrorIs(t, err, archive.ErrConflict)
	client.AssertNumberOfCalls(t, "PutItem", 2)
}

func TestRecordError(t *testing.T) {
	client := new(MockDDBClient)
	boom := errors.New("throttled")
	client.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil)
	client.On("PutItem", mock.Anything, mock.Anything).Return(nil, boom)

	_, err := NewCatalog(client, "runs").Record(context.Background(), "run.bin", "z")
	assert.ErrorIs(t, err, boom)
	client.AssertNumberOfCalls(t, "PutItem", 1)
}
