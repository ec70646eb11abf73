// Package ddb implements archive.Catalog on Amazon DynamoDB.
//
// Every pushed run becomes one item keyed by log name and version. Versions
// are claimed with a conditional write, so concurrent pushers of the same
// log never overwrite each other.
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name swarmdb-runs \
//	  --attribute-definitions AttributeName=log_name,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=log_name,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package ddb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/swarmdb/archive"
)

// Client is the subset of the DynamoDB API the catalog uses.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Catalog implements archive.Catalog.
type Catalog struct {
	client     Client
	table      string
	maxRetries int
}

var _ archive.Catalog = (*Catalog)(nil)

// NewCatalog creates a catalog on table. A lost version race is retried
// up to maxRetries times (default 3) before ErrConflict is returned.
func NewCatalog(client Client, table string, maxRetries ...int) *Catalog {
	n := 3
	if len(maxRetries) > 0 && maxRetries[0] > 0 {
		n = maxRetries[0]
	}
	return &Catalog{client: client, table: table, maxRetries: n}
}

// Record claims the next version of name for runID.
func (c *Catalog) Record(ctx context.Context, name, runID string) (archive.Entry, error) {
	for range c.maxRetries {
		latest, err := c.Latest(ctx, name)
		if err != nil && !errors.Is(err, archive.ErrNoRuns) {
			return archive.Entry{}, err
		}

		e := archive.Entry{
			Name:      name,
			Version:   latest.Version + 1,
			RunID:     runID,
			CreatedAt: time.Now().UTC(),
		}
		_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(c.table),
			Item: map[string]types.AttributeValue{
				"log_name":   &types.AttributeValueMemberS{Value: e.Name},
				"version":    &types.AttributeValueMemberN{Value: strconv.FormatUint(e.Version, 10)},
				"run_id":     &types.AttributeValueMemberS{Value: e.RunID},
				"created_at": &types.AttributeValueMemberS{Value: e.CreatedAt.Format(time.RFC3339Nano)},
			},
			ConditionExpression: aws.String("attribute_not_exists(version)"),
		})
		if err == nil {
			return e, nil
		}
		var condErr *types.ConditionalCheckFailedException
		if !errors.As(err, &condErr) {
			return archive.Entry{}, fmt.Errorf("record run %s: %w", runID, err)
		}
	}
	return archive.Entry{}, archive.ErrConflict
}

// Latest returns the entry with the highest version for name.
func (c *Catalog) Latest(ctx context.Context, name string) (archive.Entry, error) {
	resp, err := c.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.table),
		KeyConditionExpression: aws.String("log_name = :name"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name": &types.AttributeValueMemberS{Value: name},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
		ConsistentRead:   aws.Bool(true),
	})
	if err != nil {
		return archive.Entry{}, fmt.Errorf("query catalog: %w", err)
	}
	if len(resp.Items) == 0 {
		return archive.Entry{}, archive.ErrNoRuns
	}
	return decodeEntry(name, resp.Items[0])
}

func decodeEntry(name string, item map[string]types.AttributeValue) (archive.Entry, error) {
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return archive.Entry{}, errors.New("invalid version attribute in catalog")
	}
	runAttr, ok := item["run_id"].(*types.AttributeValueMemberS)
	if !ok {
		return archive.Entry{}, errors.New("invalid run_id attribute in catalog")
	}

	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return archive.Entry{}, fmt.Errorf("parse version: %w", err)
	}
	e := archive.Entry{Name: name, Version: version, RunID: runAttr.Value}
	if ts, ok := item["created_at"].(*types.AttributeValueMemberS); ok {
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts.Value)
	}
	return e, nil
}
