/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/tablestore/storagemodels"
)

// SnapshotRows scans every item tagged with the table's entity type, page by
// page, and returns the decoded rows ordered by key.
func (t *Table) SnapshotRows(ctx context.Context) ([]storagemodels.Row, error) {
	if err := t.check(); err != nil {
		return nil, err
	}

	startTime := time.Now()
	var itemsProcessed int64
	var pageNumber int

	// Progress reporting helper
	reportProgress := func() {
		if t.options.ProgressHandler == nil {
			return
		}
		progress := storagemodels.ScanProgress{
			EntityType:     t.entityType.Name(),
			ItemsProcessed: itemsProcessed,
			PagesProcessed: pageNumber,
			StartTime:      startTime,
		}
		if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
			progress.CurrentRate = float64(itemsProcessed) / elapsed
		}
		t.options.ProgressHandler(progress)
	}

	input := &sdk.ScanInput{
		TableName:                aws.String(t.tableName),
		FilterExpression:         aws.String("#et = :et"),
		ExpressionAttributeNames: map[string]string{"#et": EntityTypeAttribute},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":et": &types.AttributeValueMemberS{Value: t.entityType.Name()},
		},
		ConsistentRead: aws.Bool(true),
	}
	if t.options.PageSize > 0 {
		input.Limit = aws.Int32(t.options.PageSize)
	}

	var rows []storagemodels.Row
	for {
		out, err := t.scanWithRetry(ctx, input)
		if err != nil {
			return nil, err
		}
		pageNumber++

		for _, item := range out.Items {
			row, err := t.decode(item)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
			itemsProcessed++
		}

		// Report progress after each page
		reportProgress()

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	storagemodels.SortRows(t.entityType, rows)
	return rows, nil
}

// decode converts an item back into a row, dropping the attributes the
// backend added on write unless the entity type maps them.
func (t *Table) decode(item map[string]types.AttributeValue) (storagemodels.Row, error) {
	var row map[string]any
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s item: %w", t.entityType.Name(), err)
	}
	synthetic := []string{EntityTypeAttribute}
	for k := range t.indexMap {
		synthetic = append(synthetic, k)
	}
	for _, k := range synthetic {
		if _, mapped := t.entityType.FindProperty(k); mapped {
			continue
		}
		if isKeyField(t.entityType.KeyFields(), k) {
			continue
		}
		delete(row, k)
	}
	return storagemodels.Row(row), nil
}

func isKeyField(keys []string, name string) bool {
	for _, k := range keys {
		if k == name {
			return true
		}
	}
	return false
}

// scanWithRetry executes a scan with configurable retry logic
func (t *Table) scanWithRetry(ctx context.Context, input *sdk.ScanInput) (*sdk.ScanOutput, error) {
	var lastErr error

	for attempt := 0; attempt <= t.options.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		out, err := t.client.Scan(ctx, input)
		if err == nil {
			return out, nil
		}

		lastErr = err

		if !isRetryableError(err) {
			return nil, fmt.Errorf("scan %s: %w", t.entityType.Name(), err)
		}

		// Don't sleep after last attempt
		if attempt < t.options.MaxRetries {
			backoff := time.Duration(attempt+1) * t.options.RetryBackoff
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("scan failed after %d retries: %w", t.options.MaxRetries, lastErr)
}

// isRetryableError determines if a DynamoDB error is retryable
func isRetryableError(err error) bool {
	var throughput *types.ProvisionedThroughputExceededException
	var limit *types.RequestLimitExceeded
	var internal *types.InternalServerError
	if errors.As(err, &throughput) || errors.As(err, &limit) || errors.As(err, &internal) {
		return true
	}

	// Check for AWS SDK retryable errors
	var awsErr interface{ IsRetryable() bool }
	if errors.As(err, &awsErr) {
		return awsErr.IsRetryable()
	}

	return false
}
