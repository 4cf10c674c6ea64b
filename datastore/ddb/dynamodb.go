/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/tablestore/datastore"
	serrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/registry"
	"github.com/suparena/tablestore/storagemodels"
)

// EntityTypeAttribute is the item attribute naming the entity type of a row.
const EntityTypeAttribute = "EntityType"

// API is the subset of the DynamoDB client used by the backend.
type API interface {
	DescribeTable(ctx context.Context, params *sdk.DescribeTableInput, optFns ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *sdk.CreateTableInput, optFns ...func(*sdk.Options)) (*sdk.CreateTableOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
}

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// expandMacros replaces each {Field} of the index map templates with the
// matching value of the row. A missing field makes the entry malformed.
func expandMacros(indexMap map[string]string, values storagemodels.Row) (map[string]string, error) {
	// Convert values to a map of attribute values
	av, err := attributevalue.MarshalMap(map[string]any(values))
	if err != nil {
		return nil, serrors.NewValidationError("", fmt.Sprintf("failed to marshal values: %v", err))
	}

	res := make(map[string]string, len(indexMap))
	var missing string

	for fieldName, template := range indexMap {
		expanded := macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
			key := strings.Trim(macro, "{}")

			val, ok := av[key]
			if !ok {
				missing = key
				return ""
			}

			switch tv := val.(type) {
			case *types.AttributeValueMemberS:
				return tv.Value
			case *types.AttributeValueMemberN:
				return tv.Value
			case *types.AttributeValueMemberBOOL:
				return fmt.Sprintf("%v", tv.Value)
			case *types.AttributeValueMemberNULL:
				missing = key
				return ""
			default:
				// binary and set values cannot be part of a key
				missing = key
				return ""
			}
		})
		res[fieldName] = expanded
	}

	if missing != "" {
		return nil, serrors.NewValidationError(missing, "key value is missing or not a scalar")
	}
	return res, nil
}

// NewDynamoDBClient initializes a DynamoDB client. Static credentials are used
// when both keys are set; otherwise the default AWS credential chain applies.
// A non-empty endpoint targets DynamoDB Local or another compatible service.
func NewDynamoDBClient(ctx context.Context, awsRegion, awsAccessKey, awsSecretKey, endpoint string) (*sdk.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(awsRegion)}
	if awsAccessKey != "" && awsSecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(awsAccessKey, awsSecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := sdk.NewFromConfig(cfg, func(o *sdk.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	slog.Debug("DynamoDB client initialized", "region", awsRegion, "endpoint", endpoint)
	return client, nil
}

// TableFactory builds tables stored in a single DynamoDB table.
type TableFactory struct {
	client      API
	scanOptions storagemodels.ScanOptions
	waitTimeout time.Duration

	mu        sync.RWMutex
	tableName string
}

// FactoryOption configures a TableFactory.
type FactoryOption func(*TableFactory)

// WithScanOptions sets the paging and retry behavior of snapshots.
func WithScanOptions(opts ...storagemodels.ScanOption) FactoryOption {
	return func(f *TableFactory) {
		for _, o := range opts {
			o(&f.scanOptions)
		}
	}
}

// WithTableWait bounds how long Open waits for a newly created table to become active.
func WithTableWait(d time.Duration) FactoryOption {
	return func(f *TableFactory) { f.waitTimeout = d }
}

// NewTableFactory creates a factory over client.
func NewTableFactory(client API, opts ...FactoryOption) *TableFactory {
	f := &TableFactory{
		client:      client,
		scanOptions: storagemodels.DefaultScanOptions(),
		waitTimeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Open binds the factory to the DynamoDB table name, creating the table with
// string PK and SK keys and on-demand billing when it does not exist.
func (f *TableFactory) Open(ctx context.Context, name string) error {
	if name == "" {
		return serrors.NewValidationError("name", "DynamoDB table name is required")
	}

	_, err := f.client.DescribeTable(ctx, &sdk.DescribeTableInput{TableName: aws.String(name)})
	if err != nil {
		var nf *types.ResourceNotFoundException
		if !errors.As(err, &nf) {
			return fmt.Errorf("DescribeTable %s: %w", name, err)
		}
		if err := f.createTable(ctx, name); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.tableName = name
	return nil
}

func (f *TableFactory) createTable(ctx context.Context, name string) error {
	_, err := f.client.CreateTable(ctx, &sdk.CreateTableInput{
		TableName: aws.String(name),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("PK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("SK"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("PK"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("SK"), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return fmt.Errorf("CreateTable %s: %w", name, err)
		}
	}

	waiter := sdk.NewTableExistsWaiter(f.client)
	if err := waiter.Wait(ctx, &sdk.DescribeTableInput{TableName: aws.String(name)}, f.waitTimeout); err != nil {
		return fmt.Errorf("wait for table %s: %w", name, err)
	}
	slog.Info("DynamoDB table created", "table", name)
	return nil
}

// TableName returns the bound DynamoDB table name.
func (f *TableFactory) TableName() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.tableName
}

// Create returns a table for the entity type.
func (f *TableFactory) Create(ctx context.Context, entityType *registry.EntityType) (datastore.Table, error) {
	name := f.TableName()
	if name == "" {
		return nil, serrors.ErrStoreClosed
	}
	return &Table{
		client:     f.client,
		factory:    f,
		tableName:  name,
		entityType: entityType,
		indexMap:   entityType.IndexMap(),
		options:    f.scanOptions,
	}, nil
}

// Close unbinds the factory. The client is owned by the caller.
func (f *TableFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tableName = ""
	return nil
}

// Table stores the rows of one entity type as items tagged with EntityType.
type Table struct {
	client     API
	factory    *TableFactory
	tableName  string
	entityType *registry.EntityType
	indexMap   map[string]string
	options    storagemodels.ScanOptions
}

func (t *Table) check() error {
	if t.factory.TableName() == "" {
		return serrors.ErrStoreClosed
	}
	return nil
}

// buildKeyFromExpanded builds a DynamoDB key from the expanded index map.
func buildKeyFromExpanded(expanded map[string]string) (map[string]types.AttributeValue, error) {
	pk, okPK := expanded["PK"]
	sk, okSK := expanded["SK"]

	if !okPK || !okSK || pk == "" || sk == "" {
		return nil, serrors.NewValidationError("PK", "expanded index map missing valid PK or SK")
	}

	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}, nil
}

func (t *Table) item(entry *storagemodels.Entry) (map[string]types.AttributeValue, string, error) {
	key, err := entry.Key()
	if err != nil {
		return nil, "", err
	}
	av, err := attributevalue.MarshalMap(map[string]any(entry.Values))
	if err != nil {
		return nil, "", serrors.NewValidationError("", fmt.Sprintf("failed to marshal entity: %v", err))
	}
	expanded, err := expandMacros(t.indexMap, entry.Values)
	if err != nil {
		return nil, "", err
	}
	if _, err := buildKeyFromExpanded(expanded); err != nil {
		return nil, "", err
	}
	for k, v := range expanded {
		av[k] = &types.AttributeValueMemberS{Value: v}
	}
	av[EntityTypeAttribute] = &types.AttributeValueMemberS{Value: t.entityType.Name()}
	return av, key, nil
}

func (t *Table) put(ctx context.Context, entry *storagemodels.Entry, condition string, onFailed func(key string) error) error {
	if err := t.check(); err != nil {
		return err
	}
	av, key, err := t.item(entry)
	if err != nil {
		return err
	}
	_, err = t.client.PutItem(ctx, &sdk.PutItemInput{
		TableName:           aws.String(t.tableName),
		Item:                av,
		ConditionExpression: aws.String(condition),
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return onFailed(key)
		}
		return fmt.Errorf("PutItem failed: %w", err)
	}
	return nil
}

// Create puts a new item, failing when the key is taken.
func (t *Table) Create(ctx context.Context, entry *storagemodels.Entry) error {
	return t.put(ctx, entry, "attribute_not_exists(PK)", func(key string) error {
		return serrors.NewAlreadyExistsError(t.entityType.Name(), key)
	})
}

// Update overwrites an existing item.
func (t *Table) Update(ctx context.Context, entry *storagemodels.Entry) error {
	return t.put(ctx, entry, "attribute_exists(PK)", func(key string) error {
		return serrors.NewNotFoundError(t.entityType.Name(), key)
	})
}

// Delete removes an existing item.
func (t *Table) Delete(ctx context.Context, entry *storagemodels.Entry) error {
	if err := t.check(); err != nil {
		return err
	}
	key, err := entry.Key()
	if err != nil {
		return err
	}
	expanded, err := expandMacros(t.indexMap, entry.Values)
	if err != nil {
		return err
	}
	keyMap, err := buildKeyFromExpanded(expanded)
	if err != nil {
		return err
	}

	_, err = t.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName:           aws.String(t.tableName),
		Key:                 keyMap,
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return serrors.NewNotFoundError(t.entityType.Name(), key)
		}
		return fmt.Errorf("failed to delete item in DynamoDB: %w", err)
	}
	return nil
}
