package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/internal/slug"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/storage"
)

type Client struct {
	region    string
	tableName string
	keyARN    string

	ddb *dynamodb.Client
}

var _ storage.RowStorer = &Client{}

// NewClient connects to the table, creating it when it does not exist yet.
// optFns are passed to the DynamoDB client, e.g. to point BaseEndpoint at
// DynamoDB Local.
func NewClient(ctx context.Context, profile, region, tableName, keyARN string, optFns ...func(*dynamodb.Options)) (*Client, error) {
	this := &Client{
		region:    region,
		tableName: tableName,
		keyARN:    keyARN,
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	this.ddb = dynamodb.NewFromConfig(cfg, optFns...)

	err = this.createTableIfNotExists(ctx)
	if err != nil {
		return nil, err
	}

	return this, nil
}

const (
	storageKeyType = "type"
	storageKeyID   = "id"

	storageAttrIdentifier = "identifier"
	storageAttrColumns    = "columns"
	storageAttrOwnerID    = "owner_id"

	storageLSIByTypeAndIdentifier = "ByTypeAndIdentifier"

	tableActiveTimeout = 5 * time.Minute
)

func (client *Client) createTableIfNotExists(ctx context.Context) error {
	describeTableOutput, err := client.ddb.DescribeTable(ctx,
		&dynamodb.DescribeTableInput{
			TableName: aws.String(client.tableName),
		},
	)
	if err == nil {
		// table already exists
		if describeTableOutput != nil && describeTableOutput.Table != nil {
			tflog.Debug(ctx, fmt.Sprintf("table %s exists", client.tableName), map[string]interface{}{"tableID": aws.ToString(describeTableOutput.Table.TableId)})
		}
		return nil
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		var apiErr smithy.APIError
		var respErr *smithyhttp.ResponseError
		switch {
		case errors.As(err, &respErr) && respErr.Response != nil:
			tflog.Warn(ctx, fmt.Sprintf("DescribeTable failed with HTTP status %d: %s", respErr.Response.StatusCode, err.Error()))
		case errors.As(err, &apiErr):
			tflog.Warn(ctx, fmt.Sprintf("DescribeTable failed with %s: %s", apiErr.ErrorCode(), err.Error()))
		default:
			tflog.Warn(ctx, fmt.Sprintf("unexpected error during DescribeTable: %s", err.Error()))
		}
		return err
	}

	input := &dynamodb.CreateTableInput{
		TableName: aws.String(client.tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String(storageKeyType),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String(storageKeyID),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String(storageAttrIdentifier),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String(storageKeyType),
				KeyType:       types.KeyTypeHash,
			},
			{
				AttributeName: aws.String(storageKeyID),
				KeyType:       types.KeyTypeRange,
			},
		},
		LocalSecondaryIndexes: []types.LocalSecondaryIndex{
			{
				IndexName: aws.String(storageLSIByTypeAndIdentifier),
				KeySchema: []types.KeySchemaElement{
					{
						AttributeName: aws.String(storageKeyType),
						KeyType:       types.KeyTypeHash,
					},
					{
						AttributeName: aws.String(storageAttrIdentifier),
						KeyType:       types.KeyTypeRange,
					},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	}
	if client.keyARN != "" {
		input.SSESpecification = &types.SSESpecification{
			Enabled:        aws.Bool(true),
			SSEType:        types.SSETypeKms,
			KMSMasterKeyId: aws.String(client.keyARN),
		}
	}
	tflog.Info(ctx, fmt.Sprintf("creating table %s", client.tableName), map[string]interface{}{"region": client.region})
	_, err = client.ddb.CreateTable(ctx, input)
	if err != nil {
		return err
	}
	return dynamodb.NewTableExistsWaiter(client.ddb).Wait(ctx,
		&dynamodb.DescribeTableInput{TableName: aws.String(client.tableName)},
		tableActiveTimeout,
	)
}

var ErrNilQueryOutput = errors.New("something went wrong: the query output was nil")

func (client *Client) GetRowByID(ctx context.Context, rowType, id string) (storage.Row, error) {
	tflog.Debug(ctx, fmt.Sprintf("GetRowByID %q", id))
	return client.getRowByID(ctx, rowType, id)
}

func (client *Client) getRowByID(ctx context.Context, rowType, id string) (*row, error) {
	output, err := client.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(client.tableName),
		Key:            rowKey(rowType, id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if output.Item == nil {
		return nil, fmt.Errorf("%w: %q", storage.ErrNotFoundRow, id)
	}
	return itemToRow(output.Item)
}

func (client *Client) GetRow(ctx context.Context, rowType, identifier string) (storage.Row, error) {
	tflog.Debug(ctx, fmt.Sprintf("GetRow %q %q", rowType, identifier))
	rows, err := client.queryByIdentifier(ctx, rowType, identifier)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: type %q and identifier %q", storage.ErrNotFoundRow, rowType, identifier)
	}
	if len(rows) > 1 {
		return nil, fmt.Errorf("%w: type %q and identifier %q", storage.ErrTooManyFound, rowType, identifier)
	}
	return rows[0], nil
}

func (client *Client) FindRows(ctx context.Context, rowType, field, value string) ([]storage.Row, error) {
	tflog.Debug(ctx, fmt.Sprintf("FindRows %q %q %q", rowType, field, value))
	if field == storage.FieldIdentifier {
		return client.queryByIdentifier(ctx, rowType, value)
	}
	return client.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(client.tableName),
		KeyConditionExpression: aws.String("#type = :type"),
		FilterExpression:       aws.String("#columns.#field = :value"),
		ExpressionAttributeNames: map[string]string{
			"#type":    storageKeyType,
			"#columns": storageAttrColumns,
			"#field":   field,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":type":  &types.AttributeValueMemberS{Value: rowType},
			":value": &types.AttributeValueMemberS{Value: value},
		},
		ConsistentRead: aws.Bool(true),
	})
}

func (client *Client) queryByIdentifier(ctx context.Context, rowType, identifier string) ([]storage.Row, error) {
	return client.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(client.tableName),
		IndexName:              aws.String(storageLSIByTypeAndIdentifier),
		KeyConditionExpression: aws.String("#type = :type AND #identifier = :identifier"),
		ExpressionAttributeNames: map[string]string{
			"#type":       storageKeyType,
			"#identifier": storageAttrIdentifier,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":type":       &types.AttributeValueMemberS{Value: rowType},
			":identifier": &types.AttributeValueMemberS{Value: identifier},
		},
		ConsistentRead: aws.Bool(true),
	})
}

func (client *Client) queryAll(ctx context.Context, input *dynamodb.QueryInput) ([]storage.Row, error) {
	rows := []storage.Row{}
	paginator := dynamodb.NewQueryPaginator(client.ddb, input)
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		if output == nil {
			return nil, ErrNilQueryOutput
		}
		for _, item := range output.Items {
			r, err := itemToRow(item)
			if err != nil {
				return nil, err
			}
			rows = append(rows, r)
		}
	}
	return rows, nil
}

func (client *Client) ListRows(ctx context.Context, rowType, identifierFilter string) ([]storage.Row, error) {
	tflog.Debug(ctx, fmt.Sprintf("ListRows %q %q", rowType, identifierFilter))
	input := &dynamodb.QueryInput{
		TableName:              aws.String(client.tableName),
		IndexName:              aws.String(storageLSIByTypeAndIdentifier),
		KeyConditionExpression: aws.String("#type = :type"),
		ExpressionAttributeNames: map[string]string{
			"#type": storageKeyType,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":type": &types.AttributeValueMemberS{Value: rowType},
		},
	}
	if identifierFilter != "" {
		input.FilterExpression = aws.String("contains(#identifier, :identifier)")
		input.ExpressionAttributeNames["#identifier"] = storageAttrIdentifier
		input.ExpressionAttributeValues[":identifier"] = &types.AttributeValueMemberS{Value: identifierFilter}
	}
	return client.queryAll(ctx, input)
}

func (client *Client) CreateRow(ctx context.Context, rowType, identifier string, columns map[string]interface{}) (storage.Row, error) {
	tflog.Debug(ctx, fmt.Sprintf("CreateRow %q %q", rowType, identifier))
	if identifier == "" {
		return nil, storage.ErrMissingIdentifier
	}
	object := &row{
		RowType:       rowType,
		RowID:         slug.NewID(rowType),
		RowIdentifier: identifier,
		RowColumns:    storage.CopyColumns(columns),
	}

	item, err := attributevalue.MarshalMap(object)
	if err != nil {
		return nil, err
	}
	claim, err := client.putGuard(rowType, identifier, object.RowID)
	if err != nil {
		return nil, err
	}

	// the record and its identifier guard are written together, or not at all
	_, err = client.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:                aws.String(client.tableName),
					Item:                     item,
					ExpressionAttributeNames: map[string]string{"#id": storageKeyID},
					ConditionExpression:      aws.String("attribute_not_exists(#id)"),
				},
			},
			claim,
		},
	})
	if conditionFailedAt(err, 1) {
		return nil, fmt.Errorf("%w: type %q and identifier %q", storage.ErrCollisionIdentifier, rowType, identifier)
	}
	if err != nil {
		return nil, err
	}

	return object, nil
}

func (client *Client) UpdateRow(ctx context.Context, rowType, id, newIdentifier string, columns map[string]interface{}) (storage.Row, error) {
	tflog.Debug(ctx, fmt.Sprintf("UpdateRow %q %q %q", rowType, id, newIdentifier))
	if newIdentifier == "" {
		return nil, storage.ErrMissingIdentifier
	}
	current, err := client.getRowByID(ctx, rowType, id)
	if err != nil {
		return nil, err
	}

	object := &row{
		RowType:       rowType,
		RowID:         id,
		RowIdentifier: newIdentifier,
		RowColumns:    storage.CopyColumns(columns),
	}
	newColumns, err := attributevalue.Marshal(object.RowColumns)
	if err != nil {
		return nil, err
	}

	if current.RowIdentifier == newIdentifier {
		_, err = client.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:        aws.String(client.tableName),
			Key:              rowKey(rowType, id),
			UpdateExpression: aws.String("SET #columns = :new_columns"),
			ExpressionAttributeNames: map[string]string{
				"#columns": storageAttrColumns,
				"#id":      storageKeyID,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":new_columns": newColumns,
			},
			ConditionExpression: aws.String("attribute_exists(#id)"),
		})
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return nil, fmt.Errorf("%w: %q", storage.ErrNotFoundRow, id)
		}
		if err != nil {
			return nil, err
		}
		return object, nil
	}

	claim, err := client.putGuard(rowType, newIdentifier, id)
	if err != nil {
		return nil, err
	}
	_, err = client.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:        aws.String(client.tableName),
					Key:              rowKey(rowType, id),
					UpdateExpression: aws.String("SET #identifier = :new_identifier, #columns = :new_columns"),
					ExpressionAttributeNames: map[string]string{
						"#id":         storageKeyID,
						"#identifier": storageAttrIdentifier,
						"#columns":    storageAttrColumns,
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":new_identifier": &types.AttributeValueMemberS{Value: newIdentifier},
						":old_identifier": &types.AttributeValueMemberS{Value: current.RowIdentifier},
						":new_columns":    newColumns,
					},
					ConditionExpression: aws.String("attribute_exists(#id) AND #identifier = :old_identifier"),
				},
			},
			client.releaseGuard(rowType, current.RowIdentifier, id),
			claim,
		},
	})
	if conditionFailedAt(err, 2) {
		return nil, fmt.Errorf("%w: type %q and identifier %q", storage.ErrCollisionIdentifier, rowType, newIdentifier)
	}
	if conditionFailedAt(err, 0) || conditionFailedAt(err, 1) {
		return nil, fmt.Errorf("%w: %s %q", storage.ErrConcurrentModification, rowType, id)
	}
	if err != nil {
		return nil, err
	}
	return object, nil
}

func (client *Client) DeleteRow(ctx context.Context, rowType, id string) error {
	tflog.Debug(ctx, fmt.Sprintf("DeleteRow %q %q", rowType, id))
	current, err := client.getRowByID(ctx, rowType, id)
	if err != nil {
		return err
	}

	_, err = client.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Delete: &types.Delete{
					TableName:                aws.String(client.tableName),
					Key:                      rowKey(rowType, id),
					ExpressionAttributeNames: map[string]string{"#id": storageKeyID},
					ConditionExpression:      aws.String("attribute_exists(#id)"),
				},
			},
			client.releaseGuard(rowType, current.RowIdentifier, id),
		},
	})
	if conditionFailedAt(err, 0) || conditionFailedAt(err, 1) {
		return fmt.Errorf("%w: %s %q", storage.ErrConcurrentModification, rowType, id)
	}
	return err
}

func (client *Client) putGuard(rowType, identifier, ownerID string) (types.TransactWriteItem, error) {
	item, err := attributevalue.MarshalMap(&guard{
		GuardType: guardType(rowType),
		GuardID:   identifier,
		OwnerID:   ownerID,
	})
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName:                aws.String(client.tableName),
			Item:                     item,
			ExpressionAttributeNames: map[string]string{"#id": storageKeyID},
			ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		},
	}, nil
}

func (client *Client) releaseGuard(rowType, identifier, ownerID string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: aws.String(client.tableName),
			Key:       guardKey(rowType, identifier),
			ExpressionAttributeNames: map[string]string{
				"#owner_id": storageAttrOwnerID,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":owner_id": &types.AttributeValueMemberS{Value: ownerID},
			},
			ConditionExpression: aws.String("#owner_id = :owner_id"),
		},
	}
}

const reasonConditionalCheckFailed = "ConditionalCheckFailed"

// conditionFailedAt reports whether err is a cancelled transaction whose
// item at index failed its condition.
func conditionFailedAt(err error, index int) bool {
	if err == nil {
		return false
	}
	var cancelled *types.TransactionCanceledException
	if !errors.As(err, &cancelled) {
		return false
	}
	if index < 0 || index >= len(cancelled.CancellationReasons) {
		return false
	}
	return aws.ToString(cancelled.CancellationReasons[index].Code) == reasonConditionalCheckFailed
}
