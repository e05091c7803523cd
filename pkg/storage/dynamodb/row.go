package dynamodb

import (
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type row struct {
	RowType       string                 `dynamodbav:"type"`
	RowID         string                 `dynamodbav:"id"`
	RowIdentifier string                 `dynamodbav:"identifier"`
	RowColumns    map[string]interface{} `dynamodbav:"columns"`
}

// guard holds an identifier for its owner row. Its primary key is the
// identifier itself, so claiming one is a conditional put.
type guard struct {
	GuardType string `dynamodbav:"type"`
	GuardID   string `dynamodbav:"id"`
	OwnerID   string `dynamodbav:"owner_id"`
}

func guardType(rowType string) string {
	return rowType + "#identifier"
}

func guardKey(rowType, identifier string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		storageKeyType: &types.AttributeValueMemberS{Value: guardType(rowType)},
		storageKeyID:   &types.AttributeValueMemberS{Value: identifier},
	}
}

func rowKey(rowType, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		storageKeyType: &types.AttributeValueMemberS{Value: rowType},
		storageKeyID:   &types.AttributeValueMemberS{Value: id},
	}
}

func itemToRow(item map[string]types.AttributeValue) (*row, error) {
	var r row
	err := attributevalue.UnmarshalMap(item, &r)
	if err != nil {
		return nil, err
	}
	r.RowColumns = normalizeColumns(r.RowColumns)
	return &r, nil
}

// normalizeColumns turns decoded lists back into []string.
func normalizeColumns(columns map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(columns))
	for k, v := range columns {
		switch value := v.(type) {
		case []interface{}:
			strs := make([]string, 0, len(value))
			for _, elem := range value {
				if s, ok := elem.(string); ok {
					strs = append(strs, s)
				}
			}
			out[k] = strs
		default:
			out[k] = value
		}
	}
	return out
}

func (r *row) Type() string                    { return r.RowType }
func (r *row) ID() string                      { return r.RowID }
func (r *row) Identifier() string              { return r.RowIdentifier }
func (r *row) Columns() map[string]interface{} { return r.RowColumns }
