package postgres

import (
	"database/sql/driver"
	"fmt"

	json "github.com/goccy/go-json"
)

// Columns is a row's column map stored as JSONB.
type Columns map[string]interface{}

func (c Columns) Value() (driver.Value, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c)
}

func (c *Columns) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*c = Columns{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into columns", value)
	}

	decoded := map[string]interface{}{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*c = Columns(normalize(decoded))
	return nil
}

// normalize turns decoded JSON arrays back into []string.
func normalize(columns map[string]interface{}) map[string]interface{} {
	for k, v := range columns {
		list, ok := v.([]interface{})
		if !ok {
			continue
		}
		strs := make([]string, 0, len(list))
		for _, elem := range list {
			if s, ok := elem.(string); ok {
				strs = append(strs, s)
			}
		}
		columns[k] = strs
	}
	return columns
}
