package work

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// IDList is an ordered list of work identifiers, stored as a JSON array.
type IDList []string

// Value implements driver.Valuer. An empty list is stored as [] rather than NULL.
func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for TEXT (SQLite) and JSONB (PostgreSQL) columns.
func (l *IDList) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case nil:
		*l = IDList{}
		return nil
	default:
		return fmt.Errorf("scanning id list: unsupported type %T", src)
	}

	ids := []string{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &ids); err != nil {
			return fmt.Errorf("scanning id list: %w", err)
		}
	}
	*l = ids
	return nil
}

// MarshalJSON always renders an array, never null.
func (l IDList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}
