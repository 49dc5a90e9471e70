package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// valueJSON marshals v for storage in a jsonb column.
func valueJSON(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb: %w", err)
	}
	return b, nil
}

// scanJSON unmarshals a jsonb column into dest. NULL leaves dest untouched.
func scanJSON(src interface{}, dest interface{}) error {
	if src == nil {
		return nil
	}

	var data []byte
	switch s := src.(type) {
	case []byte:
		data = s
	case string:
		data = []byte(s)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}

	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}
