package models

import (
	"encoding/json"
	"fmt"
)

func jsonBytes(value interface{}, kind string) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T for %s", value, kind)
	}
}

func scanJSON(value interface{}, dest interface{}, kind string) error {
	data, err := jsonBytes(value, kind)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", kind, err)
	}
	return nil
}
