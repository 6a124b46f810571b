package domain

import (
	"encoding/json"
	"fmt"
)

// DecodeRecord преобразует обобщенную запись хранилища в типизированную структуру.
func DecodeRecord(rec map[string]interface{}, v interface{}) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return nil
}
