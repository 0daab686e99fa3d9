package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// MetadataMap is an opaque JSON object column used for provenance and
// configuration hints on catalog records
type MetadataMap map[string]any

// Value implements the driver.Valuer interface for MetadataMap
func (m MetadataMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(MetadataMap{})
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for MetadataMap
func (m *MetadataMap) Scan(value any) error {
	if value == nil {
		*m = MetadataMap{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into MetadataMap", value)
	}

	return json.Unmarshal(bytes, m)
}

// GetString returns the string value under key, if present
func (m MetadataMap) GetString(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	s, ok := m[key].(string)
	return s, ok
}

// GetBool returns the boolean value under key, false when absent
func (m MetadataMap) GetBool(key string) bool {
	if m == nil {
		return false
	}
	b, ok := m[key].(bool)
	return ok && b
}

// GetFloat returns the numeric value under key, if present. JSON numbers
// arrive as float64; integers stored programmatically are converted.
func (m MetadataMap) GetFloat(key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
