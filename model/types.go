package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// StringMap is a flat string map persisted as a JSON text column.
type StringMap map[string]string

func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *StringMap) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*m = StringMap{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into StringMap", value)
	}
	if len(raw) == 0 {
		*m = StringMap{}
		return nil
	}
	out := StringMap{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

func (StringMap) GormDataType() string {
	return "text"
}

// ErrNotFound is returned by the datastore when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")
