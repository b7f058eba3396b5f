package utils

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/gridworks/tabeng/core"
)

// RowFromStruct converts a Go struct into a core.Row via its JSON
// representation, honoring json tags. Nested structs become nested
// map[string]any values, which the pipeline's accessor and the
// flattener both understand.
//
// The input must be a struct or a non-nil pointer to one.
func RowFromStruct[T any](record T) (core.Row, error) {
	val := reflect.ValueOf(record)
	if !val.IsValid() {
		return nil, fmt.Errorf("input record cannot be nil")
	}
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, fmt.Errorf("input record cannot be a nil pointer to a struct")
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("input record must be a struct, got %s", val.Kind())
	}

	raw, err := json.Marshal(val.Interface())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	var row core.Row
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record into row: %w", err)
	}
	return row, nil
}

// RowsFromStructs converts a slice of structs into pipeline rows.
func RowsFromStructs[T any](records []T) ([]core.Row, error) {
	rows := make([]core.Row, 0, len(records))
	for i, record := range records {
		row, err := RowFromStruct(record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
