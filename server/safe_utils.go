package server

import (
	"fmt"
)

// Helper functions to safely extract socket event arguments without panicking

func getFloat64(val any) (float64, error) {
	if v, ok := val.(float64); ok {
		return v, nil
	}
	if v, ok := val.(int); ok {
		return float64(v), nil
	}
	return 0, fmt.Errorf("expected float64, got %T", val)
}

func getString(val any) (string, error) {
	if v, ok := val.(string); ok {
		return v, nil
	}
	return "", fmt.Errorf("expected string, got %T", val)
}

// getArgAsFloat64 safely gets the argument at index i as a float64 (or int converted to float64)
func getArgAsFloat64(args []any, index int) (float64, error) {
	if index >= len(args) {
		return 0, fmt.Errorf("argument index %d out of range", index)
	}
	return getFloat64(args[index])
}

// getArgAsString safely gets the argument at index i as a string
func getArgAsString(args []any, index int) (string, error) {
	if index >= len(args) {
		return "", fmt.Errorf("argument index %d out of range", index)
	}
	return getString(args[index])
}

// getCallback returns the trailing ack function, if the client sent one.
func getCallback(args []any) func([]any, error) {
	if len(args) > 0 {
		if cb, ok := args[len(args)-1].(func([]any, error)); ok {
			return cb
		}
	}
	return nil
}
