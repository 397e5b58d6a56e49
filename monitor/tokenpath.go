package monitor

import (
	"fmt"
	"sort"
	"strings"
)

// TokenPathError reports a token path that did not resolve to a string.
type TokenPathError struct {
	Path string
	Keys []string
}

func (e *TokenPathError) Error() string {
	return fmt.Sprintf("Token not found at path %q. Response keys: %s", e.Path, strings.Join(e.Keys, ", "))
}

// ExtractTokenPath walks a dot-separated path through a decoded JSON value
// and returns the non-empty string found at the end of it.
func ExtractTokenPath(value any, path string) (string, error) {
	current := value
	for _, segment := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return "", newTokenPathError(value, path)
		}
		current, ok = obj[segment]
		if !ok {
			return "", newTokenPathError(value, path)
		}
	}

	token, ok := current.(string)
	if !ok || token == "" {
		return "", newTokenPathError(value, path)
	}
	return token, nil
}

func newTokenPathError(root any, path string) *TokenPathError {
	keys := []string{}
	if obj, ok := root.(map[string]any); ok {
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}
	return &TokenPathError{Path: path, Keys: keys}
}
