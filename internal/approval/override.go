package approval

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
)

// ParseOverride parses user-supplied replacement arguments. Blank input
// means "no override" and yields nil. Anything other than a JSON object is
// a validation error.
func ParseOverride(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, errors.NewInvalidArgsError(err)
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.NewInvalidArgsError(fmt.Errorf("got %s, want an object", kindOf(v)))
	}
	return obj, nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "an array"
	case string:
		return "a string"
	case float64:
		return "a number"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
