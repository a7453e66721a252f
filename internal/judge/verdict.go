package judge

import (
	"encoding/json"
	"reflect"
	"strings"
)

// OutputsMatch compares program output with the expected answer. Both sides
// are trimmed; when both parse as JSON they are compared structurally,
// otherwise literally.
func OutputsMatch(actual, expected string) bool {
	a := strings.TrimSpace(actual)
	e := strings.TrimSpace(expected)

	var av, ev interface{}
	if json.Unmarshal([]byte(a), &av) == nil && json.Unmarshal([]byte(e), &ev) == nil {
		return reflect.DeepEqual(av, ev)
	}
	return a == e
}
