package ai

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

// GenerateSchema reflects a Go type into a JSON schema for constrained
// model output. The schema is inlined and closed so the recognizer and
// synthesis responses cannot carry fields the target type has no home for.
func GenerateSchema(value any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return reflector.Reflect(reflect.New(t).Interface())
}

// UnmarshalFlexible parses model output into out, tolerating the usual
// damage: a JSON object quoted as a string, unquoted keys, a stray
// doubled opening brace. Plain unmarshaling is tried first, repair only
// when it fails.
func UnmarshalFlexible(input string, out any) error {
	input = strings.TrimSpace(input)

	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	// output wrapped in a JSON string, unwrap and retry
	var quoted string
	if err := json.Unmarshal([]byte(input), &quoted); err == nil {
		quoted = strings.TrimSpace(quoted)
		if err := json.Unmarshal([]byte(quoted), out); err == nil {
			return nil
		}
		input = quoted
	}

	input = dropDoubledBrace(input)
	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("repair model output: %w (input: %s)", err, input)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("unmarshal repaired output %q: %w", repaired, err)
	}
	return nil
}

func dropDoubledBrace(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		rest := strings.TrimSpace(s[1:])
		if strings.HasPrefix(rest, "{") {
			return rest
		}
	}
	return s
}
