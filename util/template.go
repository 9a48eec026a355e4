package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/oliveagle/jsonpath"
	"github.com/richarddahl/ruleflow/model"
)

var tokenRe = regexp.MustCompile(`{{(.*?)}}`)

// Render substitutes {{payload.field}} style tokens in a template against the
// event payload. Tokens address payload fields (nested paths allowed), the
// event attributes entity_type/operation/timestamp, or an entry of vars whose
// value is itself rendered against the payload. Unresolvable tokens render to
// an empty string.
func Render(template string, event model.Event, vars map[string]string) string {
	return tokenRe.ReplaceAllStringFunc(template, func(token string) string {
		name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(token, "{{"), "}}"))
		switch {
		case strings.HasPrefix(name, "payload."):
			value, ok := LookupPath(event.Payload, strings.TrimPrefix(name, "payload."))
			if !ok {
				return ""
			}
			return formatValue(value)
		case name == "entity_type":
			return event.EntityType
		case name == "operation":
			return string(event.Operation)
		case name == "timestamp":
			return formatValue(event.Timestamp)
		default:
			if v, ok := vars[name]; ok {
				return Render(v, event, nil)
			}
			return ""
		}
	})
}

// json numbers decode as float64; %v would print large ones scientifically
func formatValue(value any) string {
	if f, ok := value.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", value)
}

// LookupPath resolves a dotted field path inside a payload map. A plain name
// indexes the top level directly; dotted names go through jsonpath so nested
// structures resolve the same way expressions do elsewhere in the engine.
func LookupPath(payload map[string]any, path string) (any, bool) {
	if payload == nil {
		return nil, false
	}
	if !strings.Contains(path, ".") {
		v, ok := payload[path]
		return v, ok
	}
	value, err := jsonpath.JsonPathLookup(payload, "$."+path)
	if err != nil {
		return nil, false
	}
	return value, true
}
