package conftree

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Listify returns v as a slice. A single string is wrapped rather than
// split into runes.
func Listify(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return val
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

// ToCamelCase turns snake_case into CamelCase: "two_step_nvt" -> "TwoStepNvt".
func ToCamelCase(s string) string {
	title := cases.Title(language.Und).String(strings.ReplaceAll(s, "_", " "))
	return strings.ReplaceAll(title, " ", "")
}
