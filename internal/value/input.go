package value

import (
	"encoding/json"
	"strings"
)

// ParseInput interprets text typed into a cell.
//
// Empty input and "null" give Null, "true"/"false" give Bool (any case),
// a double-quoted JSON string or a single-quoted string gives String with
// the quotes removed, numeric text gives Number, and anything else is kept
// as the trimmed String.
func ParseInput(input string) Value {
	s := strings.TrimSpace(input)

	if s == "" || strings.EqualFold(s, "null") {
		return Null()
	}
	if strings.EqualFold(s, "true") {
		return Bool(true)
	}
	if strings.EqualFold(s, "false") {
		return Bool(false)
	}

	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var unquoted string
		if err := json.Unmarshal([]byte(s), &unquoted); err == nil {
			return String(unquoted)
		}
	}
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return String(s[1 : len(s)-1])
	}

	if n, ok := ParseNumber(s); ok {
		return n
	}
	return String(s)
}
