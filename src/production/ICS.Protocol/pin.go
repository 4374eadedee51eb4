package protocol

import "strings"

const pinMarker = "PIN="

// ExtractPin returns the value of the PIN= field of a command payload, up to
// the next tab. The marker only counts at the start of the payload or after
// a space, tab or colon. A missing marker or an empty value yields false.
func ExtractPin(command string) (string, bool) {
	offset := 0
	for {
		i := strings.Index(command[offset:], pinMarker)
		if i < 0 {
			return "", false
		}
		i += offset
		if i == 0 || strings.ContainsRune(" \t:", rune(command[i-1])) {
			value := command[i+len(pinMarker):]
			if end := strings.IndexAny(value, "\t\r\n"); end >= 0 {
				value = value[:end]
			}
			value = strings.TrimSpace(value)
			if value == "" {
				return "", false
			}
			return value, true
		}
		offset = i + len(pinMarker)
	}
}
