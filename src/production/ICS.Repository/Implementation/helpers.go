package implementation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key namespaces inside the key-value store
const (
	devicePrefix  = "devices:"
	commandPrefix = "commands:"
	userPrefix    = "users:"
)

func deviceKey(serial string) string { return devicePrefix + serial }

func commandKey(day string) string { return commandPrefix + day }

func userKey(pin string) string { return userPrefix + pin }

func encodeValue(value interface{}) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}
	return raw, nil
}

func decodeValue(raw []byte, dst interface{}) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return nil
}

// likePrefix escapes LIKE wildcards in prefix and appends the match-all suffix
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
