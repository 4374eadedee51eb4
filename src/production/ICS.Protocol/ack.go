package protocol

import (
	"errors"
	"fmt"
	"strings"

	icsmodels "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Models"
)

// ErrProtocolDecode marks an inbound terminal payload that could not be parsed
var ErrProtocolDecode = errors.New("protocol decode error")

// ParseAck decodes a /iclock/devicecmd body: one ID=..&Return=..&CMD=..
// record per line. An empty body carries no reports.
func ParseAck(body string) ([]icsmodels.AckReport, error) {
	var reports []icsmodels.AckReport

	for n, line := range splitLines(body) {
		fields := parseFields(line, "&")
		id, ok := fields["ID"]
		if !ok || id == "" {
			return reports, fmt.Errorf("%w: line %d has no ID field: %q", ErrProtocolDecode, n+1, line)
		}
		reports = append(reports, icsmodels.AckReport{
			ID:     id,
			Return: fields["Return"],
			Cmd:    fields["CMD"],
		})
	}
	return reports, nil
}

// ParseUpload splits a POST /iclock/cdata body into its non-empty records.
func ParseUpload(body string) []string {
	return splitLines(body)
}

func splitLines(body string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func parseFields(line, sep string) map[string]string {
	fields := make(map[string]string)
	for _, part := range strings.Split(line, sep) {
		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return fields
}
