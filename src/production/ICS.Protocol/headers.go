package protocol

import (
	"net/http"
	"time"
)

// ContentType of every terminal-facing response
const ContentType = "text/plain"

// WriteHeaders sets the headers terminal firmware expects on every call:
// no caching, a GMT date and a closed connection.
func WriteHeaders(h http.Header, now time.Time, server string) {
	h.Set("Content-Type", ContentType)
	h.Set("Cache-Control", "no-store")
	h.Set("Pragma", "no-cache")
	h.Set("Date", now.UTC().Format(http.TimeFormat))
	h.Set("Connection", "close")
	if server != "" {
		h.Set("Server", server)
	}
}
