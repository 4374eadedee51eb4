package protocol

import (
	"fmt"
	"sync"
	"time"
)

// IDGenerator issues strictly increasing command identifiers seeded from the
// wall clock, so identifiers stay unique across restarts.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

// Next returns the next identifier
func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// UserCommand creates or updates a user record on the terminal
func UserCommand(id int64, pin, name string) string {
	return fmt.Sprintf("C:%d:DATA USER PIN=%s\tName=%s", id, pin, name)
}

// BiodataCommand uploads a face template for pin. size is the decoded
// template length in bytes, template its base64 form.
func BiodataCommand(id int64, pin string, size int, template string) string {
	return fmt.Sprintf(
		"C:%d:DATA UPDATE BIODATA PIN=%s\tFID=1\tNo=0\tIndex=0\tType=9\tmajorVer=5\tminorVer=622\tFormat=0\tSize=%d\tValid=1\tTMP=%s",
		id, pin, size, template)
}

// DeleteUserCommand removes a user and their templates from the terminal
func DeleteUserCommand(id int64, pin string) string {
	return fmt.Sprintf("C:%d:DATA DELETE USERINFO PIN=%s", id, pin)
}
