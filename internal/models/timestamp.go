package models

import (
	"bytes"
	"fmt"
	"time"
)

// zonelessLayout is how the backend writes naive UTC datetimes.
const zonelessLayout = "2006-01-02T15:04:05.999999999"

// Timestamp accepts RFC 3339 as well as timestamps without an offset, which
// are read as UTC.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("timestamp: expected a JSON string, got %s", b)
	}
	s := string(b[1 : len(b)-1])
	if s == "" {
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.ParseInLocation(zonelessLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	t.Time = parsed
	return nil
}
