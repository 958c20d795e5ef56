package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"rfc3339", `"2024-01-02T03:04:05Z"`, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"with offset", `"2024-01-02T12:04:05+09:00"`, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"zoneless micros", `"2024-01-02T03:04:05.123456"`, time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC)},
		{"zoneless seconds", `"2024-01-02T03:04:05"`, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"null", `null`, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.in), &ts))
			assert.True(t, tt.want.Equal(ts.Time), "got %s", ts.Time)
		})
	}
}

func TestTimestampUnmarshal_Invalid(t *testing.T) {
	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
	assert.Error(t, json.Unmarshal([]byte(`12345`), &ts))
}

func TestDocumentDecodesBackendTimestamp(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"school":"開成","created_at":"2024-01-02T03:04:05.5"}`), &doc))
	assert.Equal(t, "2024-01-02", doc.CreatedAt.Format("2006-01-02"))

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"created_at":"2024-01-02T03:04:05.5Z"`)
}
