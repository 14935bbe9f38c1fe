package invoice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestElapsedTime(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		createdAt string
		expected  string
	}{
		{"seconds", "2024-03-10T11:59:15Z", "Hace 45s"},
		{"minutes", "2024-03-10T11:56:48Z", "Hace 3m 12s"},
		{"hours", "2024-03-10T09:35:00Z", "Hace 2h 25m"},
		{"days", "2024-03-08T07:00:00Z", "Hace 2d 5h"},
		{"future", "2024-03-10T12:00:05Z", "Ahora"},
		{"blank", "", ""},
		{"garbage", "not a time", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ElapsedTime(tt.createdAt, now))
		})
	}
}
