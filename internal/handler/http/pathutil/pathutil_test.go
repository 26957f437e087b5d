package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		segment string
		want    int64
		wantErr bool
	}{
		{"7", 7, false},
		{"9223372036854775807", 9223372036854775807, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"12x", 0, true},
		{"9223372036854775808", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.segment, func(t *testing.T) {
			got, err := ParseID(tt.segment)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidID)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/cases/7/notifications", "/cases/:id/notifications"},
		{"/cases/123456/notifications/", "/cases/:id/notifications"},
		{"/cases/abc/notifications?x=1", "/cases/:id/notifications"},
		{"/cases/7", "/cases/:id"},
		{"/notification-types", "/notification-types"},
		{"/health/ready", "/health/ready"},
		{"/metrics", "/metrics"},
		{"/wp-admin/setup.php", "other"},
		{"/", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.path))
		})
	}
}
