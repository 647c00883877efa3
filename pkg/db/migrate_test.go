package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema(t *testing.T) {
	statements, err := Schema(1536)
	require.NoError(t, err)
	require.Len(t, statements, 2)

	assert.Contains(t, statements[0], "F32_BLOB(1536)")
	assert.Contains(t, statements[0], "PRIMARY KEY (namespace, id)")
	assert.True(t, strings.HasPrefix(statements[1], "CREATE INDEX"))
}

func TestSchema_InvalidDimension(t *testing.T) {
	_, err := Schema(0)
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestOpen_MissingSettings(t *testing.T) {
	_, err := Open("", "token")
	assert.ErrorIs(t, err, ErrDatabaseURLRequired)

	_, err = Open("libsql://example.turso.io", "")
	assert.ErrorIs(t, err, ErrAuthTokenRequired)
}

func TestIsLocal(t *testing.T) {
	tests := []struct {
		description string
		url         string
		expected    bool
	}{
		{"local sqld", "http://127.0.0.1:8080", true},
		{"localhost", "ws://localhost:8080", true},
		{"turso", "libsql://db-org.turso.io", false},
		{"garbage", "://", false},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			assert.Equal(t, tt.expected, isLocal(tt.url))
		})
	}
}
