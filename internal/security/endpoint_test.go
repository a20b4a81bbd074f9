package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSiteURL_Development(t *testing.T) {
	// Anything parseable with an http(s) host is fine outside production.
	assert.NoError(t, ValidateSiteURL("http://localhost:3000", false))
	assert.NoError(t, ValidateSiteURL("http://127.0.0.1:3000", false))
	assert.NoError(t, ValidateSiteURL("https://app.example.com", false))

	assert.Error(t, ValidateSiteURL("ftp://example.com", false))
	assert.Error(t, ValidateSiteURL("https://", false))
	assert.Error(t, ValidateSiteURL("://bad", false))
}

func TestValidateSiteURL_Production(t *testing.T) {
	assert.NoError(t, ValidateSiteURL("https://app.example.com", true))
	assert.NoError(t, ValidateSiteURL("https://app.example.com/base", true))

	tests := []struct {
		name string
		url  string
	}{
		{"plain http", "http://app.example.com"},
		{"localhost", "https://localhost:3000"},
		{"loopback ip", "https://127.0.0.1"},
		{"private ip", "https://10.0.0.5"},
		{"link local", "https://169.254.1.1"},
		{"unspecified", "https://0.0.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidateSiteURL(tt.url, true))
		})
	}
}
