package clientip

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealClientIP(t *testing.T) {
	for remote, want := range map[string]string{
		"203.0.113.9:443":  "203.0.113.9",
		"203.0.113.9":      "203.0.113.9",
		"[2001:db8::1]:80": "2001:db8::1",
		"2001:db8::1":      "2001:db8::1",
		" 10.0.0.1 ":       "10.0.0.1",
	} {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = remote
		assert.Equal(t, want, RealClientIP(req), remote)
	}
}

func TestParseNetworks(t *testing.T) {
	nets, err := ParseNetworks([]string{"10.0.0.0/8", " 192.0.2.1 ", "2001:db8::/32", "::1"})
	require.NoError(t, err)
	require.Len(t, nets, 4)

	for _, bad := range []string{"10.0.0.0/33", "not-an-ip", ""} {
		_, err := ParseNetworks([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestFromNetworks(t *testing.T) {
	nets, err := ParseNetworks([]string{"10.0.0.0/8", "192.0.2.1", "::1"})
	require.NoError(t, err)

	for remote, want := range map[string]bool{
		"10.1.2.3:5000":    true,
		"192.0.2.1:80":     true,
		"192.0.2.2:80":     false,
		"[::1]:8080":       true,
		"[2001:db8::1]:80": false,
		"garbage":          false,
	} {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = remote
		assert.Equal(t, want, FromNetworks(req, nets), remote)
	}
	assert.False(t, FromNetworks(httptest.NewRequest("GET", "/", nil), nil))
}
