package security

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIPDirect(t *testing.T) {
	c := NewClientIPResolver()

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.9:4312"
	assert.Equal(t, "203.0.113.9", c.ClientIP(r))
}

func TestClientIPForwardedFromTrustedProxy(t *testing.T) {
	c := NewClientIPResolver()

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.5:9000"
	r.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.5")
	assert.Equal(t, "198.51.100.7", c.ClientIP(r))
}

func TestClientIPIgnoresForwardedFromUntrustedPeer(t *testing.T) {
	c := NewClientIPResolver()

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.9:4312"
	r.Header.Set("X-Forwarded-For", "198.51.100.7")
	assert.Equal(t, "203.0.113.9", c.ClientIP(r))
}

func TestClientIPFallsBackOnGarbageHeader(t *testing.T) {
	c := NewClientIPResolver()

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "127.0.0.1:5000"
	r.Header.Set("X-Forwarded-For", "not-an-ip")
	r.Header.Set("X-Real-IP", "198.51.100.8")
	assert.Equal(t, "198.51.100.8", c.ClientIP(r))
}

func TestAddTrustedProxy(t *testing.T) {
	c := NewClientIPResolver()
	require.NoError(t, c.AddTrustedProxy("100.64.0.0/10"))
	assert.Error(t, c.AddTrustedProxy("not-a-cidr"))

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "100.64.0.1:9000"
	r.Header.Set("X-Forwarded-For", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", c.ClientIP(r))
}
