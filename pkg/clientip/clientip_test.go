package clientip

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRealClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remote     string
		forwarded  string
		realIP     string
		trustProxy bool
		want       string
	}{
		{"remote addr", "10.0.0.7:5123", "", "", false, "10.0.0.7"},
		{"no port", "10.0.0.7", "", "", false, "10.0.0.7"},
		{"spoofed header ignored", "10.0.0.7:5123", "1.2.3.4", "", false, "10.0.0.7"},
		{"first forwarded hop", "10.0.0.7:5123", "1.2.3.4, 10.0.0.1", "", true, "1.2.3.4"},
		{"real ip header", "10.0.0.7:5123", "", "5.6.7.8", true, "5.6.7.8"},
		{"garbage header falls back", "10.0.0.7:5123", "not-an-ip", "", true, "10.0.0.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, RealClientIP(r, tt.trustProxy))
		})
	}
}
