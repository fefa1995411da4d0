package metadata

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain takes first hop", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:555", "203.0.113.7"},
		{"real ip header", map[string]string{"X-Real-IP": " 198.51.100.4 "}, "10.0.0.2:555", "198.51.100.4"},
		{"ipv4 remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"ipv6 remote addr", nil, "[::1]:8080", "::1"},
		{"empty remote addr", nil, "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(r))
		})
	}
}

func TestClientMetadata(t *testing.T) {
	var ip, ua string
	h := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, ua = GetClientIP(r.Context()), GetUserAgent(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("User-Agent", "adjuster-app/2.1")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "192.0.2.1", ip)
	assert.Equal(t, "adjuster-app/2.1", ua)
}

func TestDeviceLabel(t *testing.T) {
	t.Run("empty header", func(t *testing.T) {
		assert.Equal(t, "unknown", DeviceLabel("  "))
	})

	t.Run("crawler", func(t *testing.T) {
		assert.Equal(t, "bot", DeviceLabel("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"))
	})

	t.Run("desktop browser", func(t *testing.T) {
		label := DeviceLabel("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		assert.True(t, strings.HasPrefix(label, "Chrome/"), label)
		assert.False(t, strings.HasSuffix(label, "/mobile"), label)
	})

	t.Run("handset", func(t *testing.T) {
		label := DeviceLabel("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
		assert.True(t, strings.HasSuffix(label, "/mobile"), label)
	})
}

func TestClientMetadataStoresDevice(t *testing.T) {
	var device string
	h := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		device = GetDevice(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "unknown", device)
}
