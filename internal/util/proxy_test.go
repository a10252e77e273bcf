package util

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/ppiankov/placecrawl/internal/model"
)

func mustRequest(t *testing.T, rawURL string) *http.Request {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Request{URL: u}
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://plain:8080", "http://secure:8443", "localhost, .internal.example")

	tests := []struct {
		url  string
		want string
	}{
		{"https://dapi.kakao.com/v2/local/search/keyword.json", "http://secure:8443"},
		{"http://t1.daumcdn.net/img.jpg", "http://plain:8080"},
		{"http://localhost:9000/", ""},
		{"https://api.internal.example/", ""},
		{"https://internal.example/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := proxy(mustRequest(t, tt.url))
			if err != nil {
				t.Fatalf("proxy failed: %v", err)
			}
			if tt.want == "" {
				if got != nil {
					t.Errorf("expected no proxy, got %v", got)
				}
				return
			}
			if got == nil || got.String() != tt.want {
				t.Errorf("expected %s, got %v", tt.want, got)
			}
		})
	}
}

func TestNewProxyFunc_HTTPOnly(t *testing.T) {
	proxy := NewProxyFunc("http://plain:8080", "", "")
	got, err := proxy(mustRequest(t, "https://openapi.naver.com/"))
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Host != "plain:8080" {
		t.Errorf("expected https traffic to fall back to the http proxy, got %v", got)
	}
}

func TestNewHTTPClient(t *testing.T) {
	cfg := model.HTTPConfig{HTTPSProxy: "http://secure:8443"}
	client := NewHTTPClient(cfg, 3*time.Second)

	if client.Timeout != 3*time.Second {
		t.Errorf("expected timeout 3s, got %v", client.Timeout)
	}
	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
	got, err := transport.Proxy(mustRequest(t, "https://dapi.kakao.com/"))
	if err != nil || got == nil || got.Host != "secure:8443" {
		t.Errorf("expected configured proxy, got %v (%v)", got, err)
	}
}
