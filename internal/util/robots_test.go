package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func robotsServer(t *testing.T, body string, status int, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			if hits != nil {
				atomic.AddInt32(hits, 1)
			}
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRobotsChecker_CanFetch(t *testing.T) {
	body := "User-agent: *\nDisallow: /private/\nCrawl-delay: 2\n"
	srv := robotsServer(t, body, http.StatusOK, nil)
	checker := NewRobotsChecker("placecrawl/0.1", 2*time.Second)
	ctx := context.Background()

	allowed, delay, err := checker.CanFetch(ctx, srv.URL+"/img/a.jpg")
	if err != nil {
		t.Fatalf("CanFetch failed: %v", err)
	}
	if !allowed {
		t.Error("expected /img/a.jpg to be allowed")
	}
	if delay != 2*time.Second {
		t.Errorf("expected crawl delay 2s, got %v", delay)
	}

	if checker.IsAllowed(ctx, srv.URL+"/private/b.jpg") {
		t.Error("expected /private/b.jpg to be disallowed")
	}
}

func TestRobotsChecker_CachesPerHost(t *testing.T) {
	var hits int32
	srv := robotsServer(t, "User-agent: *\nAllow: /\n", http.StatusOK, &hits)
	checker := NewRobotsChecker("placecrawl", time.Second)

	for i := 0; i < 3; i++ {
		checker.IsAllowed(context.Background(), srv.URL+"/x.jpg")
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("expected one robots.txt fetch, got %d", got)
	}

	checker.Clear()
	checker.IsAllowed(context.Background(), srv.URL+"/x.jpg")
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Errorf("expected refetch after Clear, got %d", got)
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	srv := robotsServer(t, "", http.StatusNotFound, nil)
	checker := NewRobotsChecker("placecrawl", time.Second)
	if !checker.IsAllowed(context.Background(), srv.URL+"/anything.jpg") {
		t.Error("expected missing robots.txt to allow everything")
	}
}

func TestRobotsChecker_ServerErrorDisallows(t *testing.T) {
	srv := robotsServer(t, "", http.StatusServiceUnavailable, nil)
	checker := NewRobotsChecker("placecrawl", time.Second)
	if checker.IsAllowed(context.Background(), srv.URL+"/origin/1.jpg") {
		t.Error("expected a 5xx robots.txt to disallow everything")
	}
}

func TestRobotsChecker_UnreachableAllows(t *testing.T) {
	srv := robotsServer(t, "", http.StatusOK, nil)
	addr := srv.URL
	srv.Close()

	checker := NewRobotsChecker("placecrawl", time.Second)
	if !checker.IsAllowed(context.Background(), addr+"/origin/1.jpg") {
		t.Error("expected an unreachable robots.txt to allow")
	}
}

func TestRobotsChecker_RejectsNonHTTP(t *testing.T) {
	checker := NewRobotsChecker("placecrawl", time.Second)
	if _, _, err := checker.CanFetch(context.Background(), "ftp://example.com/a.jpg"); err == nil {
		t.Error("expected an error for a non-http URL")
	}
	if checker.IsAllowed(context.Background(), "ftp://example.com/a.jpg") {
		t.Error("expected non-http URL to be filtered out")
	}
}

func TestRobotsChecker_ConcurrentLookupsFetchOnce(t *testing.T) {
	var hits int32
	srv := robotsServer(t, "User-agent: *\nDisallow: /thumb/\n", http.StatusOK, &hits)
	checker := NewRobotsCheckerWithClient("placecrawl", srv.Client())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checker.IsAllowed(context.Background(), srv.URL+"/origin/1.jpg")
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("expected one robots.txt fetch, got %d", got)
	}
}

func TestRobotsChecker_FilterAllowed(t *testing.T) {
	srv := robotsServer(t, "User-agent: *\nDisallow: /thumb/\n", http.StatusOK, nil)
	checker := NewRobotsCheckerWithClient("placecrawl/0.1 (+https://example.com)", srv.Client())

	urls := []string{srv.URL + "/origin/1.jpg", srv.URL + "/thumb/2.jpg", srv.URL + "/origin/3.jpg"}
	got := checker.FilterAllowed(context.Background(), urls)

	if len(got) != 2 || got[0] != urls[0] || got[1] != urls[2] {
		t.Errorf("expected first and third URL, got %v", got)
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"placecrawl/0.1 (+https://example.com)": "placecrawl",
		"Mozilla/5.0":                           "Mozilla",
		"":                                      "",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}
