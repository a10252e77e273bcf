package util

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsChecker decides whether image URLs may be attached to a place.
// Each host's robots.txt is fetched at most once per run, even when several
// keyword workers ask for it at the same moment.
type RobotsChecker struct {
	httpClient *http.Client
	userAgent  string

	mu    sync.Mutex
	hosts map[string]*hostRobots
}

type hostRobots struct {
	once sync.Once
	data *robotstxt.RobotsData // nil when robots.txt was unreachable
}

// NewRobotsChecker creates a checker with its own client
func NewRobotsChecker(userAgent string, timeout time.Duration) *RobotsChecker {
	return NewRobotsCheckerWithClient(userAgent, &http.Client{Timeout: timeout})
}

// NewRobotsCheckerWithClient uses client for robots.txt fetches, so proxy
// settings apply to them as well
func NewRobotsCheckerWithClient(userAgent string, client *http.Client) *RobotsChecker {
	return &RobotsChecker{
		httpClient: client,
		userAgent:  NormalizeUserAgent(userAgent),
		hosts:      make(map[string]*hostRobots),
	}
}

// CanFetch reports whether robots.txt permits rawURL and the crawl delay the
// host asks for. An unreachable robots.txt permits everything; a 5xx answer
// forbids everything.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false, 0, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	data := r.robotsFor(ctx, u)
	if data == nil {
		return true, 0, nil
	}

	target := u.EscapedPath()
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	var delay time.Duration
	if group := data.FindGroup(r.userAgent); group != nil {
		delay = group.CrawlDelay
	}
	return data.TestAgent(target, r.userAgent), delay, nil
}

func (r *RobotsChecker) robotsFor(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	origin := u.Scheme + "://" + u.Host

	r.mu.Lock()
	entry, ok := r.hosts[origin]
	if !ok {
		entry = &hostRobots{}
		r.hosts[origin] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		data, err := r.fetch(ctx, origin+"/robots.txt")
		if err == nil {
			entry.data = data
		}
	})
	return entry.data
}

func (r *RobotsChecker) fetch(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// 4xx means allow-all, 5xx disallow-all
	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}

// Clear forgets every host's robots.txt
func (r *RobotsChecker) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hosts = make(map[string]*hostRobots)
}

// IsAllowed reports only the permission; malformed URLs are not allowed
func (r *RobotsChecker) IsAllowed(ctx context.Context, rawURL string) bool {
	allowed, _, err := r.CanFetch(ctx, rawURL)
	return err == nil && allowed
}

// FilterAllowed keeps the URLs robots.txt permits, preserving order
func (r *RobotsChecker) FilterAllowed(ctx context.Context, urls []string) []string {
	var allowed []string
	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		if r.IsAllowed(ctx, u) {
			allowed = append(allowed, u)
		}
	}
	return allowed
}

// NormalizeUserAgent reduces a User-Agent header to the product token that
// robots.txt groups match against: "placecrawl/0.1 (+url)" -> "placecrawl"
func NormalizeUserAgent(ua string) string {
	fields := strings.Fields(ua)
	if len(fields) == 0 {
		return ua
	}
	product, _, _ := strings.Cut(fields[0], "/")
	return product
}
