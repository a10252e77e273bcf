// Package naver adapts the Naver Local search API to the pipeline's
// PlaceSearcher interface.
package naver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/ppiankov/placecrawl/internal/cache"
	"github.com/ppiankov/placecrawl/internal/model"
	"github.com/ppiankov/placecrawl/internal/source"
)

const (
	// SourceName is recorded as the provenance of every Naver place
	SourceName = "NaverAPI"

	// DefaultBaseURL is the Naver open API host
	DefaultBaseURL = "https://openapi.naver.com"

	// display is the largest page the local endpoint serves
	display = 5

	// coordScale converts mapx/mapy integers to WGS84 degrees
	coordScale = 1e7
)

// Client calls the Naver Local search API
type Client struct {
	api          *source.Client
	clientID     string
	clientSecret string
	baseURL      string
	timeout      time.Duration
	maxStart     int
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another host (tests)
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithTimeout sets the per-attempt request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithMaxStart sets the largest start offset the endpoint accepts.
// The public local endpoint only serves start=1.
func WithMaxStart(n int) Option {
	return func(c *Client) { c.maxStart = n }
}

// New creates a Naver client
func New(clientID, clientSecret string, api *source.Client, opts ...Option) *Client {
	c := &Client{
		api:          api,
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      DefaultBaseURL,
		timeout:      10 * time.Second,
		maxStart:     1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provenance label
func (c *Client) Name() string {
	return SourceName
}

type localResponse struct {
	Total int `json:"total"`
	Start int `json:"start"`
	Items []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Category    string `json:"category"`
		Address     string `json:"address"`
		RoadAddress string `json:"roadAddress"`
		MapX        string `json:"mapx"`
		MapY        string `json:"mapy"`
	} `json:"items"`
}

// Search fetches one page of local search results
func (c *Client) Search(ctx context.Context, query string, page int) (*model.SearchPage, error) {
	query, err := source.ValidateQuery(query)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	start := (page-1)*display + 1
	if start > c.maxStart {
		return &model.SearchPage{IsLastPage: true}, nil
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("display", strconv.Itoa(display))
	params.Set("start", strconv.Itoa(start))
	params.Set("sort", "random")

	var resp localResponse
	err = c.api.GetJSON(ctx, source.Request{
		Source:  SourceName,
		Op:      "search",
		Query:   query,
		Page:    page,
		URL:     c.baseURL + "/v1/search/local.json?" + params.Encode(),
		Timeout: c.timeout,
		Header: http.Header{
			"X-Naver-Client-Id":     []string{c.clientID},
			"X-Naver-Client-Secret": []string{c.clientSecret},
		},
		CacheKey: cache.SearchKey(SourceName, query, page),
	}, &resp)
	if err != nil {
		return nil, err
	}

	out := &model.SearchPage{Documents: make([]model.Document, 0, len(resp.Items))}
	for _, item := range resp.Items {
		name := StripTags(item.Title)
		doc := model.Document{
			Name:        name,
			Category:    item.Category,
			RoadAddress: StripTags(item.RoadAddress),
			Address:     StripTags(item.Address),
			Lat:         scaleCoordinate(item.MapY),
			Lon:         scaleCoordinate(item.MapX),
		}
		doc.ID = syntheticID(doc)
		out.Documents = append(out.Documents, doc)
	}

	next := start + len(resp.Items)
	out.IsLastPage = len(resp.Items) < display || next > resp.Total || next > c.maxStart
	return out, nil
}

// StripTags removes markup such as the <b> highlights Naver puts around
// matched terms and decodes entities
func StripTags(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return strings.TrimSpace(b.String())
			}
			return strings.TrimSpace(s)
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}

// scaleCoordinate turns an integer mapx/mapy into decimal degrees;
// unparseable input yields "" so validation drops the document
func scaleCoordinate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return ""
	}
	return strconv.FormatFloat(v/coordScale, 'f', 7, 64)
}

// syntheticID derives a stable ID since the local API returns none.
// Links are not used because chain branches share one homepage.
func syntheticID(doc model.Document) string {
	key := strings.Join([]string{doc.Name, doc.RoadAddress, doc.Address, doc.Lat, doc.Lon}, "\x00")
	sum := sha256.Sum256([]byte(key))
	return "naver:" + hex.EncodeToString(sum[:8])
}
