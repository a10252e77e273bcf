// Package kakao adapts the Kakao Local keyword search and Kakao image search
// APIs to the pipeline's searcher interfaces.
package kakao

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/placecrawl/internal/cache"
	"github.com/ppiankov/placecrawl/internal/model"
	"github.com/ppiankov/placecrawl/internal/source"
)

const (
	// SourceName is recorded as the provenance of every Kakao place
	SourceName = "KakaoAPI"

	// DefaultBaseURL is the Kakao developers API host
	DefaultBaseURL = "https://dapi.kakao.com"

	// pageSize is the largest page the keyword endpoint serves
	pageSize = 15
)

// Client calls the Kakao REST APIs
type Client struct {
	api           *source.Client
	apiKey        string
	baseURL       string
	searchTimeout time.Duration
	imageTimeout  time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another host (tests)
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithTimeouts sets the per-attempt timeouts of search and image calls
func WithTimeouts(search, image time.Duration) Option {
	return func(c *Client) {
		c.searchTimeout = search
		c.imageTimeout = image
	}
}

// New creates a Kakao client authenticating with a REST API key
func New(apiKey string, api *source.Client, opts ...Option) *Client {
	c := &Client{
		api:           api,
		apiKey:        apiKey,
		baseURL:       DefaultBaseURL,
		searchTimeout: 10 * time.Second,
		imageTimeout:  15 * time.Second,
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

type keywordResponse struct {
	Documents []struct {
		ID              string `json:"id"`
		PlaceName       string `json:"place_name"`
		CategoryName    string `json:"category_name"`
		RoadAddressName string `json:"road_address_name"`
		AddressName     string `json:"address_name"`
		X               string `json:"x"`
		Y               string `json:"y"`
	} `json:"documents"`
	Meta struct {
		IsEnd *bool `json:"is_end"`
	} `json:"meta"`
}

// Search fetches one page of the keyword search endpoint
func (c *Client) Search(ctx context.Context, query string, page int) (*model.SearchPage, error) {
	query, err := source.ValidateQuery(query)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("size", strconv.Itoa(pageSize))
	params.Set("page", strconv.Itoa(page))

	var resp keywordResponse
	err = c.api.GetJSON(ctx, source.Request{
		Source:   SourceName,
		Op:       "search",
		Query:    query,
		Page:     page,
		URL:      c.baseURL + "/v2/local/search/keyword.json?" + params.Encode(),
		Header:   c.authHeader(),
		Timeout:  c.searchTimeout,
		CacheKey: cache.SearchKey(SourceName, query, page),
	}, &resp)
	if err != nil {
		return nil, err
	}

	out := &model.SearchPage{
		Documents: make([]model.Document, 0, len(resp.Documents)),
		// a response without meta.is_end is treated as the last page
		IsLastPage: resp.Meta.IsEnd == nil || *resp.Meta.IsEnd,
	}
	for _, d := range resp.Documents {
		out.Documents = append(out.Documents, model.Document{
			ID:          d.ID,
			Name:        d.PlaceName,
			Category:    d.CategoryName,
			RoadAddress: d.RoadAddressName,
			Address:     d.AddressName,
			Lat:         d.Y,
			Lon:         d.X,
		})
	}
	return out, nil
}

type imageResponse struct {
	Documents []struct {
		ImageURL string `json:"image_url"`
	} `json:"documents"`
}

// SearchImages returns up to count original-size image URLs, best match first
func (c *Client) SearchImages(ctx context.Context, query string, count int) ([]string, error) {
	query, err := source.ValidateQuery(query)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("sort", "accuracy")
	params.Set("size", strconv.Itoa(count))

	var resp imageResponse
	err = c.api.GetJSON(ctx, source.Request{
		Source:   SourceName,
		Op:       "image",
		Query:    query,
		URL:      c.baseURL + "/v2/search/image?" + params.Encode(),
		Header:   c.authHeader(),
		Timeout:  c.imageTimeout,
		CacheKey: cache.ImageKey(SourceName, query, count),
	}, &resp)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, count)
	for _, d := range resp.Documents {
		if !strings.HasPrefix(d.ImageURL, "http") {
			continue
		}
		urls = append(urls, OriginalImageURL(d.ImageURL))
		if len(urls) == count {
			break
		}
	}
	return urls, nil
}

func (c *Client) authHeader() http.Header {
	return http.Header{"Authorization": []string{"KakaoAK " + c.apiKey}}
}

var (
	qualitySuffix = regexp.MustCompile(`\.q\d+`)
	sizeSegment   = regexp.MustCompile(`/[RC]\d+x\d+/`)
	sizeToken     = regexp.MustCompile(`[RC]\d+x\d+`)
)

// OriginalImageURL rewrites Daum/Kakao CDN thumbnail URLs to the
// original-size variant. Other URLs are returned unchanged.
func OriginalImageURL(src string) string {
	if !strings.Contains(src, "//t1.daumcdn.net/") && !strings.Contains(src, "//img1.kakaocdn.net/") {
		return src
	}
	src = qualitySuffix.ReplaceAllString(src, "")
	src = sizeSegment.ReplaceAllString(src, "/origin/")
	return sizeToken.ReplaceAllString(src, "origin")
}
