package kakao

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ppiankov/placecrawl/internal/source"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New("test-key", source.NewClient(server.Client()), WithBaseURL(server.URL))
}

func TestSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/local/search/keyword.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "KakaoAK test-key" {
			t.Errorf("unexpected Authorization %q", got)
		}
		q := r.URL.Query()
		if q.Get("query") != "서울 한옥카페" || q.Get("size") != "15" || q.Get("page") != "2" {
			t.Errorf("unexpected query %v", q)
		}
		_, _ = fmt.Fprint(w, `{
			"documents": [
				{"id": "101", "place_name": "Lakeside Cafe", "category_name": "음식점 > 카페",
				 "road_address_name": "1 Lake Rd", "address_name": "Lot 1", "x": "126.9780", "y": "37.5665"},
				{"id": "102", "place_name": "Hanok House", "road_address_name": "", "address_name": "Lot 2", "x": "127.0", "y": "37.5"}
			],
			"meta": {"is_end": false}
		}`)
	})

	page, err := client.Search(context.Background(), " 서울 한옥카페 ", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if page.IsLastPage {
		t.Error("expected more pages")
	}
	if len(page.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(page.Documents))
	}
	doc := page.Documents[0]
	if doc.ID != "101" || doc.Name != "Lakeside Cafe" || doc.Lat != "37.5665" || doc.Lon != "126.9780" {
		t.Errorf("unexpected document %+v", doc)
	}
	if doc.RoadAddress != "1 Lake Rd" || doc.Address != "Lot 1" {
		t.Errorf("expected both addresses kept, got %+v", doc)
	}
}

func TestSearch_MissingIsEndMeansLastPage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"documents": []}`)
	})

	page, err := client.Search(context.Background(), "부산 공원", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !page.IsLastPage {
		t.Error("expected missing meta.is_end to mean last page")
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	client := New("k", source.NewClient(nil))
	if _, err := client.Search(context.Background(), "  ", 1); !errors.Is(err, source.ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestSearch_Unauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Search(context.Background(), "서울 카페", 3)
	var reqErr *source.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.Source != SourceName || reqErr.Page != 3 || reqErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("unexpected error %+v", reqErr)
	}
}

func TestSearchImages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/search/image" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("sort") != "accuracy" || q.Get("size") != "2" {
			t.Errorf("unexpected query %v", q)
		}
		_, _ = fmt.Fprint(w, `{"documents": [
			{"image_url": "data:image/png;base64,xx"},
			{"image_url": "https://t1.daumcdn.net/cfile/R640x0.q70/abc.jpg"},
			{"image_url": ""},
			{"image_url": "http://example.com/b.jpg"},
			{"image_url": "http://example.com/c.jpg"}
		]}`)
	})

	urls, err := client.SearchImages(context.Background(), "서울 Lakeside Cafe", 2)
	if err != nil {
		t.Fatalf("SearchImages failed: %v", err)
	}
	want := []string{"https://t1.daumcdn.net/cfile/origin/abc.jpg", "http://example.com/b.jpg"}
	if len(urls) != len(want) {
		t.Fatalf("expected %v, got %v", want, urls)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("url %d: expected %q, got %q", i, want[i], urls[i])
		}
	}
}

func TestSearchImages_ZeroCount(t *testing.T) {
	client := New("k", source.NewClient(nil))
	urls, err := client.SearchImages(context.Background(), "x", 0)
	if err != nil || urls != nil {
		t.Errorf("expected no call and no urls, got %v %v", urls, err)
	}
}

func TestOriginalImageURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://t1.daumcdn.net/cfile/R640x0.q70/abc.jpg", "https://t1.daumcdn.net/cfile/origin/abc.jpg"},
		{"https://img1.kakaocdn.net/thumb/C300x300/?fname=x", "https://img1.kakaocdn.net/thumb/origin/?fname=x"},
		{"https://img1.kakaocdn.net/thumb/R120x0.q50?fname=x", "https://img1.kakaocdn.net/thumb/origin?fname=x"},
		{"https://example.com/R640x0/a.jpg", "https://example.com/R640x0/a.jpg"},
	}
	for _, tt := range tests {
		if got := OriginalImageURL(tt.in); got != tt.want {
			t.Errorf("OriginalImageURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
