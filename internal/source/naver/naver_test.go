package naver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ppiankov/placecrawl/internal/source"
)

const localBody = `{
	"total": 7, "start": 1, "display": 5,
	"items": [
		{"title": "<b>서울</b> 한옥 &amp; 카페", "link": "", "category": "카페,디저트",
		 "address": "서울특별시 종로구 계동 1", "roadAddress": "서울특별시 종로구 계동길 1",
		 "mapx": "1269863000", "mapy": "375820000"},
		{"title": "Lakeside Cafe", "address": "Lot 2", "roadAddress": "", "mapx": "", "mapy": "375000000"}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	opts = append([]Option{WithBaseURL(server.URL)}, opts...)
	return New("id", "secret", source.NewClient(server.Client()), opts...)
}

func TestSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Naver-Client-Id") != "id" || r.Header.Get("X-Naver-Client-Secret") != "secret" {
			t.Errorf("missing credentials headers")
		}
		if r.URL.Query().Get("start") != "1" || r.URL.Query().Get("display") != "5" {
			t.Errorf("unexpected query %v", r.URL.Query())
		}
		_, _ = fmt.Fprint(w, localBody)
	})

	page, err := client.Search(context.Background(), "서울 한옥카페", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !page.IsLastPage {
		t.Error("expected a short page to be the last one")
	}
	if len(page.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(page.Documents))
	}

	doc := page.Documents[0]
	if doc.Name != "서울 한옥 & 카페" {
		t.Errorf("expected stripped title, got %q", doc.Name)
	}
	if doc.Lat != "37.5820000" || doc.Lon != "126.9863000" {
		t.Errorf("unexpected coordinates %s,%s", doc.Lat, doc.Lon)
	}
	if doc.ID == "" || doc.ID == page.Documents[1].ID {
		t.Errorf("expected distinct synthetic IDs, got %q and %q", doc.ID, page.Documents[1].ID)
	}
	if page.Documents[1].Lon != "" {
		t.Errorf("expected empty longitude for missing mapx, got %q", page.Documents[1].Lon)
	}
}

func TestSearch_BeyondMaxStart(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = fmt.Fprint(w, localBody)
	})

	page, err := client.Search(context.Background(), "서울 카페", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !page.IsLastPage || len(page.Documents) != 0 {
		t.Errorf("expected an empty last page, got %+v", page)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("expected no upstream call past the start limit, got %d", calls)
	}
}

func TestSearch_FullPageWithMore(t *testing.T) {
	body := `{"total": 50, "items": [
		{"title": "a", "address": "x", "mapx": "1", "mapy": "1"},
		{"title": "b", "address": "x", "mapx": "1", "mapy": "1"},
		{"title": "c", "address": "x", "mapx": "1", "mapy": "1"},
		{"title": "d", "address": "x", "mapx": "1", "mapy": "1"},
		{"title": "e", "address": "x", "mapx": "1", "mapy": "1"}
	]}`
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, body)
	}, WithMaxStart(1000))

	page, err := client.Search(context.Background(), "q", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if page.IsLastPage {
		t.Error("expected more pages")
	}
}

func TestSyntheticIDStable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, localBody)
	})
	first, err := client.Search(context.Background(), "q1", 1)
	if err != nil {
		t.Fatal(err)
	}
	second, err := client.Search(context.Background(), "q2", 1)
	if err != nil {
		t.Fatal(err)
	}
	if first.Documents[0].ID != second.Documents[0].ID {
		t.Error("expected the same place to get the same ID across queries")
	}
}

func TestStripTags(t *testing.T) {
	tests := map[string]string{
		"<b>서울</b> 카페":          "서울 카페",
		"Tom &amp; Jerry":       "Tom & Jerry",
		"plain":                 "plain",
		"  <b>x</b><i>y</i>  ": "xy",
		"":                      "",
	}
	for in, want := range tests {
		if got := StripTags(in); got != want {
			t.Errorf("StripTags(%q) = %q, want %q", in, got, want)
		}
	}
}
