//go:build integration || !unit

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"umrah_catalog/internal/adapters/docstore"
	server "umrah_catalog/internal/adapters/http_server"
	redisad "umrah_catalog/internal/adapters/redis"
	"umrah_catalog/internal/catalog"
)

// fakeDocstore serves the document-store surface the loader touches.
func fakeDocstore(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/collections/packages/documents", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"documents": []map[string]any{
				{
					"$id":            "pkg-1",
					"type":           "premium",
					"makkahHotelId":  "mk-1",
					"madinahHotelId": "md-1",
					"image":          "cover-1",
					"durations": []any{
						`{"days":7,"basePrice":1200,"sharedRoomPrices":{"quad":900}}`,
						`{"days":10,"basePrice":1500}`,
					},
					"inclusions": []any{`{"description":"Visa"}`},
				},
				{
					"$id":            "pkg-2",
					"type":           "economy",
					"makkahHotelId":  "mk-1",
					"madinahHotelId": "md-1",
					"durations":      []any{`{"days":7,"basePrice":800}`},
				},
			},
		})
	})
	mux.HandleFunc("/collections/hotels/documents", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"documents": []map[string]any{
				{"$id": "mk-1", "ciry": "Makkah", "name": "Al Safwah", "distance": "100m", "walkingTime": "2 min"},
				{"$id": "md-1", "city": "Madinah", "name": "Al Haram", "distance": "50m", "walkingTime": "1 min"},
			},
		})
	})
	mux.HandleFunc("/collections/commonInclusions/documents", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"documents": []map[string]any{{"$id": "ci-1", "description": "5-star buffet"}},
		})
	})
	mux.HandleFunc("/buckets/food/files", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"files": []map[string]any{{"$id": "food-1", "name": "Buffet"}},
		})
	})
	mux.HandleFunc("/buckets/gallery/files", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"files": []map[string]any{{"$id": "g-1", "name": "Kaaba at night"}},
		})
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newTestStack(t *testing.T, upstreamURL, redisAddr string) *httptest.Server {
	t.Helper()

	gw, err := docstore.New(upstreamURL, "test-key", 100)
	if err != nil {
		t.Fatalf("docstore client: %v", err)
	}
	snap := redisad.New(redisAddr, "", 0)
	store := catalog.NewStore(snap)
	notices := catalog.NewNotifications(snap)
	if err := store.Rehydrate(context.Background()); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	loader := catalog.NewLoader(store, notices, gw, gw, nil, 2)

	srv := server.New()
	srv.MountHandlers(&server.Handlers{Store: store, Loader: loader, Notices: notices, Files: gw})

	api := httptest.NewServer(srv.Mux())
	t.Cleanup(api.Close)
	return api
}

func getJSON(t *testing.T, url string, dst any) *http.Response {
	t.Helper()
	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return res
}

func TestHTTP_EndToEnd_CatalogAndPersistence(t *testing.T) {
	upstream := fakeDocstore(t)
	mr := miniredis.RunT(t)
	api := newTestStack(t, upstream.URL, mr.Addr())

	// list packages: first call populates the cache from upstream
	var list struct {
		Packages []struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"packages"`
	}
	getJSON(t, api.URL+"/v1/packages", &list)
	if len(list.Packages) != 2 || list.Packages[0].ID != "pkg-1" {
		t.Fatalf("unexpected packages: %+v", list.Packages)
	}

	// comparison view: 7 days, cheapest first
	var cmp struct {
		Packages []struct {
			ID string `json:"id"`
		} `json:"packages"`
		AvailableDurations []int `json:"availableDurations"`
	}
	getJSON(t, api.URL+"/v1/packages/compare?days=7", &cmp)
	if len(cmp.Packages) != 2 || cmp.Packages[0].ID != "pkg-2" {
		t.Fatalf("expected cheapest first, got %+v", cmp.Packages)
	}
	if len(cmp.AvailableDurations) != 2 || cmp.AvailableDurations[0] != 7 {
		t.Fatalf("unexpected durations: %v", cmp.AvailableDurations)
	}

	// detail view with hotels joined in
	var detail struct {
		Package struct {
			ID string `json:"id"`
		} `json:"package"`
		MakkahHotel *struct {
			Name string `json:"name"`
		} `json:"makkahHotel"`
		Pricing struct {
			BasePrice *float64 `json:"basePrice"`
		} `json:"pricing"`
	}
	getJSON(t, api.URL+"/v1/packages/pkg-1?days=7", &detail)
	if detail.MakkahHotel == nil || detail.MakkahHotel.Name != "Al Safwah" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if detail.Pricing.BasePrice == nil || *detail.Pricing.BasePrice != 1200 {
		t.Fatalf("unexpected pricing: %+v", detail.Pricing)
	}

	// food gallery resolves preview URLs
	var food struct {
		FoodImages []struct {
			ID         string `json:"id"`
			PreviewURL string `json:"previewUrl"`
		} `json:"foodImages"`
	}
	getJSON(t, api.URL+"/v1/food-images", &food)
	if len(food.FoodImages) != 1 || food.FoodImages[0].ID != "food-1" {
		t.Fatalf("unexpected food images: %+v", food.FoodImages)
	}

	// general gallery
	var gallery struct {
		Images []struct {
			ID      string `json:"id"`
			ViewURL string `json:"viewUrl"`
		} `json:"images"`
	}
	getJSON(t, api.URL+"/v1/images", &gallery)
	if len(gallery.Images) != 1 || gallery.Images[0].ID != "g-1" {
		t.Fatalf("unexpected gallery: %+v", gallery.Images)
	}

	// the catalog slice is persisted under its namespaced key
	if !mr.Exists("persist:catalog") {
		t.Fatalf("expected persist:catalog written to redis")
	}
}

func TestHTTP_EndToEnd_RehydrateSurvivesUpstreamOutage(t *testing.T) {
	upstream := fakeDocstore(t)
	mr := miniredis.RunT(t)

	// warm the snapshot through a first stack
	api1 := newTestStack(t, upstream.URL, mr.Addr())
	var list struct {
		Packages []json.RawMessage `json:"packages"`
	}
	getJSON(t, api1.URL+"/v1/packages", &list)
	if len(list.Packages) != 2 {
		t.Fatalf("warmup failed: %d packages", len(list.Packages))
	}
	upstream.Close()

	// a fresh stack rehydrates from redis and serves without upstream
	api2 := newTestStack(t, upstream.URL, mr.Addr())
	var list2 struct {
		Packages []json.RawMessage `json:"packages"`
	}
	getJSON(t, api2.URL+"/v1/packages", &list2)
	if len(list2.Packages) != 2 {
		t.Fatalf("expected rehydrated packages, got %d", len(list2.Packages))
	}
}

func TestHTTP_EndToEnd_UnknownPackageIsProblemJSON(t *testing.T) {
	upstream := fakeDocstore(t)
	mr := miniredis.RunT(t)
	api := newTestStack(t, upstream.URL, mr.Addr())

	res, err := http.Get(fmt.Sprintf("%s/v1/packages/%s", api.URL, "ghost"))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("unexpected content type %q", ct)
	}
}
