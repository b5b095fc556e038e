package catalog_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"umrah_catalog/internal/catalog"
	"umrah_catalog/internal/domain"
)

// ---- fakes ----

type fakeSnap struct {
	mu    sync.Mutex
	saves map[string][]byte
}

func newFakeSnap() *fakeSnap { return &fakeSnap{saves: map[string][]byte{}} }

func (f *fakeSnap) Save(ctx context.Context, slice string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.saves[slice] = b
	f.mu.Unlock()
	return nil
}

func (f *fakeSnap) Load(ctx context.Context, slice string, dst any) (bool, error) {
	f.mu.Lock()
	b, ok := f.saves[slice]
	f.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

// ---- tests ----

func TestSetPackages_ReplacesWholesale(t *testing.T) {
	s := catalog.NewStore(newFakeSnap())
	ctx := context.Background()

	s.SetPackages(ctx, []domain.Package{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	s.SetPackages(ctx, []domain.Package{{ID: "z"}})

	got := s.Packages()
	if len(got) != 1 || got[0].ID != "z" {
		t.Fatalf("expected wholesale replace, got %+v", got)
	}
}

func TestRemovePackage_MissingIDIsNoop(t *testing.T) {
	s := catalog.NewStore(newFakeSnap())
	ctx := context.Background()

	s.SetPackages(ctx, []domain.Package{{ID: "a"}, {ID: "b"}})
	s.RemovePackage(ctx, "nope")
	if got := s.Packages(); len(got) != 2 {
		t.Fatalf("missing id should be a no-op, got %+v", got)
	}

	s.RemovePackage(ctx, "a")
	got := s.Packages()
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("expected only b left, got %+v", got)
	}
}

func TestPackages_ReturnsCopy(t *testing.T) {
	s := catalog.NewStore(newFakeSnap())
	s.SetPackages(context.Background(), []domain.Package{{ID: "a"}})

	out := s.Packages()
	out[0].ID = "mutated"

	if s.Packages()[0].ID != "a" {
		t.Fatalf("reader mutation leaked into the store")
	}
}

func TestRehydrate_RoundTrip(t *testing.T) {
	snap := newFakeSnap()
	ctx := context.Background()

	s1 := catalog.NewStore(snap)
	s1.SetPackages(ctx, []domain.Package{{ID: "p1", Type: "premium"}})
	s1.SetHotels(ctx, []domain.Hotel{{ID: "h1", City: domain.CityMakkah}})
	s1.SetFoodImages(ctx, []domain.FoodImage{{ID: "f1"}})

	s2 := catalog.NewStore(snap)
	if err := s2.Rehydrate(ctx); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	if len(s2.Packages()) != 1 || s2.Packages()[0].ID != "p1" {
		t.Fatalf("packages not rehydrated: %+v", s2.Packages())
	}
	if len(s2.Hotels()) != 1 {
		t.Fatalf("hotels not rehydrated: %+v", s2.Hotels())
	}
	if len(s2.FoodImages()) != 1 {
		t.Fatalf("food images not rehydrated: %+v", s2.FoodImages())
	}
}

func TestRehydrate_DoesNotRestoreFoodLatch(t *testing.T) {
	snap := newFakeSnap()
	ctx := context.Background()

	s1 := catalog.NewStore(snap)
	s1.MarkFoodImagesFetched(ctx)
	s1.SetFoodImages(ctx, []domain.FoodImage{{ID: "f1"}})

	s2 := catalog.NewStore(snap)
	if err := s2.Rehydrate(ctx); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	// images survive the restart, the session latch does not
	if got := s2.FoodImagesState(); got != domain.NotFetched {
		t.Fatalf("latch should reset on restart, got %v", got)
	}
}

func TestGalleryImages_SetAndRemove(t *testing.T) {
	s := catalog.NewStore(newFakeSnap())
	ctx := context.Background()

	s.SetAllImages(ctx, []domain.GalleryImage{{ID: "g1"}, {ID: "g2"}})
	s.RemoveImage(ctx, "g1")
	if got := s.AllImages(); len(got) != 1 || got[0].ID != "g2" {
		t.Fatalf("unexpected gallery: %+v", got)
	}

	s.SetFoodImages(ctx, []domain.FoodImage{{ID: "f1"}, {ID: "f2"}})
	s.RemoveFoodImage(ctx, "f2")
	if got := s.FoodImages(); len(got) != 1 || got[0].ID != "f1" {
		t.Fatalf("unexpected food images: %+v", got)
	}
}

func TestFoodImagesLatch_EmptyAndNonEmpty(t *testing.T) {
	s := catalog.NewStore(newFakeSnap())
	ctx := context.Background()

	if s.FoodImagesState().Fetched() {
		t.Fatalf("fresh store must be NotFetched")
	}

	// successful fetch of an empty batch latches as FetchedEmpty
	s.MarkFoodImagesFetched(ctx)
	s.SetFoodImages(ctx, nil)
	if got := s.FoodImagesState(); got != domain.FetchedEmpty {
		t.Fatalf("expected FetchedEmpty, got %v", got)
	}
	if !s.FoodImagesState().Fetched() {
		t.Fatalf("FetchedEmpty must report fetched")
	}

	// a later non-empty set upgrades the latch
	s.SetFoodImages(ctx, []domain.FoodImage{{ID: "f1"}})
	if got := s.FoodImagesState(); got != domain.FetchedNonEmpty {
		t.Fatalf("expected FetchedNonEmpty, got %v", got)
	}
}

func TestSetFoodImages_BeforeFetchLeavesLatchOpen(t *testing.T) {
	s := catalog.NewStore(newFakeSnap())

	// rehydrated images arrive without a fetch having happened
	s.SetFoodImages(context.Background(), []domain.FoodImage{{ID: "f1"}})
	if got := s.FoodImagesState(); got != domain.NotFetched {
		t.Fatalf("set without fetch must not latch, got %v", got)
	}
}

func TestAppendMedia_NoDedupAndCursorReplace(t *testing.T) {
	s := catalog.NewStore(newFakeSnap())
	ctx := context.Background()
	cur1, cur2 := "c1", "c2"

	item := domain.MediaItem{MediaType: domain.MediaVideo, MediaURL: "u"}
	s.SetMedia(ctx, []domain.MediaItem{item}, &cur1, "")
	s.AppendMedia(ctx, []domain.MediaItem{item}, &cur2)

	st := s.Media()
	if len(st.Items) != 2 {
		t.Fatalf("append must not dedup, got %d items", len(st.Items))
	}
	if st.NextCursor == nil || *st.NextCursor != "c2" {
		t.Fatalf("cursor should be replaced, got %v", st.NextCursor)
	}

	// exhausted page: cursor drops to nil
	s.AppendMedia(ctx, nil, nil)
	if s.Media().NextCursor != nil {
		t.Fatalf("expected nil cursor after exhausted append")
	}
}

func TestSetMedia_NotPersisted(t *testing.T) {
	snap := newFakeSnap()
	ctx := context.Background()

	s1 := catalog.NewStore(snap)
	cur := "c1"
	s1.SetMedia(ctx, []domain.MediaItem{{MediaURL: "u"}}, &cur, "")
	s1.SetPackages(ctx, []domain.Package{{ID: "p"}}) // force a snapshot write

	s2 := catalog.NewStore(snap)
	if err := s2.Rehydrate(ctx); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	if st := s2.Media(); len(st.Items) != 0 || st.NextCursor != nil {
		t.Fatalf("media state must not survive a restart: %+v", st)
	}
}
