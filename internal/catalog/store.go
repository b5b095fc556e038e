package catalog

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"umrah_catalog/internal/adapters/observability"
	"umrah_catalog/internal/domain"
)

// Snapshot slice names. Each maps to one namespaced key in the
// persistence adapter.
const (
	SliceCatalog      = "catalog"
	SliceNotification = "notification"
)

// catalogSnapshot is the allow-listed subset of the store that survives
// a restart. Fields not listed here (media state, the food-image latch)
// are never serialized and restart from their in-code defaults.
type catalogSnapshot struct {
	Packages         []domain.Package      `json:"packages"`
	Hotels           []domain.Hotel        `json:"hotels"`
	CommonInclusions []domain.Inclusion    `json:"commonInclusions"`
	AllImages        []domain.GalleryImage `json:"allImages"`
	FoodImages       []domain.FoodImage    `json:"foodImages"`
}

// Store is the process-wide catalog cache. All entity collections are
// owned exclusively by the store; readers get copies and mutation goes
// through the enumerated operations only.
//
// Set operations replace the whole collection (full-refresh semantics):
// callers fetch the complete authoritative list before calling them.
// Remove operations filter by identity; removing a missing id is a no-op.
type Store struct {
	mu sync.RWMutex

	packages         []domain.Package
	hotels           []domain.Hotel
	commonInclusions []domain.Inclusion
	allImages        []domain.GalleryImage
	foodImages       []domain.FoodImage
	foodState        domain.FetchState
	media            domain.MediaState

	snap domain.Snapshotter
}

func NewStore(snap domain.Snapshotter) *Store {
	return &Store{snap: snap}
}

// Rehydrate loads the persisted snapshot into the store. Call it before
// the store is first read by any component; a missing snapshot leaves
// the empty baseline in place.
func (s *Store) Rehydrate(ctx context.Context) error {
	var cs catalogSnapshot
	ok, err := s.snap.Load(ctx, SliceCatalog, &cs)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	s.mu.Lock()
	s.packages = cs.Packages
	s.hotels = cs.Hotels
	s.commonInclusions = cs.CommonInclusions
	s.allImages = cs.AllImages
	s.foodImages = cs.FoodImages
	s.mu.Unlock()
	observability.ObserveSnapshot(SliceCatalog, "load")
	return nil
}

// persistLocked snapshots the allow-listed fields. Best effort: a failed
// snapshot is logged, never propagated into the mutation path.
func (s *Store) persistLocked(ctx context.Context) {
	cs := catalogSnapshot{
		Packages:         s.packages,
		Hotels:           s.hotels,
		CommonInclusions: s.commonInclusions,
		AllImages:        s.allImages,
		FoodImages:       s.foodImages,
	}
	if err := s.snap.Save(ctx, SliceCatalog, cs); err != nil {
		log.Warn().Err(err).Msg("catalog snapshot failed")
		return
	}
	observability.ObserveSnapshot(SliceCatalog, "save")
}

/* ---- packages ---- */

func (s *Store) SetPackages(ctx context.Context, pkgs []domain.Package) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packages = append([]domain.Package(nil), pkgs...)
	observability.ObserveCache(SliceCatalog, "replace")
	s.persistLocked(ctx)
}

func (s *Store) RemovePackage(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packages = removeByID(s.packages, id, func(p domain.Package) string { return p.ID })
	observability.ObserveCache(SliceCatalog, "remove")
	s.persistLocked(ctx)
}

func (s *Store) Packages() []domain.Package {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Package(nil), s.packages...)
}

/* ---- hotels ---- */

func (s *Store) SetHotels(ctx context.Context, hs []domain.Hotel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hotels = append([]domain.Hotel(nil), hs...)
	observability.ObserveCache(SliceCatalog, "replace")
	s.persistLocked(ctx)
}

func (s *Store) RemoveHotel(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hotels = removeByID(s.hotels, id, func(h domain.Hotel) string { return h.ID })
	observability.ObserveCache(SliceCatalog, "remove")
	s.persistLocked(ctx)
}

func (s *Store) Hotels() []domain.Hotel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Hotel(nil), s.hotels...)
}

/* ---- common inclusions ---- */

func (s *Store) SetCommonInclusions(ctx context.Context, incs []domain.Inclusion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commonInclusions = append([]domain.Inclusion(nil), incs...)
	observability.ObserveCache(SliceCatalog, "replace")
	s.persistLocked(ctx)
}

func (s *Store) RemoveCommonInclusion(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commonInclusions = removeByID(s.commonInclusions, id, func(i domain.Inclusion) string { return i.ID })
	observability.ObserveCache(SliceCatalog, "remove")
	s.persistLocked(ctx)
}

func (s *Store) CommonInclusions() []domain.Inclusion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Inclusion(nil), s.commonInclusions...)
}

/* ---- gallery images ---- */

func (s *Store) SetAllImages(ctx context.Context, imgs []domain.GalleryImage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allImages = append([]domain.GalleryImage(nil), imgs...)
	observability.ObserveCache(SliceCatalog, "replace")
	s.persistLocked(ctx)
}

func (s *Store) RemoveImage(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allImages = removeByID(s.allImages, id, func(i domain.GalleryImage) string { return i.ID })
	observability.ObserveCache(SliceCatalog, "remove")
	s.persistLocked(ctx)
}

func (s *Store) AllImages() []domain.GalleryImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.GalleryImage(nil), s.allImages...)
}

/* ---- food images ---- */

func (s *Store) SetFoodImages(ctx context.Context, imgs []domain.FoodImage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.foodImages = append([]domain.FoodImage(nil), imgs...)
	if s.foodState != domain.NotFetched {
		s.foodState = foodStateFor(len(s.foodImages))
	}
	observability.ObserveCache(SliceCatalog, "replace")
	s.persistLocked(ctx)
}

// MarkFoodImagesFetched latches the food gallery as fetched for this
// session, independent of whether the batch was empty. Once latched no
// refetch is attempted until restart (the latch is not persisted).
func (s *Store) MarkFoodImagesFetched(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.foodState = foodStateFor(len(s.foodImages))
}

func (s *Store) RemoveFoodImage(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.foodImages = removeByID(s.foodImages, id, func(i domain.FoodImage) string { return i.ID })
	observability.ObserveCache(SliceCatalog, "remove")
	s.persistLocked(ctx)
}

func (s *Store) FoodImages() []domain.FoodImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.FoodImage(nil), s.foodImages...)
}

func (s *Store) FoodImagesState() domain.FetchState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.foodState
}

func foodStateFor(n int) domain.FetchState {
	if n > 0 {
		return domain.FetchedNonEmpty
	}
	return domain.FetchedEmpty
}

/* ---- media feed ---- */

// SetMedia replaces the whole media sequence, cursor and error. Used for
// the first page and for resetting after an error-free refetch.
func (s *Store) SetMedia(ctx context.Context, items []domain.MediaItem, nextCursor *string, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media = domain.MediaState{
		Items:      append([]domain.MediaItem(nil), items...),
		NextCursor: nextCursor,
		Error:      errMsg,
	}
	observability.ObserveCache("media", "replace")
}

// AppendMedia concatenates a fetched page onto the sequence and replaces
// the cursor. No identity dedup is performed (feed items carry no stable
// id); callers must keep at most one load-more outstanding.
func (s *Store) AppendMedia(ctx context.Context, items []domain.MediaItem, nextCursor *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media.Items = append(s.media.Items, items...)
	s.media.NextCursor = nextCursor
	observability.ObserveCache("media", "append")
}

func (s *Store) Media() domain.MediaState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.MediaState{
		Items:      append([]domain.MediaItem(nil), s.media.Items...),
		NextCursor: s.media.NextCursor,
		Error:      s.media.Error,
	}
}

/* ---- helpers ---- */

func removeByID[T any](in []T, id string, key func(T) string) []T {
	out := in[:0]
	for _, v := range in {
		if key(v) != id {
			out = append(out, v)
		}
	}
	return out
}
