package catalog

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"umrah_catalog/internal/domain"
)

// Loader orchestrates fetches against the remote gateways and is the
// only writer of the catalog store. The cache itself is mutated only
// after a request resolves, never speculatively.
type Loader struct {
	store   *Store
	notices *Notifications
	gw      domain.CatalogGateway
	files   domain.FileGateway
	feed    domain.MediaFeed

	// coalesces concurrent first fetches of the same collection
	flight singleflight.Group

	// keeps at most one media fetch outstanding; the store itself stays
	// advisory about overlapping appends
	mediaMu       sync.Mutex
	mediaInFlight bool

	uploadWorkers int64
}

func NewLoader(store *Store, notices *Notifications, gw domain.CatalogGateway, files domain.FileGateway, feed domain.MediaFeed, uploadWorkers int) *Loader {
	if uploadWorkers <= 0 {
		uploadWorkers = 4
	}
	return &Loader{
		store:         store,
		notices:       notices,
		gw:            gw,
		files:         files,
		feed:          feed,
		uploadWorkers: int64(uploadWorkers),
	}
}

/* ---- collection fetch-if-absent ---- */

// EnsurePackages fetches the package list only when the cache has none.
// Concurrent callers share a single request.
func (l *Loader) EnsurePackages(ctx context.Context) error {
	if len(l.store.Packages()) > 0 {
		return nil
	}
	return l.refresh(ctx, "packages", l.RefreshPackages)
}

func (l *Loader) EnsureHotels(ctx context.Context) error {
	if len(l.store.Hotels()) > 0 {
		return nil
	}
	return l.refresh(ctx, "hotels", l.RefreshHotels)
}

func (l *Loader) EnsureCommonInclusions(ctx context.Context) error {
	if len(l.store.CommonInclusions()) > 0 {
		return nil
	}
	return l.refresh(ctx, "inclusions", l.RefreshCommonInclusions)
}

func (l *Loader) EnsureAllImages(ctx context.Context) error {
	if len(l.store.AllImages()) > 0 {
		return nil
	}
	return l.refresh(ctx, "allImages", l.RefreshAllImages)
}

func (l *Loader) refresh(ctx context.Context, key string, fn func(context.Context) error) error {
	_, err, _ := l.flight.Do(key, func() (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// RefreshPackages unconditionally fetches the authoritative list and
// replaces the cached collection wholesale.
func (l *Loader) RefreshPackages(ctx context.Context) error {
	docs, err := l.gw.ListPackages(ctx)
	if err != nil {
		l.notices.Push(ctx, NoticeError, "Failed to load packages")
		return fmt.Errorf("list packages: %w", err)
	}
	l.store.SetPackages(ctx, DecodePackages(docs))
	return nil
}

func (l *Loader) RefreshHotels(ctx context.Context) error {
	docs, err := l.gw.ListHotels(ctx)
	if err != nil {
		l.notices.Push(ctx, NoticeError, "Failed to load hotels")
		return fmt.Errorf("list hotels: %w", err)
	}
	l.store.SetHotels(ctx, DecodeHotels(docs))
	return nil
}

func (l *Loader) RefreshCommonInclusions(ctx context.Context) error {
	docs, err := l.gw.ListCommonInclusions(ctx)
	if err != nil {
		l.notices.Push(ctx, NoticeError, "Failed to load inclusions")
		return fmt.Errorf("list inclusions: %w", err)
	}
	l.store.SetCommonInclusions(ctx, DecodeInclusions(docs))
	return nil
}

func (l *Loader) RefreshAllImages(ctx context.Context) error {
	docs, err := l.gw.FetchGalleryImages(ctx)
	if err != nil {
		l.notices.Push(ctx, NoticeError, "Failed to load gallery images")
		return fmt.Errorf("fetch gallery images: %w", err)
	}
	l.store.SetAllImages(ctx, DecodeGalleryImages(docs))
	return nil
}

/* ---- food images ---- */

// EnsureFoodImages fetches the food gallery batch at most once per
// session. The latch is set on any successful fetch, empty included, so
// an empty gallery is never re-requested; a failed fetch leaves the
// latch open for a later retry.
func (l *Loader) EnsureFoodImages(ctx context.Context) error {
	if l.store.FoodImagesState().Fetched() || len(l.store.FoodImages()) > 0 {
		return nil
	}
	_, err, _ := l.flight.Do("foodImages", func() (any, error) {
		docs, err := l.gw.FetchFoodImages(ctx)
		if err != nil {
			l.notices.Push(ctx, NoticeError, "Failed to load food images")
			return nil, fmt.Errorf("fetch food images: %w", err)
		}
		l.store.MarkFoodImagesFetched(ctx)
		l.store.SetFoodImages(ctx, DecodeFoodImages(docs))
		return nil, nil
	})
	return err
}

/* ---- paginated media feed ---- */

const mediaPageLimit = 20

// LoadFirstMediaPage fetches the first feed page. It proceeds only when
// the sequence is empty, no fetch is in flight and no prior error is
// recorded; otherwise it is a no-op.
func (l *Loader) LoadFirstMediaPage(ctx context.Context) error {
	if l.feed == nil {
		return fmt.Errorf("media feed not configured")
	}
	l.mediaMu.Lock()
	st := l.store.Media()
	if len(st.Items) > 0 || l.mediaInFlight || st.Error != "" {
		l.mediaMu.Unlock()
		return nil
	}
	l.mediaInFlight = true
	l.mediaMu.Unlock()
	defer l.clearMediaInFlight()

	page, err := l.feed.FetchMedia(ctx, mediaPageLimit, nil)
	if err != nil {
		l.store.SetMedia(ctx, nil, nil, err.Error())
		return fmt.Errorf("fetch media: %w", err)
	}
	l.store.SetMedia(ctx, page.Items, page.NextCursor, "")
	return nil
}

// LoadMoreMedia appends the next feed page. Calls are serialized here:
// overlapping pages would duplicate items since AppendMedia performs no
// identity dedup.
func (l *Loader) LoadMoreMedia(ctx context.Context) error {
	if l.feed == nil {
		return fmt.Errorf("media feed not configured")
	}
	l.mediaMu.Lock()
	if l.mediaInFlight {
		l.mediaMu.Unlock()
		return nil
	}
	st := l.store.Media()
	if st.NextCursor == nil {
		l.mediaMu.Unlock()
		return domain.ErrFeedExhausted
	}
	l.mediaInFlight = true
	l.mediaMu.Unlock()
	defer l.clearMediaInFlight()

	page, err := l.feed.FetchMedia(ctx, mediaPageLimit, st.NextCursor)
	if err != nil {
		// keep the sequence, record the failure
		l.store.SetMedia(ctx, st.Items, st.NextCursor, err.Error())
		return fmt.Errorf("fetch media page: %w", err)
	}
	l.store.AppendMedia(ctx, page.Items, page.NextCursor)
	return nil
}

// ResetMedia clears the recorded error and refetches the first page,
// replacing the sequence wholesale (the retry action of the fallback
// view).
func (l *Loader) ResetMedia(ctx context.Context) error {
	l.store.SetMedia(ctx, nil, nil, "")
	return l.LoadFirstMediaPage(ctx)
}

func (l *Loader) clearMediaInFlight() {
	l.mediaMu.Lock()
	l.mediaInFlight = false
	l.mediaMu.Unlock()
}

/* ---- file uploads ---- */

type Upload struct {
	Name    string
	Content io.Reader
}

// UploadImages pushes files to the file store concurrently. Each
// upload's outcome is independent: failures are logged and reported,
// siblings proceed, and the union of successful ids is returned in
// input order.
func (l *Loader) UploadImages(ctx context.Context, uploads []Upload) []string {
	sem := semaphore.NewWeighted(l.uploadWorkers)
	results := make([]string, len(uploads))
	var wg sync.WaitGroup

	for i, up := range uploads {
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("upload semaphore acquire failed")
			break
		}
		wg.Add(1)
		go func(i int, up Upload) {
			defer wg.Done()
			defer sem.Release(1)
			id, err := l.files.UploadFile(ctx, up.Name, up.Content)
			if err != nil {
				log.Warn().Str("file", up.Name).Err(err).Msg("upload failed")
				l.notices.Push(ctx, NoticeError, "Failed to upload "+up.Name)
				return
			}
			results[i] = id
		}(i, up)
	}
	wg.Wait()

	ids := make([]string, 0, len(results))
	for _, id := range results {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// DeleteFile removes a stored file and evicts it from the gallery
// slices; missing files are not an error.
func (l *Loader) DeleteFile(ctx context.Context, id string) (bool, error) {
	ok, err := l.files.DeleteFile(ctx, id)
	if err != nil {
		return false, err
	}
	l.store.RemoveImage(ctx, id)
	l.store.RemoveFoodImage(ctx, id)
	return ok, nil
}

/* ---- admin write paths ---- */

// CreatePackage writes through the gateway, then refetches the
// authoritative list so the cache replace stays wholesale.
func (l *Loader) CreatePackage(ctx context.Context, p domain.Package) (string, error) {
	id, err := l.gw.CreatePackage(ctx, p)
	if err != nil {
		l.notices.Push(ctx, NoticeError, "Failed to add package")
		return "", fmt.Errorf("create package: %w", err)
	}
	l.notices.Push(ctx, NoticeInfo, "Package added successfully")
	return id, l.RefreshPackages(ctx)
}

func (l *Loader) UpdatePackage(ctx context.Context, id string, p domain.Package) error {
	if err := l.gw.UpdatePackage(ctx, id, p); err != nil {
		l.notices.Push(ctx, NoticeError, "Failed to update package")
		return fmt.Errorf("update package %s: %w", id, err)
	}
	l.notices.Push(ctx, NoticeInfo, "Package updated successfully")
	return l.RefreshPackages(ctx)
}

// DeletePackage removes the document, then its cover image (best
// effort), then the cache entry.
func (l *Loader) DeletePackage(ctx context.Context, id string) error {
	pkg, ok := FindPackage(l.store.Packages(), id)
	if !ok {
		return domain.ErrNotFound
	}
	if err := l.gw.DeletePackage(ctx, id); err != nil {
		l.notices.Push(ctx, NoticeError, "Failed to delete package")
		return fmt.Errorf("delete package %s: %w", id, err)
	}
	if pkg.Image != "" {
		if _, err := l.files.DeleteFile(ctx, pkg.Image); err != nil {
			log.Warn().Str("file", pkg.Image).Err(err).Msg("package image delete failed")
		}
	}
	l.store.RemovePackage(ctx, id)
	l.notices.Push(ctx, NoticeInfo, "Package deleted successfully")
	return nil
}

func (l *Loader) CreateHotel(ctx context.Context, h domain.Hotel) (string, error) {
	id, err := l.gw.CreateHotel(ctx, h)
	if err != nil {
		l.notices.Push(ctx, NoticeError, "Failed to add hotel")
		return "", fmt.Errorf("create hotel: %w", err)
	}
	l.notices.Push(ctx, NoticeInfo, "Hotel added successfully")
	return id, l.RefreshHotels(ctx)
}

func (l *Loader) UpdateHotel(ctx context.Context, id string, h domain.Hotel) error {
	if err := l.gw.UpdateHotel(ctx, id, h); err != nil {
		l.notices.Push(ctx, NoticeError, "Failed to update hotel")
		return fmt.Errorf("update hotel %s: %w", id, err)
	}
	l.notices.Push(ctx, NoticeInfo, "Hotel updated successfully")
	return l.RefreshHotels(ctx)
}

func (l *Loader) DeleteHotel(ctx context.Context, id string) error {
	hotel, ok := FindHotel(l.store.Hotels(), id)
	if !ok {
		return domain.ErrNotFound
	}
	if err := l.gw.DeleteHotel(ctx, id); err != nil {
		l.notices.Push(ctx, NoticeError, "Failed to delete hotel")
		return fmt.Errorf("delete hotel %s: %w", id, err)
	}
	for _, img := range hotel.Images {
		if _, err := l.files.DeleteFile(ctx, img); err != nil {
			log.Warn().Str("file", img).Err(err).Msg("hotel image delete failed")
		}
	}
	l.store.RemoveHotel(ctx, id)
	l.notices.Push(ctx, NoticeInfo, "Hotel deleted successfully")
	return nil
}

func (l *Loader) CreateCommonInclusion(ctx context.Context, description string) (string, error) {
	id, err := l.gw.CreateCommonInclusion(ctx, description)
	if err != nil {
		l.notices.Push(ctx, NoticeError, "Failed to add inclusion")
		return "", fmt.Errorf("create inclusion: %w", err)
	}
	return id, l.RefreshCommonInclusions(ctx)
}

func (l *Loader) DeleteCommonInclusion(ctx context.Context, id string) error {
	if err := l.gw.DeleteCommonInclusion(ctx, id); err != nil {
		l.notices.Push(ctx, NoticeError, "Failed to delete inclusion")
		return fmt.Errorf("delete inclusion %s: %w", id, err)
	}
	l.store.RemoveCommonInclusion(ctx, id)
	return nil
}
