package domain

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	// ErrFeedExhausted signals a load-more with no cursor left.
	ErrFeedExhausted = errors.New("media feed exhausted")
)

// Document is a raw record from the remote document store. Nested
// Duration/Inclusion/Exclusion fields arrive as independently serialized
// text blobs, one per array element, and must be decoded before entering
// the cache.
type Document = map[string]any

// CatalogGateway is the remote document store.
type CatalogGateway interface {
	ListPackages(ctx context.Context) ([]Document, error)
	CreatePackage(ctx context.Context, p Package) (string, error)
	UpdatePackage(ctx context.Context, id string, p Package) error
	DeletePackage(ctx context.Context, id string) error

	ListHotels(ctx context.Context) ([]Document, error)
	CreateHotel(ctx context.Context, h Hotel) (string, error)
	UpdateHotel(ctx context.Context, id string, h Hotel) error
	DeleteHotel(ctx context.Context, id string) error

	ListCommonInclusions(ctx context.Context) ([]Document, error)
	CreateCommonInclusion(ctx context.Context, description string) (string, error)
	DeleteCommonInclusion(ctx context.Context, id string) error

	// FetchFoodImages returns the whole batch; there is no pagination and
	// an empty result is a valid terminal state.
	FetchFoodImages(ctx context.Context) ([]Document, error)

	// FetchGalleryImages returns the general gallery batch.
	FetchGalleryImages(ctx context.Context) ([]Document, error)
}

// FileGateway is the remote binary file store.
type FileGateway interface {
	UploadFile(ctx context.Context, name string, r io.Reader) (string, error)
	DeleteFile(ctx context.Context, id string) (bool, error)
	PreviewURL(id string) string // optimized transform
	ViewURL(id string) string    // raw original
}

// MediaFeed is the third-party paginated feed. The cursor is opaque and
// must be threaded back verbatim on the next call.
type MediaFeed interface {
	FetchMedia(ctx context.Context, limit int, after *string) (MediaPage, error)
}

// Snapshotter persists allow-listed slices of the catalog cache and
// rehydrates them on startup. No expiry is enforced.
type Snapshotter interface {
	Save(ctx context.Context, slice string, v any) error
	// Load reports false when no snapshot exists for the slice.
	Load(ctx context.Context, slice string, dst any) (bool, error)
}
