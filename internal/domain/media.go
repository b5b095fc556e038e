package domain

type MediaType string

const (
	MediaVideo         MediaType = "VIDEO"
	MediaCarouselAlbum MediaType = "CAROUSEL_ALBUM"
)

// MediaItem is one entry of the third-party feed. Items carry no stable
// identity; position in the sequence is the only key.
type MediaItem struct {
	MediaType MediaType `json:"media_type"`
	MediaURL  string    `json:"media_url"`
	Caption   string    `json:"caption,omitempty"`
}

// MediaState is the cached feed: insertion order is feed order and is
// never reordered. NextCursor nil means the feed is exhausted (or never
// fetched); Error holds the last fetch failure.
type MediaState struct {
	Items      []MediaItem `json:"items"`
	NextCursor *string     `json:"nextCursor"`
	Error      string      `json:"error,omitempty"`
}

// MediaPage is one page as returned by the feed gateway.
type MediaPage struct {
	Items      []MediaItem
	NextCursor *string // nil when the feed is exhausted
}

// FoodImage is one entry of the food gallery batch.
type FoodImage struct {
	ID  string `json:"id"`
	Alt string `json:"alt,omitempty"`
}

// GalleryImage is one entry of the general image gallery.
type GalleryImage struct {
	ID  string `json:"id"`
	Alt string `json:"alt,omitempty"`
}

// FetchState distinguishes "never tried" from "tried, got nothing".
// FetchedEmpty and FetchedNonEmpty both latch further fetches off for
// the rest of the session.
type FetchState int

const (
	NotFetched FetchState = iota
	FetchedEmpty
	FetchedNonEmpty
)

func (s FetchState) Fetched() bool { return s != NotFetched }
