package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"umrah_catalog/internal/adapters/observability"
	"umrah_catalog/internal/domain"
)

const defaultBase = "https://graph.instagram.com/me/media"

// Client fetches the paginated media feed. Cursors are opaque: whatever
// the feed returned is threaded back verbatim on the next call.
type Client struct {
	base  string
	token string
	hc    *http.Client
	rl    *rate.Limiter
}

func New(token string) (*Client, error) {
	return NewWithURL(defaultBase, token)
}

// NewWithURL is the injectable-endpoint constructor used in tests.
func NewWithURL(base, token string) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("access token is required")
	}
	return &Client{
		base:  base,
		token: token,
		hc:    &http.Client{Timeout: 20 * time.Second},
		rl:    rate.NewLimiter(rate.Limit(2), 2),
	}, nil
}

// feed envelope: {data: [...], paging: {cursors: {after}, next}}
type envelope struct {
	Data   []domain.MediaItem `json:"data"`
	Paging struct {
		Cursors struct {
			After string `json:"after"`
		} `json:"cursors"`
		Next string `json:"next"`
	} `json:"paging"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) FetchMedia(ctx context.Context, limit int, after *string) (domain.MediaPage, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return domain.MediaPage{}, err
	}

	q := url.Values{}
	q.Set("access_token", c.token)
	q.Set("fields", "media_url,media_type,caption,thumbnail_url")
	q.Set("limit", strconv.Itoa(limit))
	if after != nil {
		q.Set("after", *after)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"?"+q.Encode(), nil)
	if err != nil {
		return domain.MediaPage{}, err
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return domain.MediaPage{}, fmt.Errorf("media feed request: %w", err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("instagram", "media", resp.StatusCode, time.Since(start))

	var env envelope
	if resp.StatusCode != http.StatusOK {
		// the feed reports failures as {error: {message}}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(b, &env) == nil && env.Error != nil && env.Error.Message != "" {
			return domain.MediaPage{}, fmt.Errorf("media feed: %s", env.Error.Message)
		}
		return domain.MediaPage{}, fmt.Errorf("media feed status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return domain.MediaPage{}, fmt.Errorf("media feed decode: %w", err)
	}

	page := domain.MediaPage{Items: env.Data}
	// absence of paging.next means the feed is exhausted, even when a
	// cursor value is still present
	if env.Paging.Next != "" && env.Paging.Cursors.After != "" {
		cur := env.Paging.Cursors.After
		page.NextCursor = &cur
	}
	return page, nil
}
