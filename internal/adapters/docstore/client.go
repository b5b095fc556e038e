package docstore

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"umrah_catalog/internal/adapters/observability"
	"umrah_catalog/internal/domain"
)

// Collection names in the remote document store.
const (
	colPackages   = "packages"
	colHotels     = "hotels"
	colInclusions = "commonInclusions"
)

// Client talks to the document store and its file bucket. Documents come
// back raw; blob decoding happens in the catalog layer before anything
// enters the cache.
type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

/* ---- documents ---- */

type documentList struct {
	Documents []domain.Document `json:"documents"`
}

func (c *Client) ListPackages(ctx context.Context) ([]domain.Document, error) {
	return c.listDocuments(ctx, colPackages)
}

func (c *Client) CreatePackage(ctx context.Context, p domain.Package) (string, error) {
	return c.createDocument(ctx, colPackages, encodePackage(p))
}

func (c *Client) UpdatePackage(ctx context.Context, id string, p domain.Package) error {
	return c.updateDocument(ctx, colPackages, id, encodePackage(p))
}

func (c *Client) DeletePackage(ctx context.Context, id string) error {
	return c.deleteDocument(ctx, colPackages, id)
}

func (c *Client) ListHotels(ctx context.Context) ([]domain.Document, error) {
	return c.listDocuments(ctx, colHotels)
}

func (c *Client) CreateHotel(ctx context.Context, h domain.Hotel) (string, error) {
	return c.createDocument(ctx, colHotels, encodeHotel(h))
}

func (c *Client) UpdateHotel(ctx context.Context, id string, h domain.Hotel) error {
	return c.updateDocument(ctx, colHotels, id, encodeHotel(h))
}

func (c *Client) DeleteHotel(ctx context.Context, id string) error {
	return c.deleteDocument(ctx, colHotels, id)
}

func (c *Client) ListCommonInclusions(ctx context.Context) ([]domain.Document, error) {
	return c.listDocuments(ctx, colInclusions)
}

func (c *Client) CreateCommonInclusion(ctx context.Context, description string) (string, error) {
	return c.createDocument(ctx, colInclusions, domain.Document{"description": description})
}

func (c *Client) DeleteCommonInclusion(ctx context.Context, id string) error {
	return c.deleteDocument(ctx, colInclusions, id)
}

func (c *Client) listDocuments(ctx context.Context, col string) ([]domain.Document, error) {
	var out documentList
	url := fmt.Sprintf("%s/collections/%s/documents", c.base, col)
	if err := c.do(ctx, http.MethodGet, url, nil, "", &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

func (c *Client) createDocument(ctx context.Context, col string, data domain.Document) (string, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	var out domain.Document
	url := fmt.Sprintf("%s/collections/%s/documents", c.base, col)
	if err := c.do(ctx, http.MethodPost, url, bytes.NewReader(body), "application/json", &out); err != nil {
		return "", err
	}
	if id, ok := out["$id"].(string); ok {
		return id, nil
	}
	return "", fmt.Errorf("create in %s: response has no $id", col)
}

func (c *Client) updateDocument(ctx context.Context, col, id string, data domain.Document) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/collections/%s/documents/%s", c.base, col, id)
	return c.do(ctx, http.MethodPatch, url, bytes.NewReader(body), "application/json", nil)
}

func (c *Client) deleteDocument(ctx context.Context, col, id string) error {
	url := fmt.Sprintf("%s/collections/%s/documents/%s", c.base, col, id)
	return c.do(ctx, http.MethodDelete, url, nil, "", nil)
}

/* ---- food image batch ---- */

type fileList struct {
	Files []domain.Document `json:"files"`
}

// FetchFoodImages returns the whole gallery batch; empty is a valid
// terminal state, not an error.
func (c *Client) FetchFoodImages(ctx context.Context) ([]domain.Document, error) {
	return c.listBucket(ctx, "food")
}

func (c *Client) FetchGalleryImages(ctx context.Context) ([]domain.Document, error) {
	return c.listBucket(ctx, "gallery")
}

func (c *Client) listBucket(ctx context.Context, bucket string) ([]domain.Document, error) {
	var out fileList
	url := fmt.Sprintf("%s/buckets/%s/files", c.base, bucket)
	if err := c.do(ctx, http.MethodGet, url, nil, "", &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

/* ---- file store ---- */

func (c *Client) UploadFile(ctx context.Context, name string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	var out domain.Document
	url := fmt.Sprintf("%s/files", c.base)
	if err := c.do(ctx, http.MethodPost, url, &buf, mw.FormDataContentType(), &out); err != nil {
		return "", err
	}
	if id, ok := out["$id"].(string); ok {
		return id, nil
	}
	return "", fmt.Errorf("upload %s: response has no $id", name)
}

// DeleteFile reports false without error when the file is already gone.
func (c *Client) DeleteFile(ctx context.Context, id string) (bool, error) {
	url := fmt.Sprintf("%s/files/%s", c.base, id)
	err := c.do(ctx, http.MethodDelete, url, nil, "", nil)
	if err == domain.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PreviewURL is the optimized transform variant.
func (c *Client) PreviewURL(id string) string {
	return fmt.Sprintf("%s/files/%s/preview?width=800&output=webp", c.base, id)
}

// ViewURL is the raw original.
func (c *Client) ViewURL(id string) string {
	return fmt.Sprintf("%s/files/%s/view", c.base, id)
}

/* ---- transport ---- */

// do performs a request with client-side rate limiting, retries on 429
// and transient 5xx honoring Retry-After, and JSON decode into out.
func (c *Client) do(ctx context.Context, method, url string, body io.Reader, contentType string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	// buffer the body so retries can replay it
	var payload []byte
	if body != nil {
		var err error
		if payload, err = io.ReadAll(body); err != nil {
			return err
		}
	}

	start := time.Now()
	endpoint := method + " " + strings.TrimPrefix(url, c.base)
	var lastErr error
	for i := 0; i < 4; i++ {
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, rd)
		if err != nil {
			return err
		}
		req.Header.Set("X-API-Key", c.key)
		req.Header.Set("Accept", "application/json")
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			observability.ObserveExternal("docstore", endpoint, resp.StatusCode, time.Since(start))
			if out == nil {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				return nil
			}
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case http.StatusNoContent:
			observability.ObserveExternal("docstore", endpoint, resp.StatusCode, time.Since(start))
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			observability.ObserveExternal("docstore", endpoint, resp.StatusCode, time.Since(start))
			resp.Body.Close()
			return domain.ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return domain.ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return domain.ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). 0 if absent.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles each attempt (200ms, 400ms, 800ms...) with up to +50%
// jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
