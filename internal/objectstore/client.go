// Package objectstore is a thin HTTP client for the archive object store.
// Archived bundles are immutable objects addressed by filename under a
// configured bucket; the store speaks plain HTTP with byte-range support.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type Client struct {
	baseURL    string
	bucket     string
	httpClient *http.Client
}

func New(baseURL, bucket string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		bucket:  bucket,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Size        int64
	ContentType string
}

// Head returns the size and content type of an object.
func (c *Client) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodHead, c.objectURL(key), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("head object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("object store status %d for %s", resp.StatusCode, key)
	}
	if resp.ContentLength < 0 {
		return nil, fmt.Errorf("object store returned no content length for %s", key)
	}

	return &ObjectInfo{
		Size:        resp.ContentLength,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// Get retrieves a whole object.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	return c.fetch(ctx, key, "")
}

// GetRange retrieves the inclusive byte range described by rangeSpec, e.g.
// "bytes=0-1023".
func (c *Client) GetRange(ctx context.Context, key, rangeSpec string) ([]byte, error) {
	return c.fetch(ctx, key, rangeSpec)
}

func (c *Client) fetch(ctx context.Context, key, rangeSpec string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.objectURL(key), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if rangeSpec != "" {
		request.Header.Set("Range", rangeSpec)
	}

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("object store status %d for %s", resp.StatusCode, key)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	return data, nil
}

func (c *Client) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(c.bucket), url.PathEscape(key))
}
