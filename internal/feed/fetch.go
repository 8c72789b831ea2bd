// Package feed is the ingestion boundary: it fetches one planning feed per
// external resource identifier and extracts (room, start, end) bookings
// from it. Failures are reported per resource; callers decide isolation.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	applog "github.com/JLsquare/free-room-api/internal/log"
)

// dateFormat is the calendar-date format the planning server expects for
// the firstDate/lastDate query parameters.
const dateFormat = "2006-01-02"

// Window is the ingest date window sent to the planning server. Feeds only
// contain events between First and Last, so Last also bounds the horizon
// beyond which the engine makes no availability claims.
type Window struct {
	First time.Time
	Last  time.Time
}

// WindowAround returns the sliding window [today - pastWeeks, today + futureWeeks].
func WindowAround(now time.Time, pastWeeks, futureWeeks int) Window {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return Window{
		First: day.AddDate(0, 0, -7*pastWeeks),
		Last:  day.AddDate(0, 0, 7*futureWeeks),
	}
}

// Horizon is the unix timestamp of the window's forward edge.
func (w Window) Horizon() int64 { return w.Last.Unix() }

// cacheMeta holds the HTTP validators of the last successful fetch for one
// resource, so the next fetch can be conditional and outages can fall back
// to the cached body.
type cacheMeta struct {
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher retrieves planning feeds with a bounded timeout and a per-resource
// disk cache used both for conditional requests and stale fallback.
type Fetcher struct {
	client   *http.Client
	urlTmpl  string
	cacheDir string
}

// NewFetcher creates a Fetcher. urlTmpl receives the resource identifier
// and the window's first/last dates, in that order.
func NewFetcher(urlTmpl, cacheDir string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cacheDir == "" {
		cacheDir = "./var/feed-cache"
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		urlTmpl:  urlTmpl,
		cacheDir: cacheDir,
	}
}

// URL builds the feed URL for one resource and window.
func (f *Fetcher) URL(resource int, w Window) string {
	return fmt.Sprintf(f.urlTmpl, resource,
		w.First.Format(dateFormat), w.Last.Format(dateFormat))
}

// Fetch retrieves the feed body for one resource. On a network error or a
// non-OK status it falls back to the last cached body if one exists; a 304
// always serves from cache. An error is returned only when no body can be
// produced at all.
func (f *Fetcher) Fetch(ctx context.Context, resource int, w Window) ([]byte, error) {
	dir := filepath.Join(f.cacheDir, fmt.Sprintf("resource-%d", resource))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	meta, _ := loadMeta(dir)
	cached, _ := os.ReadFile(filepath.Join(dir, "body.ics"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(resource, w), nil)
	if err != nil {
		return nil, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cached) > 0 {
			applog.Warn("feed fetch failed, serving cached body", "resource", resource, "reason", err)
			return cached, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		f.saveCache(dir, resource, resp, body)
		return body, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return nil, errors.New("304 Not Modified but no cached body")
		}
		applog.Debug("feed not modified, serving cached body", "resource", resource)
		return cached, nil

	default:
		if len(cached) > 0 {
			applog.Warn("feed fetch non-OK, serving cached body",
				"resource", resource, "status", resp.StatusCode)
			return cached, nil
		}
		return nil, errors.New(resp.Status)
	}
}

func (f *Fetcher) saveCache(dir string, resource int, resp *http.Response, body []byte) {
	if err := os.WriteFile(filepath.Join(dir, "body.ics"), body, 0o600); err != nil {
		applog.Error("feed cache body write failed", err, "resource", resource)
		return
	}
	meta := cacheMeta{
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		UpdatedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(&meta)
	if err != nil {
		applog.Error("feed cache meta marshal failed", err, "resource", resource)
		return
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600); err != nil {
		applog.Error("feed cache meta write failed", err, "resource", resource)
	}
}

func loadMeta(dir string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}
