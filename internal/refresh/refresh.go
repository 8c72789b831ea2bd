// Package refresh drives the periodic ingestion passes that rebuild the
// room catalog from the planning feeds.
package refresh

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/JLsquare/free-room-api/internal/feed"
	applog "github.com/JLsquare/free-room-api/internal/log"
	"github.com/JLsquare/free-room-api/internal/model"
	"github.com/JLsquare/free-room-api/internal/rooms"
)

// Ingestor produces the bookings of one external resource for a window.
// It abstracts fetch+parse so passes can be exercised without a network.
type Ingestor interface {
	Ingest(ctx context.Context, resource int, w feed.Window) ([]model.Booking, error)
}

// FeedIngestor is the production Ingestor over a feed.Fetcher.
type FeedIngestor struct {
	Fetcher *feed.Fetcher
}

func (fi *FeedIngestor) Ingest(ctx context.Context, resource int, w feed.Window) ([]model.Booking, error) {
	body, err := fi.Fetcher.Fetch(ctx, resource, w)
	if err != nil {
		return nil, err
	}
	return feed.ParseBookings(resource, body, w)
}

// Coordinator runs refresh passes over all configured resources, isolating
// per-resource failures: a bad feed is logged and skipped, and the catalog
// keeps that resource's previous state.
type Coordinator struct {
	catalog   *rooms.Catalog
	ingestor  Ingestor
	resources []int

	pastWeeks   int
	futureWeeks int

	// mu makes passes non-reentrant; a tick arriving mid-pass waits its
	// turn instead of interleaving.
	mu sync.Mutex
}

// NewCoordinator wires a coordinator over the shared catalog.
func NewCoordinator(catalog *rooms.Catalog, ingestor Ingestor, resources []int, pastWeeks, futureWeeks int) *Coordinator {
	return &Coordinator{
		catalog:     catalog,
		ingestor:    ingestor,
		resources:   resources,
		pastWeeks:   pastWeeks,
		futureWeeks: futureWeeks,
	}
}

// RunPass ingests every resource once. All feed I/O happens outside the
// catalog lock; only the per-resource replacement runs under it. RunPass
// never fails as a whole: the next scheduled pass is the retry mechanism.
func (c *Coordinator) RunPass(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := feed.WindowAround(time.Now(), c.pastWeeks, c.futureWeeks)
	started := time.Now()
	var ok, failed int

	for _, resource := range c.resources {
		if ctx.Err() != nil {
			applog.Info("refresh pass canceled", "ok", ok, "failed", failed)
			return
		}

		bookings, err := c.ingestor.Ingest(ctx, resource, w)
		if err != nil {
			applog.Error("resource ingest failed", err, "resource", resource)
			failed++
			continue
		}

		c.catalog.ApplySource(strconv.Itoa(resource), groupByRoom(bookings))
		ok++
	}

	applog.Info("refresh pass complete",
		"ok", ok,
		"failed", failed,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
}

// Start fires one pass immediately and then schedules RunPass on the given
// cron spec. The returned cron should be stopped by the caller on shutdown.
func (c *Coordinator) Start(ctx context.Context, spec string) (*cron.Cron, error) {
	cr := cron.New()
	if _, err := cr.AddFunc(spec, func() { c.RunPass(ctx) }); err != nil {
		return nil, err
	}

	go c.RunPass(ctx)
	cr.Start()
	return cr, nil
}

// groupByRoom folds a booking list into the per-room interval map the
// catalog replaces atomically.
func groupByRoom(bookings []model.Booking) map[string][]model.Interval {
	byRoom := make(map[string][]model.Interval)
	for _, b := range bookings {
		byRoom[b.Room] = append(byRoom[b.Room], b.Interval)
	}
	return byRoom
}
