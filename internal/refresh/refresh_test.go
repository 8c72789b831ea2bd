package refresh

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JLsquare/free-room-api/internal/feed"
	"github.com/JLsquare/free-room-api/internal/model"
	"github.com/JLsquare/free-room-api/internal/rooms"
)

// fakeIngestor serves canned bookings or errors per resource identifier.
type fakeIngestor struct {
	bookings map[int][]model.Booking
	errs     map[int]error
	calls    []int
}

func (f *fakeIngestor) Ingest(_ context.Context, resource int, _ feed.Window) ([]model.Booking, error) {
	f.calls = append(f.calls, resource)
	if err := f.errs[resource]; err != nil {
		return nil, err
	}
	return f.bookings[resource], nil
}

func booking(room string, start, end int64) model.Booking {
	return model.Booking{Room: room, Interval: model.Interval{Start: start, End: end}}
}

func TestRunPass_AppliesAllResources(t *testing.T) {
	catalog := rooms.NewCatalog()
	ingestor := &fakeIngestor{
		bookings: map[int][]model.Booking{
			726: {booking("V-A 1", 100, 200)},
			730: {booking("V-B 1", 300, 400)},
		},
	}
	c := NewCoordinator(catalog, ingestor, []int{726, 730}, 2, 8)

	c.RunPass(context.Background())

	assert.Equal(t, []int{726, 730}, ingestor.calls)
	assert.Equal(t, []model.Interval{{Start: 100, End: 200}}, catalog.Busy("V-A 1"))
	assert.Equal(t, []model.Interval{{Start: 300, End: 400}}, catalog.Busy("V-B 1"))
}

func TestRunPass_FailureIsolatedPerResource(t *testing.T) {
	catalog := rooms.NewCatalog()
	ingestor := &fakeIngestor{
		bookings: map[int][]model.Booking{
			726: {booking("V-A 1", 100, 200)},
			730: {booking("V-B 1", 300, 400)},
		},
	}
	c := NewCoordinator(catalog, ingestor, []int{726, 730}, 2, 8)
	c.RunPass(context.Background())

	// Next pass: 726 has fresh data, 730 starts failing.
	ingestor.bookings[726] = []model.Booking{booking("V-A 1", 500, 600)}
	ingestor.errs = map[int]error{730: errors.New("planning server unreachable")}
	c.RunPass(context.Background())

	// The healthy resource moved forward, the failing one kept its
	// previous state.
	assert.Equal(t, []model.Interval{{Start: 500, End: 600}}, catalog.Busy("V-A 1"))
	assert.Equal(t, []model.Interval{{Start: 300, End: 400}}, catalog.Busy("V-B 1"))
}

func TestRunPass_RemovedEventVanishesNextPass(t *testing.T) {
	catalog := rooms.NewCatalog()
	ingestor := &fakeIngestor{
		bookings: map[int][]model.Booking{
			726: {booking("V-A 1", 100, 200), booking("V-A 1", 300, 400)},
		},
	}
	c := NewCoordinator(catalog, ingestor, []int{726}, 2, 8)
	c.RunPass(context.Background())

	ingestor.bookings[726] = []model.Booking{booking("V-A 1", 300, 400)}
	c.RunPass(context.Background())

	assert.Equal(t, []model.Interval{{Start: 300, End: 400}}, catalog.Busy("V-A 1"))
}

func TestRunPass_CanceledContextStopsPass(t *testing.T) {
	catalog := rooms.NewCatalog()
	ingestor := &fakeIngestor{
		bookings: map[int][]model.Booking{726: {booking("V-A 1", 100, 200)}},
	}
	c := NewCoordinator(catalog, ingestor, []int{726, 730}, 2, 8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.RunPass(ctx)

	assert.Empty(t, ingestor.calls)
	assert.Nil(t, catalog.Busy("V-A 1"))
}

func TestGroupByRoom(t *testing.T) {
	grouped := groupByRoom([]model.Booking{
		booking("V-A 1", 100, 200),
		booking("V-B 1", 100, 200),
		booking("V-A 1", 300, 400),
	})

	require.Len(t, grouped, 2)
	assert.Len(t, grouped["V-A 1"], 2)
	assert.Len(t, grouped["V-B 1"], 1)
}
