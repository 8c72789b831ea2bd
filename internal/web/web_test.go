package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JLsquare/free-room-api/internal/config"
	"github.com/JLsquare/free-room-api/internal/model"
	"github.com/JLsquare/free-room-api/internal/rooms"
)

func testServer(t *testing.T, catalog *rooms.Catalog) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.RoomPattern = `^V-`

	s, err := NewServer(cfg, catalog)
	require.NoError(t, err)
	return s
}

func TestNewServer_InvalidPattern(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RoomPattern = `^(V-`

	_, err := NewServer(cfg, rooms.NewCatalog())

	assert.Error(t, err)
}

func TestNewServer_InvalidTimezone(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Timezone = "Mars/Olympus_Mons"

	_, err := NewServer(cfg, rooms.NewCatalog())

	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	s := testServer(t, rooms.NewCatalog())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAll_ReturnsFreeIntervalsForObservedRooms(t *testing.T) {
	now := time.Now().Unix()
	catalog := rooms.NewCatalog()
	// V-A 2 never had busy data and Amphi G fails the name filter; both
	// must stay out of the response.
	catalog.ApplySource("726", map[string][]model.Interval{
		"V-A 1":   {{Start: now + 100, End: now + 200}},
		"V-A 2":   nil,
		"Amphi G": {{Start: now + 100, End: now + 200}},
	})
	s := testServer(t, catalog)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/all", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var free map[string][][2]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &free))
	require.Contains(t, free, "V-A 1")
	assert.NotContains(t, free, "V-A 2")
	assert.NotContains(t, free, "Amphi G")

	// First free interval runs from roughly now to the booking's start.
	require.NotEmpty(t, free["V-A 1"])
	assert.Equal(t, now+100, free["V-A 1"][0][1])
}

func TestLite_StatusRows(t *testing.T) {
	now := time.Now().Unix()
	catalog := rooms.NewCatalog()
	catalog.ApplySource("726", map[string][]model.Interval{
		"V-A 1": {{Start: now - 100, End: now + 100}}, // currently booked
		"V-A 2": {{Start: now - 200, End: now - 100}}, // only past bookings
	})
	s := testServer(t, catalog)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lite/0", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var statuses []model.RoomStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	require.Len(t, statuses, 2)

	assert.Equal(t, "V-A 1", statuses[0].Name)
	assert.Equal(t, model.StatusAvailable, statuses[0].Status)
	assert.InDelta(t, 100, statuses[0].Duration, 5)

	assert.Equal(t, "V-A 2", statuses[1].Name)
	assert.Equal(t, model.StatusUnavailable, statuses[1].Status)
	assert.Equal(t, model.DurationUnknown, statuses[1].Duration)
}

func TestLite_HourOffsetShiftsReference(t *testing.T) {
	now := time.Now().Unix()
	catalog := rooms.NewCatalog()
	// Booked one hour from now; with offset 1 the reference lands inside.
	catalog.ApplySource("726", map[string][]model.Interval{
		"V-A 1": {{Start: now + 3500, End: now + 7200}},
	})
	s := testServer(t, catalog)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lite/1", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var statuses []model.RoomStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, model.StatusAvailable, statuses[0].Status)
}

func TestLite_BadOffset(t *testing.T) {
	s := testServer(t, rooms.NewCatalog())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lite/soon", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORS(t *testing.T) {
	s := testServer(t, rooms.NewCatalog())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/all", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
