package server_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	worldsim "github.com/NatureFlyWoW/fantasy-world-sim-sub001"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/assert"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/codec"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/event"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/server"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/testutils"
)

// newTestServer ticks a small world 5 times and mounts an inspection server
// on it. The chronicle system lays down a fixed history: a battle on tick 1
// with participants 1 and 2, and a retreat on tick 2 caused by the battle.
func newTestServer(t *testing.T, opts ...worldsim.WorldOption) (*server.Server, *worldsim.World) {
	t.Helper()
	f := testutils.NewTestFixture(t, nil, opts...)
	testutils.RegisterSampleWorld(f)

	chronicle := worldsim.NewSystem("chronicle", 1, 100, func(wCtx worldsim.WorldContext) error {
		switch wCtx.CurrentTick() {
		case 1:
			if _, err := worldsim.CreateMany(wCtx, 2, testutils.Population{Count: 10}); err != nil {
				return err
			}
			_, err := wCtx.EmitEvent(event.Draft{
				Category:     event.Conflict,
				Subtype:      "battle.started",
				Participants: []worldsim.EntityID{1, 2},
				Location:     3,
				Significance: 80,
			})
			return err
		case 2:
			_, err := wCtx.EmitEvent(event.Draft{
				Category:     event.Conflict,
				Subtype:      "battle.retreated",
				Participants: []worldsim.EntityID{2},
				Causes:       []event.ID{1},
				Significance: 40,
			})
			return err
		default:
			return nil
		}
	})
	assert.NilError(t, worldsim.RegisterSystems(f.World, chronicle))

	f.DoTicks(5)
	return server.New(f.World, zerolog.Nop()), f.World
}

func get(t *testing.T, srv *server.Server, path string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := srv.Test().Test(req)
	assert.NilError(t, err)
	body, err := io.ReadAll(resp.Body)
	assert.NilError(t, err)
	assert.NilError(t, resp.Body.Close())
	return resp, body
}

func post(t *testing.T, srv *server.Server, path string, payload any) (*http.Response, []byte) {
	t.Helper()
	bz, err := codec.Encode(payload)
	assert.NilError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(bz))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Test().Test(req)
	assert.NilError(t, err)
	body, err := io.ReadAll(resp.Body)
	assert.NilError(t, err)
	assert.NilError(t, resp.Body.Close())
	return resp, body
}

func decode(t *testing.T, body []byte, into any) {
	t.Helper()
	assert.NilError(t, codec.Unmarshal(body, into))
}

func TestGetHealth(t *testing.T) {
	srv, world := newTestServer(t)

	resp, body := get(t, srv, "/health")
	assert.Equal(t, resp.StatusCode, http.StatusOK)

	var health struct {
		OK        bool   `json:"ok"`
		Namespace string `json:"namespace"`
		RunID     string `json:"runId"`
		IsRunning bool   `json:"isRunning"`
	}
	decode(t, body, &health)
	assert.True(t, health.OK)
	assert.Equal(t, health.Namespace, "testworld")
	assert.Equal(t, health.RunID, world.RunID())
	// Ticks were driven directly, not through StartSimulation.
	assert.False(t, health.IsRunning)
}

func TestGetWorld(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := get(t, srv, "/world")
	assert.Equal(t, resp.StatusCode, http.StatusOK)

	var world struct {
		Components []struct {
			Name   string `json:"name"`
			ID     int    `json:"id"`
			Schema any    `json:"schema"`
		} `json:"components"`
		Systems    []string `json:"systems"`
		EventTypes []struct {
			Subtype string `json:"subtype"`
		} `json:"eventTypes"`
	}
	decode(t, body, &world)

	var componentNames []string
	for _, comp := range world.Components {
		componentNames = append(componentNames, comp.Name)
		assert.NotNil(t, comp.Schema)
	}
	assert.Contains(t, componentNames, "population")
	assert.Contains(t, world.Systems, "chronicle")
	assert.Contains(t, world.Systems, "growth")

	var subtypes []string
	for _, et := range world.EventTypes {
		subtypes = append(subtypes, et.Subtype)
	}
	assert.Contains(t, subtypes, "settlement.founded")
}

func TestGetClock(t *testing.T) {
	srv, world := newTestServer(t)

	resp, body := get(t, srv, "/clock")
	assert.Equal(t, resp.StatusCode, http.StatusOK)

	var clockView struct {
		Tick   uint64 `json:"tick"`
		Season string `json:"season"`
		Date   struct {
			Year  int `json:"year"`
			Month int `json:"month"`
			Day   int `json:"day"`
		} `json:"date"`
	}
	decode(t, body, &clockView)
	assert.Equal(t, clockView.Tick, world.CurrentTick())
	assert.Equal(t, clockView.Date.Year, 1)
	assert.Equal(t, clockView.Date.Day, 5)
	assert.Assert(t, clockView.Season != "")
}

func TestGetEventByID(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := get(t, srv, "/events/1")
	assert.Equal(t, resp.StatusCode, http.StatusOK)

	var ev event.Event
	decode(t, body, &ev)
	assert.Equal(t, ev.ID, event.ID(1))
	assert.Equal(t, ev.Subtype, "battle.started")
	// The retreat on tick 2 was back-filled as a consequence.
	assert.DeepEqual(t, ev.Consequences, []event.ID{2})

	resp, _ = get(t, srv, "/events/999")
	assert.Equal(t, resp.StatusCode, http.StatusNotFound)

	resp, _ = get(t, srv, "/events/not-a-number")
	assert.Equal(t, resp.StatusCode, http.StatusBadRequest)
}

type eventListing struct {
	Total  int            `json:"total"`
	Events []*event.Event `json:"events"`
}

func TestGetEventsFilters(t *testing.T) {
	srv, world := newTestServer(t)
	historyLen := world.EventLog().Len()

	resp, body := get(t, srv, "/events")
	assert.Equal(t, resp.StatusCode, http.StatusOK)
	var listing eventListing
	decode(t, body, &listing)
	assert.Equal(t, listing.Total, historyLen)

	_, body = get(t, srv, "/events?category=conflict")
	listing = eventListing{}
	decode(t, body, &listing)
	assert.Equal(t, listing.Total, 2)

	_, body = get(t, srv, "/events?subtype=battle.retreated")
	listing = eventListing{}
	decode(t, body, &listing)
	assert.Len(t, listing.Events, 1)
	assert.Equal(t, listing.Events[0].ID, event.ID(2))

	// Entity 1 fought in the battle but did not retreat.
	_, body = get(t, srv, "/events?entity=1&category=conflict")
	listing = eventListing{}
	decode(t, body, &listing)
	assert.Len(t, listing.Events, 1)
	assert.Equal(t, listing.Events[0].Subtype, "battle.started")

	_, body = get(t, srv, "/events?since=1&category=conflict")
	listing = eventListing{}
	decode(t, body, &listing)
	assert.Len(t, listing.Events, 1)
	assert.Equal(t, listing.Events[0].ID, event.ID(2))

	// A limit keeps the most recent matches but reports the full total.
	_, body = get(t, srv, "/events?limit=1")
	listing = eventListing{}
	decode(t, body, &listing)
	assert.Equal(t, listing.Total, historyLen)
	assert.Len(t, listing.Events, 1)
	assert.Equal(t, listing.Events[0].ID, world.EventLog().LastID())

	resp, _ = get(t, srv, "/events?category=weather")
	assert.Equal(t, resp.StatusCode, http.StatusBadRequest)

	resp, _ = get(t, srv, "/events?entity=bandit")
	assert.Equal(t, resp.StatusCode, http.StatusBadRequest)
}

func TestPostEventSearch(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := post(t, srv, "/events/search", map[string]any{
		"query": "CATEGORY(conflict) & SIGNIFICANCE(50)",
	})
	assert.Equal(t, resp.StatusCode, http.StatusOK)
	var listing eventListing
	decode(t, body, &listing)
	assert.Len(t, listing.Events, 1)
	assert.Equal(t, listing.Events[0].Subtype, "battle.started")

	resp, _ = post(t, srv, "/events/search", map[string]any{"query": "CATEGORY("})
	assert.Equal(t, resp.StatusCode, http.StatusBadRequest)

	resp, _ = post(t, srv, "/events/search", map[string]any{})
	assert.Equal(t, resp.StatusCode, http.StatusBadRequest)
}

func TestGetEventCascade(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := get(t, srv, "/events/1/cascade")
	assert.Equal(t, resp.StatusCode, http.StatusOK)

	var cascade struct {
		Root *event.CascadeNode `json:"root"`
		Size int                `json:"size"`
	}
	decode(t, body, &cascade)
	assert.Equal(t, cascade.Root.Event.ID, event.ID(1))
	assert.Equal(t, cascade.Size, 2)

	_, body = get(t, srv, "/events/1/cascade?depth=0")
	cascade.Root, cascade.Size = nil, 0
	decode(t, body, &cascade)
	assert.Equal(t, cascade.Size, 1)

	resp, _ = get(t, srv, "/events/999/cascade")
	assert.Equal(t, resp.StatusCode, http.StatusNotFound)

	resp, _ = get(t, srv, "/events/1/cascade?depth=-1")
	assert.Equal(t, resp.StatusCode, http.StatusBadRequest)
}

func TestGetReportForTick(t *testing.T) {
	srv, _ := newTestServer(t, worldsim.WithReportHistorySize(3))

	resp, body := get(t, srv, "/reports/5")
	assert.Equal(t, resp.StatusCode, http.StatusOK)

	var tickReport struct {
		Tick    uint64 `json:"tick"`
		Systems []struct {
			Name string `json:"name"`
		} `json:"systems"`
	}
	decode(t, body, &tickReport)
	assert.Equal(t, tickReport.Tick, uint64(5))
	assert.Assert(t, len(tickReport.Systems) > 0)

	resp, _ = get(t, srv, "/reports/99")
	assert.Equal(t, resp.StatusCode, http.StatusNotFound)

	resp, _ = get(t, srv, "/reports/1")
	assert.Equal(t, resp.StatusCode, http.StatusGone)

	resp, _ = get(t, srv, "/reports/soon")
	assert.Equal(t, resp.StatusCode, http.StatusBadRequest)
}

func TestGetDebugState(t *testing.T) {
	srv, world := newTestServer(t)

	resp, body := get(t, srv, "/debug/state")
	assert.Equal(t, resp.StatusCode, http.StatusOK)

	var state struct {
		Tick        uint64 `json:"tick"`
		EntityCount int    `json:"entityCount"`
		Entities    []struct {
			ID         uint64 `json:"id"`
			Components []struct {
				Name string `json:"name"`
			} `json:"components"`
		} `json:"entities"`
	}
	decode(t, body, &state)
	assert.Equal(t, state.Tick, world.CurrentTick())
	assert.Equal(t, state.EntityCount, len(state.Entities))
	assert.Assert(t, state.EntityCount > 0)
	assert.Len(t, state.Entities[0].Components, 1)
	assert.Equal(t, state.Entities[0].Components[0].Name, "population")
}

func TestStreamRequiresWebsocketUpgrade(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := get(t, srv, "/stream")
	assert.Equal(t, resp.StatusCode, http.StatusUpgradeRequired)
}

func TestStreamBroadcastsTicks(t *testing.T) {
	f := testutils.NewTestFixture(t, nil)
	testutils.RegisterSampleWorld(f)
	f.DoTick()

	srv := server.New(f.World, zerolog.Nop(), server.WithPort("42071"))
	go func() {
		if err := srv.Serve(); err != nil {
			t.Log(err)
		}
	}()
	t.Cleanup(func() {
		assert.NilError(t, srv.Shutdown())
	})

	conn := dialStream(t, "ws://localhost:42071/stream")
	defer func() {
		assert.NilError(t, conn.Close())
	}()
	// The dial returning only means the handshake finished; wait for the hub
	// to apply the registration before broadcasting.
	for i := 0; i < 100 && srv.ConnectionCount() == 0; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, srv.ConnectionCount(), 1)

	report := f.World.CurrentReport()
	events := f.World.EventLog().All()
	srv.BroadcastTick(report, events)

	_, frame, err := conn.ReadMessage()
	assert.NilError(t, err)

	var msg struct {
		Tick   uint64         `json:"tick"`
		Events []*event.Event `json:"events"`
	}
	decode(t, frame, &msg)
	assert.Equal(t, msg.Tick, report.Tick)
	assert.Len(t, msg.Events, len(events))
}

// dialStream connects a websocket client, retrying while the listener comes
// up.
func dialStream(t *testing.T, url string) *gorillaws.Conn {
	t.Helper()
	var lastErr error
	for i := 0; i < 100; i++ {
		conn, resp, err := gorillaws.DefaultDialer.Dial(url, nil)
		if err == nil {
			assert.NilError(t, resp.Body.Close())
			return conn
		}
		lastErr = err
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("failed to connect to %s: %v", url, lastErr)
	return nil
}
