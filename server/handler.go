package server

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rotisserie/eris"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/codec"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/event"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/eql"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/report"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/types"
)

const (
	defaultCascadeDepth = 10
	defaultEventLimit   = 100
)

func (s *Server) getHealth(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"ok":        true,
		"namespace": s.provider.Namespace(),
		"runId":     s.provider.RunID(),
		"isRunning": s.provider.IsRunning(),
	})
}

type componentInfo struct {
	Name   string `json:"name"`
	ID     int    `json:"id"`
	Schema any    `json:"schema,omitempty"`
}

func (s *Server) getWorld(ctx *fiber.Ctx) error {
	comps := s.provider.RegisteredComponents()
	componentInfos := make([]componentInfo, 0, len(comps))
	for _, comp := range comps {
		info := componentInfo{Name: comp.Name(), ID: int(comp.ID())}
		if schema := comp.GetSchema(); len(schema) > 0 {
			var decoded any
			if err := codec.Unmarshal(schema, &decoded); err == nil {
				info.Schema = decoded
			}
		}
		componentInfos = append(componentInfos, info)
	}
	return ctx.JSON(fiber.Map{
		"namespace":  s.provider.Namespace(),
		"runId":      s.provider.RunID(),
		"components": componentInfos,
		"systems":    s.provider.RegisteredSystemNames(),
		"eventTypes": s.provider.RegisteredEventTypes(),
	})
}

func (s *Server) getClock(ctx *fiber.Ctx) error {
	calendar := s.provider.Calendar()
	date := s.provider.CurrentDate()
	return ctx.JSON(fiber.Map{
		"tick":     s.provider.CurrentTick(),
		"date":     date,
		"season":   calendar.SeasonOf(date),
		"calendar": calendar,
	})
}

func (s *Server) getEventByID(ctx *fiber.Ctx) error {
	id, err := parseEventID(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	ev, err := s.provider.EventLog().ByID(id)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return ctx.JSON(ev)
}

// getEvents serves the filtered history listing. The entity, category, and
// subtype query params AND together; since bounds ids from below; limit caps
// the result, keeping the most recent matches.
func (s *Server) getEvents(ctx *fiber.Ctx) error {
	log := s.provider.EventLog()

	var events []*event.Event
	if entityParam := ctx.Query("entity"); entityParam != "" {
		entity, err := strconv.ParseUint(entityParam, 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid entity id: "+entityParam)
		}
		events = log.ByEntity(types.EntityID(entity))
	} else {
		events = log.All()
	}

	if categoryParam := ctx.Query("category"); categoryParam != "" {
		category := event.Category(categoryParam)
		if !category.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "unknown category: "+categoryParam)
		}
		events = filterEvents(events, func(ev *event.Event) bool { return ev.Category == category })
	}
	if subtypeParam := ctx.Query("subtype"); subtypeParam != "" {
		events = filterEvents(events, func(ev *event.Event) bool { return ev.Subtype == subtypeParam })
	}
	if sinceParam := ctx.Query("since"); sinceParam != "" {
		since, err := parseEventID(sinceParam)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		events = filterEvents(events, func(ev *event.Event) bool { return ev.ID > since })
	}

	limit := ctx.QueryInt("limit", defaultEventLimit)
	total := len(events)
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return ctx.JSON(fiber.Map{
		"total":  total,
		"events": events,
	})
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// postEventSearch runs an EQL query against the full history.
func (s *Server) postEventSearch(ctx *fiber.Ctx) error {
	req := new(searchRequest)
	if err := ctx.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, eris.ToString(err, false))
	}
	if req.Query == "" {
		return fiber.NewError(fiber.StatusBadRequest, "query must not be empty")
	}
	filter, err := eql.Parse(req.Query)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, eris.ToString(err, false))
	}
	events := s.provider.EventLog().Filter(filter)
	total := len(events)
	if req.Limit > 0 && len(events) > req.Limit {
		events = events[len(events)-req.Limit:]
	}
	return ctx.JSON(fiber.Map{
		"total":  total,
		"events": events,
	})
}

func (s *Server) getEventCascade(ctx *fiber.Ctx) error {
	id, err := parseEventID(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	depth := ctx.QueryInt("depth", defaultCascadeDepth)
	if depth < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "depth must not be negative")
	}
	node, err := event.Cascade(s.provider.EventLog(), id, depth)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return ctx.JSON(fiber.Map{
		"root": node,
		"size": event.CascadeSize(node),
	})
}

func (s *Server) getReportForTick(ctx *fiber.Ctx) error {
	tick, err := strconv.ParseUint(ctx.Params("tick"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid tick: "+ctx.Params("tick"))
	}
	tickReport, err := s.provider.ReportForTick(tick)
	if err != nil {
		if eris.Is(err, report.ErrTickHasNotBeenProcessed) {
			return fiber.NewError(fiber.StatusNotFound, "tick has not been processed yet")
		}
		if eris.Is(err, report.ErrOldTickHasBeenDiscarded) {
			return fiber.NewError(fiber.StatusGone, "tick report has been discarded")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return ctx.JSON(tickReport)
}

type entityComponent struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type entityState struct {
	ID         types.EntityID    `json:"id"`
	Components []entityComponent `json:"components"`
}

// getDebugState dumps every entity with every component value. Useful for
// poking at a small world; large worlds should prefer targeted queries.
func (s *Server) getDebugState(ctx *fiber.Ctx) error {
	reader := s.provider.StoreReader()
	entities := reader.AllEntities()
	states := make([]entityState, 0, len(entities))
	for _, id := range entities {
		es := entityState{ID: id, Components: []entityComponent{}}
		for _, name := range reader.ComponentTypesFor(id) {
			value, err := reader.Component(name, id)
			if err != nil {
				continue
			}
			es.Components = append(es.Components, entityComponent{Name: name, Value: value})
		}
		states = append(states, es)
	}
	return ctx.JSON(fiber.Map{
		"tick":        s.provider.CurrentTick(),
		"entityCount": reader.EntityCount(),
		"entities":    states,
	})
}

func parseEventID(raw string) (event.ID, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, eris.Errorf("invalid event id %q", raw)
	}
	return event.ID(id), nil
}

func filterEvents(events []*event.Event, keep func(*event.Event) bool) []*event.Event {
	out := make([]*event.Event, 0, len(events))
	for _, ev := range events {
		if keep(ev) {
			out = append(out, ev)
		}
	}
	return out
}
