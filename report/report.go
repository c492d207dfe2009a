// Package report keeps track of per-tick execution results for a number of
// ticks. A report records which systems ran, how long each took, any isolated
// failures, and the range of event ids the tick produced.
package report

import (
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/event"
)

var (
	ErrTickHasNotBeenProcessed = errors.New("tick is still in progress")
	ErrOldTickHasBeenDiscarded = errors.New("the requested tick has been discarded due to age")
)

// SystemRun records one system invocation within a tick. Error is the
// eris-rendered failure string when the system errored or panicked, empty
// otherwise.
type SystemRun struct {
	Name      string        `json:"name"`
	Frequency uint64        `json:"frequency"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// TickReport summarizes one completed tick.
type TickReport struct {
	Tick          uint64      `json:"tick"`
	Systems       []SystemRun `json:"systems"`
	FirstEventID  event.ID    `json:"firstEventId"`
	LastEventID   event.ID    `json:"lastEventId"`
	EventsEmitted int         `json:"eventsEmitted"`
}

func NewTickReport(tick uint64) *TickReport {
	return &TickReport{Tick: tick, Systems: []SystemRun{}}
}

func (r *TickReport) AddSystemRun(run SystemRun) {
	r.Systems = append(r.Systems, run)
}

// SetEventRange records the ids of the events emitted this tick. lastBefore
// is the log's last id before the tick ran.
func (r *TickReport) SetEventRange(lastBefore, lastAfter event.ID, count int) {
	if count > 0 {
		r.FirstEventID = lastBefore + 1
		r.LastEventID = lastAfter
	}
	r.EventsEmitted = count
}

// FailedSystems returns the names of the systems that errored this tick.
func (r *TickReport) FailedSystems() []string {
	var failed []string
	for _, run := range r.Systems {
		if run.Error != "" {
			failed = append(failed, run.Name)
		}
	}
	return failed
}

// History keeps tick reports for some number of recent ticks in a ring
// buffer. Reports older than the window are discarded.
type History struct {
	ticksToStore uint64
	reports      []*TickReport
	lastTick     uint64
	hasReports   bool
}

// NewHistory creates a History that retains ticksToStore recent reports.
func NewHistory(ticksToStore int) *History {
	if ticksToStore < 1 {
		ticksToStore = 1
	}
	return &History{
		ticksToStore: uint64(ticksToStore),
		reports:      make([]*TickReport, ticksToStore),
	}
}

func (h *History) Size() uint64 {
	return h.ticksToStore
}

// Push records the report for a completed tick. Ticks must be recorded in
// increasing order.
func (h *History) Push(report *TickReport) error {
	if h.hasReports && report.Tick <= h.lastTick {
		return eris.Errorf("tick %d recorded after tick %d", report.Tick, h.lastTick)
	}
	h.reports[report.Tick%h.ticksToStore] = report
	h.lastTick = report.Tick
	h.hasReports = true
	return nil
}

// Current returns the most recently recorded report, or nil before the first
// tick completes.
func (h *History) Current() *TickReport {
	if !h.hasReports {
		return nil
	}
	return h.reports[h.lastTick%h.ticksToStore]
}

// ReportForTick returns the report for the given tick. A tick that has not
// completed yet returns ErrTickHasNotBeenProcessed; a tick that has fallen
// out of the retention window returns ErrOldTickHasBeenDiscarded.
func (h *History) ReportForTick(tick uint64) (*TickReport, error) {
	if !h.hasReports || tick > h.lastTick {
		return nil, eris.Wrap(ErrTickHasNotBeenProcessed, "")
	}
	if h.lastTick-tick >= h.ticksToStore {
		return nil, eris.Wrap(ErrOldTickHasBeenDiscarded, "")
	}
	report := h.reports[tick%h.ticksToStore]
	if report == nil || report.Tick != tick {
		return nil, eris.Wrap(ErrOldTickHasBeenDiscarded, "")
	}
	return report, nil
}
