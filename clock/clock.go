// Package clock owns the simulation's tick counter and its projection onto a
// fantasy calendar. One tick is one simulated day. The clock only ever moves
// forward.
package clock

// Frequencies for the default calendar, expressed in ticks.
const (
	Daily    uint64 = 1
	Weekly   uint64 = 7
	Monthly  uint64 = 30
	Seasonal uint64 = 90
	Yearly   uint64 = 360
)

// Calendar holds the constants that convert ticks to dates. The values are
// configuration, not kernel invariants, but every tick-to-date conversion in
// a world must go through the same Calendar.
type Calendar struct {
	DaysPerMonth  uint64 `json:"daysPerMonth"`
	MonthsPerYear uint64 `json:"monthsPerYear"`
}

// DefaultCalendar is 30-day months and 12-month years, giving a 360-day year.
func DefaultCalendar() Calendar {
	return Calendar{DaysPerMonth: 30, MonthsPerYear: 12}
}

func (c Calendar) DaysPerYear() uint64 {
	return c.DaysPerMonth * c.MonthsPerYear
}

// DateOf converts a tick to a 1-based calendar date. Ticks are 1-based and
// one tick is one day, so tick n is day n of the calendar: tick 1 is day 1 of
// month 1 of year 1. Tick 0, before any tick has run, also projects to that
// date.
func (c Calendar) DateOf(tick uint64) Date {
	if tick > 0 {
		tick--
	}
	year := tick / c.DaysPerYear()
	rem := tick % c.DaysPerYear()
	return Date{
		Year:  int(year) + 1,
		Month: int(rem/c.DaysPerMonth) + 1,
		Day:   int(rem%c.DaysPerMonth) + 1,
	}
}

// Date is a calendar projection of a tick.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

type Season string

const (
	Spring Season = "spring"
	Summer Season = "summer"
	Autumn Season = "autumn"
	Winter Season = "winter"
)

// SeasonOf maps the date's month onto one of four equal season buckets. The
// split depends on the calendar's month count, so a 6-month year spends month
// 6 in winter just like month 12 of the default calendar.
func (c Calendar) SeasonOf(d Date) Season {
	seasons := [...]Season{Spring, Summer, Autumn, Winter}
	idx := (d.Month - 1) * 4 / int(c.MonthsPerYear)
	if idx < 0 {
		idx = 0
	}
	if idx > 3 {
		idx = 3
	}
	return seasons[idx]
}

// Clock is the world's tick counter.
type Clock struct {
	tick     uint64
	calendar Calendar
}

func New(calendar Calendar) *Clock {
	return &Clock{calendar: calendar}
}

// Advance increments the tick by 1.
func (c *Clock) Advance() {
	c.tick++
}

// AdvanceBy increments the tick by n.
func (c *Clock) AdvanceBy(n uint64) {
	c.tick += n
}

func (c *Clock) CurrentTick() uint64 {
	return c.tick
}

func (c *Clock) Calendar() Calendar {
	return c.calendar
}

// Date returns the calendar projection of the current tick.
func (c *Clock) Date() Date {
	return c.calendar.DateOf(c.tick)
}

// IsDue reports whether a system with the given frequency should run on the
// current tick. Frequency 1 means every tick. Frequency 0 is never due; the
// system manager rejects it at registration.
func (c *Clock) IsDue(frequency uint64) bool {
	if frequency == 0 {
		return false
	}
	return c.tick%frequency == 0
}
