// Package eql implements the event query language used by the inspection
// server. A query is a boolean expression over event predicates:
//
//	ALL()                every event
//	CATEGORY(conflict)   events of one category
//	SUBTYPE(war.battle)  events with an exact subtype
//	PARTICIPANT(42)      events whose participants include entity 42
//	LOCATION(7)          events located at entity 7
//	SIGNIFICANCE(60)     events with significance >= 60
//	SINCE(900)           events with timestamp >= tick 900
//	UNTIL(1200)          events with timestamp <= tick 1200
//
// Predicates combine with &, | and !, and group with parentheses, e.g.
// "CATEGORY(conflict) & SIGNIFICANCE(60) & !PARTICIPANT(42)". Queries compile
// to event.Filter functions.
package eql

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/rotisserie/eris"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/event"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/types"
)

type eqlOperator int

const (
	opAnd eqlOperator = iota
	opOr
)

var operatorMap = map[string]eqlOperator{"&": opAnd, "|": opOr}

// Capture tells the parser how to transform a parsed operator token into the
// operator type.
func (o *eqlOperator) Capture(s []string) error {
	if len(s) == 0 {
		return eris.New("invalid operator")
	}
	operator, ok := operatorMap[s[0]]
	if !ok {
		return eris.New("invalid operator")
	}
	*o = operator
	return nil
}

type eqlCategory struct {
	Name string `"CATEGORY" "(" @Ident ")"`
}

type eqlSubtype struct {
	Domain string `"SUBTYPE" "(" @Ident`
	Action string `"." @Ident ")"`
}

type eqlParticipant struct {
	Entity uint64 `"PARTICIPANT" "(" @Int ")"`
}

type eqlLocation struct {
	Entity uint64 `"LOCATION" "(" @Int ")"`
}

type eqlSignificance struct {
	Min int `"SIGNIFICANCE" "(" @Int ")"`
}

type eqlSince struct {
	Tick uint64 `"SINCE" "(" @Int ")"`
}

type eqlUntil struct {
	Tick uint64 `"UNTIL" "(" @Int ")"`
}

type eqlNot struct {
	SubExpression *eqlValue `"!" @@`
}

type eqlValue struct {
	All           bool             `@("ALL" "(" ")")`
	Category      *eqlCategory     `| @@`
	Subtype       *eqlSubtype      `| @@`
	Participant   *eqlParticipant  `| @@`
	Location      *eqlLocation     `| @@`
	Significance  *eqlSignificance `| @@`
	Since         *eqlSince        `| @@`
	Until         *eqlUntil        `| @@`
	Not           *eqlNot          `| @@`
	Subexpression *eqlTerm         `| "(" @@ ")"`
}

type eqlFactor struct {
	Base *eqlValue `@@`
}

type eqlOpFactor struct {
	Operator eqlOperator `@("&" | "|")`
	Factor   *eqlFactor  `@@`
}

type eqlTerm struct {
	Left  *eqlFactor     `@@`
	Right []*eqlOpFactor `@@*`
}

// Display

func (o eqlOperator) String() string {
	switch o {
	case opAnd:
		return "&"
	case opOr:
		return "|"
	}
	panic("unsupported operator")
}

func (v *eqlValue) String() string {
	switch {
	case v.All:
		return "ALL()"
	case v.Category != nil:
		return "CATEGORY(" + v.Category.Name + ")"
	case v.Subtype != nil:
		return "SUBTYPE(" + v.Subtype.Domain + "." + v.Subtype.Action + ")"
	case v.Participant != nil:
		return fmt.Sprintf("PARTICIPANT(%d)", v.Participant.Entity)
	case v.Location != nil:
		return fmt.Sprintf("LOCATION(%d)", v.Location.Entity)
	case v.Significance != nil:
		return fmt.Sprintf("SIGNIFICANCE(%d)", v.Significance.Min)
	case v.Since != nil:
		return fmt.Sprintf("SINCE(%d)", v.Since.Tick)
	case v.Until != nil:
		return fmt.Sprintf("UNTIL(%d)", v.Until.Tick)
	case v.Not != nil:
		return "!" + v.Not.SubExpression.String()
	case v.Subexpression != nil:
		return "(" + v.Subexpression.String() + ")"
	}
	panic("logic error displaying EQL ast. Check the code in eql.go")
}

func (f *eqlFactor) String() string {
	return f.Base.String()
}

func (o *eqlOpFactor) String() string {
	return fmt.Sprintf("%s %s", o.Operator, o.Factor)
}

func (t *eqlTerm) String() string {
	out := []string{t.Left.String()}
	for _, r := range t.Right {
		out = append(out, r.String())
	}
	return strings.Join(out, " ")
}

var internalEQLParser = participle.MustBuild[eqlTerm]()

func valueToFilter(value *eqlValue) (event.Filter, error) {
	switch {
	case value.All:
		return func(*event.Event) bool { return true }, nil
	case value.Category != nil:
		category := event.Category(value.Category.Name)
		if !category.Valid() {
			return nil, eris.Errorf("unknown event category %q", value.Category.Name)
		}
		return func(ev *event.Event) bool { return ev.Category == category }, nil
	case value.Subtype != nil:
		subtype := value.Subtype.Domain + "." + value.Subtype.Action
		return func(ev *event.Event) bool { return ev.Subtype == subtype }, nil
	case value.Participant != nil:
		entity := types.EntityID(value.Participant.Entity)
		return func(ev *event.Event) bool {
			for _, p := range ev.Participants {
				if p == entity {
					return true
				}
			}
			return false
		}, nil
	case value.Location != nil:
		entity := types.EntityID(value.Location.Entity)
		return func(ev *event.Event) bool { return ev.Location == entity }, nil
	case value.Significance != nil:
		min := value.Significance.Min
		if min < event.MinSignificance || min > event.MaxSignificance {
			return nil, eris.Errorf("SIGNIFICANCE bound %d is outside [%d, %d]",
				min, event.MinSignificance, event.MaxSignificance)
		}
		return func(ev *event.Event) bool { return ev.Significance >= min }, nil
	case value.Since != nil:
		tick := value.Since.Tick
		return func(ev *event.Event) bool { return ev.Timestamp >= tick }, nil
	case value.Until != nil:
		tick := value.Until.Tick
		return func(ev *event.Event) bool { return ev.Timestamp <= tick }, nil
	case value.Not != nil:
		inner, err := valueToFilter(value.Not.SubExpression)
		if err != nil {
			return nil, err
		}
		return func(ev *event.Event) bool { return !inner(ev) }, nil
	case value.Subexpression != nil:
		return termToFilter(value.Subexpression)
	}
	return nil, eris.New("unknown error during conversion from EQL AST to event filter")
}

func termToFilter(term *eqlTerm) (event.Filter, error) {
	result, err := valueToFilter(term.Left.Base)
	if err != nil {
		return nil, err
	}
	for _, opFactor := range term.Right {
		right, err := valueToFilter(opFactor.Factor.Base)
		if err != nil {
			return nil, err
		}
		left := result
		switch opFactor.Operator {
		case opAnd:
			result = func(ev *event.Event) bool { return left(ev) && right(ev) }
		case opOr:
			result = func(ev *event.Event) bool { return left(ev) || right(ev) }
		default:
			return nil, eris.Errorf("invalid operator in %q", term.String())
		}
	}
	return result, nil
}

// Parse compiles a query string into an event filter.
func Parse(queryString string) (event.Filter, error) {
	term, err := internalEQLParser.ParseString("", queryString)
	if err != nil {
		return nil, eris.Wrap(err, "failed to parse EQL query")
	}
	return termToFilter(term)
}
