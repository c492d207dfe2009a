// Command worldsim runs a small fantasy-world simulation against the kernel:
// settlements grow daily, skirmish weekly, and hold festivals each season,
// while a chronicler subscriber narrates the notable events. Configuration
// comes entirely from WORLDSIM_* environment variables.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	worldsim "github.com/NatureFlyWoW/fantasy-world-sim-sub001"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/clock"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/event"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/rng"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/types"
)

type Population struct {
	Count int `json:"count"`
}

func (Population) Name() string { return "population" }

type Settlement struct {
	Title   string `json:"title"`
	Founded uint64 `json:"founded"`
}

func (Settlement) Name() string { return "settlement" }

type Garrison struct {
	Strength int `json:"strength"`
}

func (Garrison) Name() string { return "garrison" }

type foundingData struct {
	Title string `json:"title"`
}

type festivalData struct {
	Season clock.Season `json:"season"`
}

type skirmishData struct {
	AttackerLosses int `json:"attackerLosses"`
	DefenderLosses int `json:"defenderLosses"`
}

var (
	foundingEvent = event.NewType[foundingData]("settlement.founded", event.Lifecycle)
	festivalEvent = event.NewType[festivalData]("festival.held", event.Culture)
	skirmishEvent = event.NewType[skirmishData]("skirmish.fought", event.Conflict)
)

var settlementNames = []string{"Ravenmoor", "Duskwell", "Thornhaven", "Eastmere"}

// growthSystem founds the starting settlements and grows their populations
// every day.
type growthSystem struct{}

func (growthSystem) Name() string      { return "population_growth" }
func (growthSystem) Frequency() uint64 { return clock.Daily }
func (growthSystem) Order() int        { return 0 }

func (growthSystem) Initialize(wCtx worldsim.WorldContext) error {
	for _, title := range settlementNames {
		id, err := worldsim.Create(wCtx,
			Settlement{Title: title, Founded: wCtx.CurrentTick()},
			Population{Count: wCtx.Rand().IntBetween(80, 200)},
			Garrison{Strength: wCtx.Rand().IntBetween(10, 40)},
		)
		if err != nil {
			return err
		}
		_, err = foundingEvent.Emit(wCtx, foundingData{Title: title},
			event.WithParticipants(id),
			event.WithSignificance(50),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (growthSystem) Execute(wCtx worldsim.WorldContext) error {
	ids, err := worldsim.Query(wCtx, "population")
	if err != nil {
		return err
	}
	for _, id := range ids {
		if !wCtx.Rand().Chance(0.3) {
			continue
		}
		err := worldsim.UpdateComponent(wCtx, id, func(p *Population) *Population {
			p.Count += wCtx.Rand().IntBetween(1, 5)
			return p
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// skirmishSystem picks two garrisoned settlements each week and has them
// trade losses.
type skirmishSystem struct{}

func (skirmishSystem) Name() string      { return "skirmish" }
func (skirmishSystem) Frequency() uint64 { return clock.Weekly }
func (skirmishSystem) Order() int        { return 10 }

func (skirmishSystem) Execute(wCtx worldsim.WorldContext) error {
	ids, err := worldsim.Query(wCtx, "settlement", "garrison")
	if err != nil {
		return err
	}
	if len(ids) < 2 {
		return nil
	}
	shuffled := rng.Shuffle(wCtx.Rand(), ids)
	attacker, defender := shuffled[0], shuffled[1]

	data := skirmishData{
		AttackerLosses: wCtx.Rand().IntBetween(0, 10),
		DefenderLosses: wCtx.Rand().IntBetween(0, 15),
	}
	if err := applyLosses(wCtx, attacker, data.AttackerLosses); err != nil {
		return err
	}
	if err := applyLosses(wCtx, defender, data.DefenderLosses); err != nil {
		return err
	}

	_, err = skirmishEvent.Emit(wCtx, data,
		event.WithParticipants(attacker, defender),
		event.WithLocation(defender),
		event.WithSignificance(30+data.AttackerLosses+data.DefenderLosses),
	)
	return err
}

func applyLosses(wCtx worldsim.WorldContext, id types.EntityID, losses int) error {
	return worldsim.UpdateComponent(wCtx, id, func(g *Garrison) *Garrison {
		g.Strength -= losses
		if g.Strength < 0 {
			g.Strength = 0
		}
		return g
	})
}

// festivalSystem throws a festival in one settlement at the turn of every
// season, healing its garrison a little.
type festivalSystem struct{}

func (festivalSystem) Name() string      { return "festival" }
func (festivalSystem) Frequency() uint64 { return clock.Seasonal }
func (festivalSystem) Order() int        { return 20 }

func (festivalSystem) Execute(wCtx worldsim.WorldContext) error {
	ids, err := worldsim.Query(wCtx, "settlement")
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	host := rng.Pick(wCtx.Rand(), ids)
	err = worldsim.UpdateComponent(wCtx, host, func(g *Garrison) *Garrison {
		g.Strength += 5
		return g
	})
	if err != nil {
		return err
	}
	_, err = festivalEvent.Emit(wCtx, festivalData{Season: wCtx.Calendar().SeasonOf(wCtx.Date())},
		event.WithParticipants(host),
		event.WithLocation(host),
		event.WithSignificance(60),
	)
	return err
}

func main() {
	w, err := worldsim.NewWorld()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create world: %v\n", err)
		os.Exit(1)
	}

	worldsim.MustRegisterComponent[Settlement](w)
	worldsim.MustRegisterComponent[Population](w)
	worldsim.MustRegisterComponent[Garrison](w)
	worldsim.MustRegisterEventType(w, foundingEvent)
	worldsim.MustRegisterEventType(w, festivalEvent)
	worldsim.MustRegisterEventType(w, skirmishEvent)

	if err := worldsim.RegisterSystems(w, growthSystem{}, skirmishSystem{}, festivalSystem{}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register systems: %v\n", err)
		os.Exit(1)
	}

	// The chronicler narrates notable events as they happen.
	chronicle := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Str("voice", "chronicler").Logger()
	w.Bus().Subscribe(func(ev *event.Event) {
		if ev.Significance < 50 {
			return
		}
		chronicle.Info().
			Uint64("tick", ev.Timestamp).
			Str("subtype", ev.Subtype).
			Int("significance", ev.Significance).
			Msg("a notable thing happened")
	})

	if err := w.StartSimulation(); err != nil {
		fmt.Fprintf(os.Stderr, "simulation failed: %v\n", err)
		os.Exit(1)
	}
}
