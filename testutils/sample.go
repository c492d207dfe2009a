package testutils

import (
	worldsim "github.com/NatureFlyWoW/fantasy-world-sim-sub001"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/event"
)

// Sample components shared by the package tests.

type Population struct {
	Count int `json:"count"`
}

func (Population) Name() string { return "population" }

type Settlement struct {
	Founded uint64 `json:"founded"`
}

func (Settlement) Name() string { return "settlement" }

type Prosperity struct {
	Level int `json:"level"`
}

func (Prosperity) Name() string { return "prosperity" }

// FoundingData is the payload of the sample lifecycle event type.
type FoundingData struct {
	SettlementName string `json:"settlementName"`
}

// FoundingEvent announces a settlement created by a sample system.
var FoundingEvent = event.NewType[FoundingData]("settlement.founded", event.Lifecycle)

// RegisterSampleWorld registers the sample components, the founding event
// type, and a daily growth system, giving tests a small but complete world.
func RegisterSampleWorld(f *Fixture) {
	worldsim.MustRegisterComponent[Population](f.World)
	worldsim.MustRegisterComponent[Settlement](f.World)
	worldsim.MustRegisterComponent[Prosperity](f.World)
	assert := func(err error) {
		if err != nil {
			f.Fatal(err)
		}
	}
	assert(worldsim.RegisterEventType(f.World, FoundingEvent))
	assert(worldsim.RegisterSystems(f.World, GrowthSystem()))
}

// GrowthSystem returns a daily system that increments every population.
func GrowthSystem() worldsim.System {
	return worldsim.NewSystem("growth", 1, 0, func(wCtx worldsim.WorldContext) error {
		ids, err := worldsim.Query(wCtx, "population")
		if err != nil {
			return err
		}
		for _, id := range ids {
			err := worldsim.UpdateComponent(wCtx, id, func(p *Population) *Population {
				p.Count++
				return p
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}
